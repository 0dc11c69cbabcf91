package models

// Node is a single located point
type Node struct {
	id      string
	loc     Loc
	tags    Tags
	visible bool
	version int
}

// NewNode creates a visible node
func NewNode(id string, loc Loc, tags Tags) *Node {
	return &Node{id: id, loc: loc, tags: tags, visible: true}
}

func (n *Node) ID() string       { return n.id }
func (n *Node) Type() EntityType { return TypeNode }
func (n *Node) Tags() Tags       { return n.tags }
func (n *Node) Visible() bool    { return n.visible }
func (n *Node) Loc() Loc         { return n.loc }
func (n *Node) Version() int     { return n.version }

// Geometry is point for a node without parent ways, vertex otherwise.
func (n *Node) Geometry(r Resolver) GeometryKind {
	return r.Transient(n, "geometry", func() any {
		if r.IsPoi(n) {
			return GeometryPoint
		}
		return GeometryVertex
	}).(GeometryKind)
}

func (n *Node) Extent(Resolver) (Extent, bool) {
	return NewExtent(n.loc), true
}

// Move returns a copy of the node at loc
func (n *Node) Move(loc Loc) *Node {
	c := n.next()
	c.loc = loc
	return c
}

// WithTags returns a copy of the node with the given tags
func (n *Node) WithTags(tags Tags) *Node {
	c := n.next()
	c.tags = tags
	return c
}

// WithVisible returns a copy of the node with the visible flag set
func (n *Node) WithVisible(visible bool) *Node {
	c := n.next()
	c.visible = visible
	return c
}

func (n *Node) next() *Node {
	c := *n
	c.version++
	return &c
}

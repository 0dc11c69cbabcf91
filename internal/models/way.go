package models

import (
	"slices"
	"strconv"
)

// Way is an ordered list of nodes
type Way struct {
	id      string
	nodes   []string
	tags    Tags
	visible bool
	version int
}

// NewWay creates a visible way
func NewWay(id string, nodes []string, tags Tags) *Way {
	return &Way{id: id, nodes: nodes, tags: tags, visible: true}
}

func (w *Way) ID() string        { return w.id }
func (w *Way) Type() EntityType  { return TypeWay }
func (w *Way) Tags() Tags        { return w.tags }
func (w *Way) Visible() bool     { return w.visible }
func (w *Way) NodeIDs() []string { return w.nodes }
func (w *Way) Version() int      { return w.version }

// IsClosed returns true if the way ends where it starts
func (w *Way) IsClosed() bool {
	return len(w.nodes) > 1 && w.nodes[0] == w.nodes[len(w.nodes)-1]
}

func (w *Way) Geometry(Resolver) GeometryKind {
	if w.IsClosed() && isAreaTags(w.tags) {
		return GeometryArea
	}
	return GeometryLine
}

type cachedExtent struct {
	extent Extent
	ok     bool
}

// Extent covers every child node that can be resolved.
func (w *Way) Extent(r Resolver) (Extent, bool) {
	c := r.Transient(w, "extent", func() any {
		ext := NewExtent()
		found := false
		for _, id := range w.nodes {
			if n, ok := r.HasEntity(id).(Located); ok {
				ext = ext.ExtendLoc(n.Loc())
				found = true
			}
		}
		return cachedExtent{extent: ext, ok: found}
	}).(cachedExtent)
	return c.extent, c.ok
}

// Segments splits the way into one segment per edge
func (w *Way) Segments(Resolver) []Segment {
	if len(w.nodes) < 2 {
		return nil
	}
	segments := make([]Segment, 0, len(w.nodes)-1)
	for i := 0; i < len(w.nodes)-1; i++ {
		segments = append(segments, Segment{
			ID:      w.id + "-" + strconv.Itoa(i),
			WayID:   w.id,
			NodeIDs: [2]string{w.nodes[i], w.nodes[i+1]},
			Index:   i,
		})
	}
	return segments
}

// WithNodes returns a copy of the way with a new node list
func (w *Way) WithNodes(nodes []string) *Way {
	c := w.next()
	c.nodes = nodes
	return c
}

// AddNode returns a copy of the way with id inserted at index, or appended
// when index is out of range.
func (w *Way) AddNode(id string, index int) *Way {
	if index < 0 || index > len(w.nodes) {
		index = len(w.nodes)
	}
	return w.WithNodes(slices.Insert(slices.Clone(w.nodes), index, id))
}

// RemoveNode returns a copy of the way without any occurrence of id
func (w *Way) RemoveNode(id string) *Way {
	nodes := slices.DeleteFunc(slices.Clone(w.nodes), func(n string) bool { return n == id })
	return w.WithNodes(nodes)
}

// WithTags returns a copy of the way with the given tags
func (w *Way) WithTags(tags Tags) *Way {
	c := w.next()
	c.tags = tags
	return c
}

// WithVisible returns a copy of the way with the visible flag set
func (w *Way) WithVisible(visible bool) *Way {
	c := w.next()
	c.visible = visible
	return c
}

func (w *Way) next() *Way {
	c := *w
	c.version++
	return &c
}

// Segment is one edge of a way
type Segment struct {
	ID      string
	WayID   string
	NodeIDs [2]string
	Index   int
}

// Extent covers both endpoints; false if either is missing.
func (s Segment) Extent(r Resolver) (Extent, bool) {
	a, okA := r.HasEntity(s.NodeIDs[0]).(Located)
	b, okB := r.HasEntity(s.NodeIDs[1]).(Located)
	if !okA || !okB {
		return Extent{}, false
	}
	return NewExtent(a.Loc(), b.Loc()), true
}

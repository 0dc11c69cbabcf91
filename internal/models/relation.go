package models

import "slices"

// Relation groups other entities under roles
type Relation struct {
	id      string
	members []Member
	tags    Tags
	visible bool
	version int
}

// NewRelation creates a visible relation
func NewRelation(id string, members []Member, tags Tags) *Relation {
	return &Relation{id: id, members: members, tags: tags, visible: true}
}

func (r *Relation) ID() string        { return r.id }
func (r *Relation) Type() EntityType  { return TypeRelation }
func (r *Relation) Tags() Tags        { return r.tags }
func (r *Relation) Visible() bool     { return r.visible }
func (r *Relation) Members() []Member { return r.members }
func (r *Relation) Version() int      { return r.version }

func (r *Relation) IsMultipolygon() bool {
	return r.tags["type"] == "multipolygon"
}

func (r *Relation) Geometry(Resolver) GeometryKind {
	if r.IsMultipolygon() {
		return GeometryArea
	}
	return GeometryRelation
}

// Extent covers every resolvable member. Relations nested in each other are
// visited once.
func (r *Relation) Extent(res Resolver) (Extent, bool) {
	c := res.Transient(r, "extent", func() any {
		ext, ok := r.memberExtent(res, map[string]bool{r.id: true})
		return cachedExtent{extent: ext, ok: ok}
	}).(cachedExtent)
	return c.extent, c.ok
}

func (r *Relation) memberExtent(res Resolver, seen map[string]bool) (Extent, bool) {
	ext := NewExtent()
	found := false
	for _, m := range r.members {
		member := res.HasEntity(m.ID)
		if member == nil {
			continue
		}
		var (
			me Extent
			ok bool
		)
		if child, isRel := member.(*Relation); isRel {
			if seen[child.id] {
				continue
			}
			seen[child.id] = true
			me, ok = child.memberExtent(res, seen)
		} else {
			me, ok = member.Extent(res)
		}
		if ok {
			ext = ext.Extend(me)
			found = true
		}
	}
	return ext, found
}

// WithMembers returns a copy of the relation with a new member list
func (r *Relation) WithMembers(members []Member) *Relation {
	c := r.next()
	c.members = members
	return c
}

// AddMember returns a copy of the relation with m appended
func (r *Relation) AddMember(m Member) *Relation {
	return r.WithMembers(append(slices.Clone(r.members), m))
}

// WithTags returns a copy of the relation with the given tags
func (r *Relation) WithTags(tags Tags) *Relation {
	c := r.next()
	c.tags = tags
	return c
}

// WithVisible returns a copy of the relation with the visible flag set
func (r *Relation) WithVisible(visible bool) *Relation {
	c := r.next()
	c.visible = visible
	return c
}

func (r *Relation) next() *Relation {
	c := *r
	c.version++
	return &c
}

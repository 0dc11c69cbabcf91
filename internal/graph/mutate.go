package graph

import (
	"github.com/kilupskalvis/geoedit/internal/models"
)

// difference returns the ids in a that are not in b.
func difference(a, b []string) []string {
	skip := make(map[string]struct{}, len(b))
	for _, id := range b {
		skip[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// updateParents records the transition previous -> current of a way or
// relation in dst's parent index. Existing sets are read from dst, falling
// back to fallback when dst has none for a child.
func updateParents(previous, current models.Entity, dst, fallback *layer) {
	entity := current
	if entity == nil {
		entity = previous
	}
	if entity == nil {
		return
	}

	var (
		target   map[string]idSet
		children func(models.Entity) []string
	)
	switch entity.Type() {
	case models.TypeWay:
		target = dst.parentWays
		children = models.NodeIDsOf
	case models.TypeRelation:
		target = dst.parentRels
		children = models.MemberIDsOf
	default:
		return
	}

	var prevIDs, currIDs []string
	if previous != nil {
		prevIDs = children(previous)
	}
	if current != nil {
		currIDs = children(current)
	}
	removed := difference(prevIDs, currIDs)
	added := difference(currIDs, prevIDs)

	lookup := func(childID string) idSet {
		if s, ok := target[childID]; ok {
			return s
		}
		if fallback == nil {
			return nil
		}
		if entity.Type() == models.TypeWay {
			return fallback.parentWays[childID]
		}
		return fallback.parentRels[childID]
	}

	parentID := entity.ID()
	for _, childID := range removed {
		s := lookup(childID).clone()
		delete(s, parentID)
		target[childID] = s
	}
	for _, childID := range added {
		s := lookup(childID).clone()
		s[parentID] = struct{}{}
		target[childID] = s
	}
}

// Builder mutates a graph in place. Graph hands out the current state as a
// snapshot; the builder copies its layer before the next write so handed out
// snapshots never change.
type Builder struct {
	g      *Graph
	shared bool
}

// NewBuilder starts a builder from a copy of g.
func NewBuilder(g *Graph) *Builder {
	return &Builder{g: g.derive()}
}

// Graph returns the current state as a snapshot.
func (b *Builder) Graph() *Graph {
	b.shared = true
	return b.g
}

// own prepares the builder for a write: it copies a handed out snapshot and
// drops memoized values that the write may invalidate.
func (b *Builder) own() {
	if b.shared {
		b.g = b.g.derive()
		b.shared = false
		return
	}
	if len(b.g.transients) > 0 || len(b.g.childNodes) > 0 {
		b.g.resetCaches()
	}
}

func (b *Builder) HasEntity(id string) models.Entity {
	return b.g.HasEntity(id)
}

func (b *Builder) Entity(id string) (models.Entity, error) {
	return b.g.Entity(id)
}

func (b *Builder) ParentWays(e models.Entity) ([]models.Entity, error) {
	return b.g.ParentWays(e)
}

func (b *Builder) ParentRelations(e models.Entity) ([]models.Entity, error) {
	return b.g.ParentRelations(e)
}

// Replace stores e. Replacing an entity with itself is a no-op.
func (b *Builder) Replace(e models.Entity) *Builder {
	current := b.g.HasEntity(e.ID())
	if current == e {
		return b
	}
	b.own()
	updateParents(current, e, b.g.local, &b.g.base.layer)
	b.g.local.entities[e.ID()] = e
	return b
}

// Remove marks e deleted. Removing an absent entity is a no-op.
func (b *Builder) Remove(e models.Entity) *Builder {
	current := b.g.HasEntity(e.ID())
	if current == nil {
		return b
	}
	b.own()
	updateParents(current, nil, b.g.local, &b.g.base.layer)
	b.g.local.entities[e.ID()] = nil
	return b
}

// Revert drops the local override of id so the base value shows through.
func (b *Builder) Revert(id string) *Builder {
	original := b.g.base.entities[id]
	current := b.g.HasEntity(id)
	if current == original {
		return b
	}
	b.own()
	updateParents(current, original, b.g.local, &b.g.base.layer)
	delete(b.g.local.entities, id)
	return b
}

// Update applies each mutator to the builder in order.
func (b *Builder) Update(fns ...func(*Builder)) *Builder {
	for _, fn := range fns {
		fn(b)
	}
	return b
}

// Load replaces the local layer wholesale with entities. A nil entity marks a
// deletion.
func (b *Builder) Load(entities map[string]models.Entity) *Builder {
	b.own()
	local := newLayer()
	for id, e := range entities {
		original := b.g.base.entities[id]
		local.entities[id] = e
		updateParents(original, e, local, &b.g.base.layer)
	}
	b.g.local = local
	b.g.resetCaches()
	return b
}

// Replace returns a graph storing e, or g itself if g already stores e.
func (g *Graph) Replace(e models.Entity) *Graph {
	if g.HasEntity(e.ID()) == e {
		return g
	}
	return g.Update(func(b *Builder) { b.Replace(e) })
}

// Remove returns a graph without e, or g itself if e is absent.
func (g *Graph) Remove(e models.Entity) *Graph {
	if g.HasEntity(e.ID()) == nil {
		return g
	}
	return g.Update(func(b *Builder) { b.Remove(e) })
}

// Revert returns a graph where id has its base value, or g itself if it
// already does.
func (g *Graph) Revert(id string) *Graph {
	if g.HasEntity(id) == g.base.entities[id] {
		return g
	}
	return g.Update(func(b *Builder) { b.Revert(id) })
}

// Update applies the mutators to a copy of g and returns the copy.
func (g *Graph) Update(fns ...func(*Builder)) *Graph {
	return NewBuilder(g).Update(fns...).Graph()
}

// Load returns a graph sharing g's base whose local layer is exactly
// entities.
func (g *Graph) Load(entities map[string]models.Entity) *Graph {
	return g.Update(func(b *Builder) { b.Load(entities) })
}

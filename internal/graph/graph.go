// Package graph implements the versioned entity store.
//
// A Graph is an immutable snapshot made of two layers: a base layer shared by
// every snapshot derived from a common ancestor, and a local layer private to
// the snapshot that holds its edits. Mutations on a Graph return a new Graph
// with a shallow copy of the local layer; the shared base is only changed by
// Rebase. A Builder applies the same mutations in place.
package graph

import (
	"iter"
	"maps"
	"slices"

	"github.com/kilupskalvis/geoedit/internal/models"
)

// idSet is treated as immutable once stored in a layer; updates replace it.
type idSet map[string]struct{}

func (s idSet) clone() idSet {
	c := make(idSet, len(s)+1)
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s idSet) sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

type layer struct {
	// A nil value marks an entity deleted in this layer.
	entities   map[string]models.Entity
	parentWays map[string]idSet
	parentRels map[string]idSet
}

func newLayer() *layer {
	return &layer{
		entities:   make(map[string]models.Entity),
		parentWays: make(map[string]idSet),
		parentRels: make(map[string]idSet),
	}
}

func (l *layer) clone() *layer {
	return &layer{
		entities:   maps.Clone(l.entities),
		parentWays: maps.Clone(l.parentWays),
		parentRels: maps.Clone(l.parentRels),
	}
}

type baseLayer struct {
	layer
	// version is bumped by every Rebase that changes the layer.
	version uint64
}

type childNodesEntry struct {
	way   models.Entity
	nodes []models.Entity
}

// Graph is a snapshot of the entity store.
type Graph struct {
	base  *baseLayer
	local *layer

	transients  map[string]map[string]any
	childNodes  map[string]childNodesEntry
	seenVersion uint64
}

// New creates a graph with a fresh base layer seeded with entities.
func New(entities ...models.Entity) *Graph {
	g := &Graph{
		base:  &baseLayer{layer: *newLayer()},
		local: newLayer(),
	}
	g.resetCaches()
	g.Rebase(entities, []*Graph{g}, false)
	return g
}

// derive returns a new graph sharing g's base with a copy of g's local layer.
func (g *Graph) derive() *Graph {
	d := &Graph{base: g.base, local: g.local.clone()}
	d.resetCaches()
	return d
}

func (g *Graph) resetCaches() {
	g.transients = make(map[string]map[string]any)
	g.childNodes = make(map[string]childNodesEntry)
	g.seenVersion = g.base.version
}

// HasEntity returns the entity or nil. A local deletion hides the base value.
func (g *Graph) HasEntity(id string) models.Entity {
	if e, ok := g.local.entities[id]; ok {
		return e
	}
	return g.base.entities[id]
}

// Entity returns the entity or an *EntityNotFoundError.
func (g *Graph) Entity(id string) (models.Entity, error) {
	e := g.HasEntity(id)
	if e == nil {
		return nil, &EntityNotFoundError{ID: id}
	}
	return e, nil
}

// Geometry returns the geometry kind of the entity with the given id.
func (g *Graph) Geometry(id string) (models.GeometryKind, error) {
	e, err := g.Entity(id)
	if err != nil {
		return "", err
	}
	return e.Geometry(g), nil
}

// Transient memoizes fn per entity and key until the base layer changes.
func (g *Graph) Transient(e models.Entity, key string, fn func() any) any {
	if g.seenVersion != g.base.version {
		g.transients = make(map[string]map[string]any)
		g.seenVersion = g.base.version
	}

	cache, ok := g.transients[e.ID()]
	if !ok {
		cache = make(map[string]any)
		g.transients[e.ID()] = cache
	}
	if v, ok := cache[key]; ok {
		return v
	}
	v := fn()
	cache[key] = v
	return v
}

func (g *Graph) parentWayIDs(id string) idSet {
	if s, ok := g.local.parentWays[id]; ok {
		return s
	}
	return g.base.parentWays[id]
}

func (g *Graph) parentRelIDs(id string) idSet {
	if s, ok := g.local.parentRels[id]; ok {
		return s
	}
	return g.base.parentRels[id]
}

// IsPoi returns true for a node that belongs to no way.
func (g *Graph) IsPoi(e models.Entity) bool {
	if e.Type() != models.TypeNode {
		return false
	}
	return len(g.parentWayIDs(e.ID())) == 0
}

// IsShared returns true for a node that belongs to more than one way, or that
// appears more than once in its only way. The closing node of a closed way
// does not count as a second occurrence.
func (g *Graph) IsShared(e models.Entity) (bool, error) {
	if e.Type() != models.TypeNode {
		return false, nil
	}
	parents := g.parentWayIDs(e.ID())
	switch {
	case len(parents) == 0:
		return false, nil
	case len(parents) > 1:
		return true, nil
	}

	var parentID string
	for id := range parents {
		parentID = id
	}
	parent, err := g.Entity(parentID)
	if err != nil {
		return false, err
	}

	nodes := models.NodeIDsOf(parent)
	end := len(nodes)
	if c, ok := parent.(interface{ IsClosed() bool }); ok && c.IsClosed() {
		end--
	}
	count := 0
	for _, id := range nodes[:end] {
		if id == e.ID() {
			count++
		}
		if count > 1 {
			return true, nil
		}
	}
	return false, nil
}

func (g *Graph) resolve(ids idSet) ([]models.Entity, error) {
	result := make([]models.Entity, 0, len(ids))
	for _, id := range ids.sorted() {
		e, err := g.Entity(id)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// ParentWays returns the ways that contain e, ordered by id.
func (g *Graph) ParentWays(e models.Entity) ([]models.Entity, error) {
	return g.resolve(g.parentWayIDs(e.ID()))
}

// ParentRelations returns the relations that have e as a member, ordered by id.
func (g *Graph) ParentRelations(e models.Entity) ([]models.Entity, error) {
	return g.resolve(g.parentRelIDs(e.ID()))
}

// ParentMultipolygons is ParentRelations restricted to multipolygons.
func (g *Graph) ParentMultipolygons(e models.Entity) ([]models.Entity, error) {
	rels, err := g.ParentRelations(e)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(rels, func(r models.Entity) bool {
		return !models.IsMultipolygonEntity(r)
	}), nil
}

// ChildNodes resolves the node list of a way. The result is memoized per way
// and must not be modified. Entities without a node list have no children.
func (g *Graph) ChildNodes(e models.Entity) ([]models.Entity, error) {
	nl, ok := e.(models.NodeLister)
	if !ok {
		return []models.Entity{}, nil
	}
	if cached, ok := g.childNodes[e.ID()]; ok && cached.way == e {
		return cached.nodes, nil
	}

	ids := nl.NodeIDs()
	children := make([]models.Entity, len(ids))
	for i, id := range ids {
		child, err := g.Entity(id)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	g.childNodes[e.ID()] = childNodesEntry{way: e, nodes: children}
	return children, nil
}

// LocalIDs yields every id the local layer overrides, deletions included.
func (g *Graph) LocalIDs() iter.Seq[string] {
	return maps.Keys(g.local.entities)
}

// LocalEntities yields the local layer; deleted entities are yielded as nil.
func (g *Graph) LocalEntities() iter.Seq2[string, models.Entity] {
	return maps.All(g.local.entities)
}

// LocalEntity returns the local override for id. ok is true for deletions,
// which have a nil entity.
func (g *Graph) LocalEntity(id string) (models.Entity, bool) {
	e, ok := g.local.entities[id]
	return e, ok
}

// IsDeleted returns true if the local layer deletes id.
func (g *Graph) IsDeleted(id string) bool {
	e, ok := g.local.entities[id]
	return ok && e == nil
}

// BaseEntity returns the entity as the base layer holds it.
func (g *Graph) BaseEntity(id string) models.Entity {
	return g.base.entities[id]
}

// BaseEntities yields the base layer.
func (g *Graph) BaseEntities() iter.Seq2[string, models.Entity] {
	return maps.All(g.base.entities)
}

// SharesBase returns true if both graphs descend from the same base layer.
func (g *Graph) SharesBase(other *Graph) bool {
	return g.base == other.base
}

// BaseVersion is the number of changing rebases the shared base has seen.
func (g *Graph) BaseVersion() uint64 {
	return g.base.version
}

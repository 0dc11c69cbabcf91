// Package core compares graph snapshots: the difference between two of
// them, its change summary, and the Edit values a history is built from.
package core

import (
	"maps"
	"slices"

	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
)

// Change is the state of one entity in the base and head graphs. Base is nil
// for a creation, Head is nil for a deletion.
type Change struct {
	Base models.Entity
	Head models.Entity
}

// ChangeFlags records which kinds of change a Difference saw
type ChangeFlags struct {
	Addition   bool
	Deletion   bool
	Geometry   bool
	Properties bool
}

// Any returns true if any flag is set
func (f ChangeFlags) Any() bool {
	return f.Addition || f.Deletion || f.Geometry || f.Properties
}

// Difference represents the changes between two graphs
type Difference struct {
	base      *graph.Graph
	head      *graph.Graph
	changes   map[string]Change
	ids       []string
	didChange ChangeFlags
}

// NewDifference computes the difference from base to head. Only ids in the
// local layer of either graph are examined.
func NewDifference(base, head *graph.Graph) *Difference {
	d := &Difference{
		base:    base,
		head:    head,
		changes: make(map[string]Change),
	}
	if base == head {
		return d
	}

	seen := make(map[string]struct{})
	for id := range head.LocalIDs() {
		seen[id] = struct{}{}
	}
	for id := range base.LocalIDs() {
		seen[id] = struct{}{}
	}

	for id := range seen {
		h := head.HasEntity(id)
		b := base.HasEntity(id)
		if h == b {
			continue
		}

		switch {
		case b != nil && h == nil:
			d.changes[id] = Change{Base: b}
			d.didChange.Deletion = true
		case b == nil && h != nil:
			d.changes[id] = Change{Head: h}
			d.didChange.Addition = true
		default:
			d.classify(id, b, h)
		}
	}

	d.ids = slices.Sorted(maps.Keys(d.changes))
	return d
}

func (d *Difference) classify(id string, b, h models.Entity) {
	record := func() { d.changes[id] = Change{Base: b, Head: h} }

	hm, hasHM := h.(models.MemberLister)
	bm, hasBM := b.(models.MemberLister)
	if hasHM && hasBM && !slices.Equal(hm.Members(), bm.Members()) {
		record()
		d.didChange.Geometry = true
		d.didChange.Properties = true
		return
	}

	hl, hasHL := h.(models.Located)
	bl, hasBL := b.(models.Located)
	if hasHL && hasBL && hl.Loc() != bl.Loc() {
		record()
		d.didChange.Geometry = true
	}

	hn, hasHN := h.(models.NodeLister)
	bn, hasBN := b.(models.NodeLister)
	if hasHN && hasBN && !slices.Equal(hn.NodeIDs(), bn.NodeIDs()) {
		record()
		d.didChange.Geometry = true
	}

	if !h.Tags().Equal(b.Tags()) {
		record()
		d.didChange.Properties = true
	}
}

// Base returns the graph the difference starts from
func (d *Difference) Base() *graph.Graph { return d.base }

// Head returns the graph the difference ends at
func (d *Difference) Head() *graph.Graph { return d.head }

// Changes returns every changed entity by id. The map must not be modified.
func (d *Difference) Changes() map[string]Change { return d.changes }

// DidChange reports which kinds of change were seen
func (d *Difference) DidChange() ChangeFlags { return d.didChange }

// Len returns the number of changed entities
func (d *Difference) Len() int { return len(d.changes) }

func (d *Difference) filter(keep func(Change) bool, pick func(Change) models.Entity) []models.Entity {
	var result []models.Entity
	for _, id := range d.ids {
		c := d.changes[id]
		if keep(c) {
			result = append(result, pick(c))
		}
	}
	return result
}

func head(c Change) models.Entity { return c.Head }

// Modified returns the head version of entities present in both graphs
func (d *Difference) Modified() []models.Entity {
	return d.filter(func(c Change) bool { return c.Base != nil && c.Head != nil }, head)
}

// Created returns entities only present in the head graph
func (d *Difference) Created() []models.Entity {
	return d.filter(func(c Change) bool { return c.Base == nil && c.Head != nil }, head)
}

// Deleted returns the base version of entities missing from the head graph
func (d *Difference) Deleted() []models.Entity {
	return d.filter(func(c Change) bool { return c.Base != nil && c.Head == nil },
		func(c Change) models.Entity { return c.Base })
}

// union returns the ids of a followed by those of b not already seen.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Complete returns every entity that needs a redraw or revalidation because
// of this difference: the changed entities, the nodes of changed ways, the
// downloaded members of changed multipolygons, and all their parent ways and
// relations up the relation hierarchy. Deleted entities map to nil.
func (d *Difference) Complete() (map[string]models.Entity, error) {
	hg := d.head
	result := make(map[string]models.Entity)

	addParents := func(parents []models.Entity) error {
		queue := parents
		for len(queue) > 0 {
			parent := queue[0]
			queue = queue[1:]
			if _, ok := result[parent.ID()]; ok {
				continue
			}
			result[parent.ID()] = parent
			rels, err := hg.ParentRelations(parent)
			if err != nil {
				return err
			}
			queue = append(queue, rels...)
		}
		return nil
	}

	for _, id := range d.ids {
		change := d.changes[id]
		h, b := change.Head, change.Base
		entity := h
		if entity == nil {
			entity = b
		}

		result[id] = h

		if entity.Type() == models.TypeWay {
			var headNodes, baseNodes []string
			if h != nil {
				headNodes = models.NodeIDsOf(h)
			}
			if b != nil {
				baseNodes = models.NodeIDsOf(b)
			}
			for _, nodeID := range union(headNodes, baseNodes) {
				result[nodeID] = hg.HasEntity(nodeID)
			}
		}

		if entity.Type() == models.TypeRelation && models.IsMultipolygonEntity(entity) {
			var headMembers, baseMembers []string
			if h != nil {
				headMembers = models.MemberIDsOf(h)
			}
			if b != nil {
				baseMembers = models.MemberIDsOf(b)
			}
			for _, memberID := range union(headMembers, baseMembers) {
				member := hg.HasEntity(memberID)
				if member == nil {
					continue // not downloaded
				}
				result[memberID] = member
			}
		}

		ways, err := hg.ParentWays(entity)
		if err != nil {
			return nil, err
		}
		if err := addParents(ways); err != nil {
			return nil, err
		}
		rels, err := hg.ParentRelations(entity)
		if err != nil {
			return nil, err
		}
		if err := addParents(rels); err != nil {
			return nil, err
		}
	}

	return result, nil
}

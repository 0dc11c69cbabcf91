package core

import (
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
)

// ChangeType is the user-facing classification of a change
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// SummaryItem is one line of a change summary. Graph is the graph Entity
// should be read against: head for created and modified, base for deleted.
type SummaryItem struct {
	Entity     models.Entity
	Graph      *graph.Graph
	ChangeType ChangeType
}

// Summary classifies the difference the way a person reviewing the edit
// would read it. Vertices without interesting tags are not listed on their
// own: moving one reports its parent ways as modified instead.
func (d *Difference) Summary() (map[string]SummaryItem, error) {
	base, head := d.base, d.head
	result := make(map[string]SummaryItem)

	add := func(e models.Entity, g *graph.Graph, ct ChangeType) {
		result[e.ID()] = SummaryItem{Entity: e, Graph: g, ChangeType: ct}
	}

	for _, id := range d.ids {
		change := d.changes[id]
		h, b := change.Head, change.Base

		switch {
		case h != nil && h.Geometry(head) != models.GeometryVertex:
			ct := ChangeCreated
			if b != nil {
				ct = ChangeModified
			}
			add(h, head, ct)

		case b != nil && b.Geometry(base) != models.GeometryVertex:
			add(b, base, ChangeDeleted)

		case b != nil && h != nil:
			moved := locOf(b) != locOf(h)
			retagged := !b.Tags().Equal(h.Tags())
			if moved {
				parents, err := head.ParentWays(h)
				if err != nil {
					return nil, err
				}
				for _, parent := range parents {
					if _, ok := result[parent.ID()]; ok {
						continue
					}
					add(parent, head, ChangeModified)
				}
			}
			if retagged || (moved && models.HasInterestingTags(h.Tags())) {
				add(h, head, ChangeModified)
			}

		case h != nil && models.HasInterestingTags(h.Tags()):
			add(h, head, ChangeCreated)

		case b != nil && models.HasInterestingTags(b.Tags()):
			add(b, base, ChangeDeleted)
		}
	}

	return result, nil
}

func locOf(e models.Entity) models.Loc {
	if l, ok := e.(models.Located); ok {
		return l.Loc()
	}
	return models.Loc{}
}

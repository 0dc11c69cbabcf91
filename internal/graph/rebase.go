package graph

import (
	"github.com/kilupskalvis/geoedit/internal/models"
)

// Rebase merges entities into the shared base layer, in place. Every graph in
// stack shares that base and is reconciled before Rebase returns; the last
// graph of the stack is the most recent edit.
//
// Invisible entities are skipped, as are entities the base already holds
// unless force is set. When a merged way references a node that the most
// recent edit deleted, that deletion is undone in every graph of the stack.
func (g *Graph) Rebase(entities []models.Entity, stack []*Graph, force bool) {
	base := g.base

	var head *layer
	if len(stack) > 0 {
		head = stack[len(stack)-1].local
	}

	restore := make(map[string]struct{})
	changed := false

	for _, e := range entities {
		if e == nil || !e.Visible() {
			continue
		}
		if _, ok := base.entities[e.ID()]; ok && !force {
			continue
		}

		base.entities[e.ID()] = e
		updateParents(nil, e, &base.layer, nil)
		changed = true

		if e.Type() != models.TypeWay || head == nil {
			continue
		}
		for _, id := range models.NodeIDsOf(e) {
			if deleted, ok := head.entities[id]; ok && deleted == nil {
				restore[id] = struct{}{}
			}
		}
	}

	if !changed {
		return
	}
	base.version++

	for _, sg := range stack {
		for id := range restore {
			if deleted, ok := sg.local.entities[id]; ok && deleted == nil {
				delete(sg.local.entities, id)
			}
		}
		sg.updateRebased()
	}
}

// updateRebased unions base parents into every parent set this graph has
// cached locally, skipping parents the graph has edited itself.
func (g *Graph) updateRebased() {
	reconcile := func(local, base map[string]idSet) {
		for childID, parents := range local {
			var merged idSet
			for parentID := range base[childID] {
				if _, has := parents[parentID]; has {
					continue
				}
				if _, edited := g.local.entities[parentID]; edited {
					continue
				}
				if merged == nil {
					merged = parents.clone()
				}
				merged[parentID] = struct{}{}
			}
			if merged != nil {
				local[childID] = merged
			}
		}
	}
	reconcile(g.local.parentWays, g.base.parentWays)
	reconcile(g.local.parentRels, g.base.parentRels)

	// childNodes survives: ways are always merged together with their nodes.
	g.transients = make(map[string]map[string]any)
	g.seenVersion = g.base.version
}

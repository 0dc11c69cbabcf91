// Package spatial keeps a rectangle tree of entity bounding boxes in step with
// the graph that is current.
//
// The index remembers which graph it was last synchronized with. Each query
// names the graph it wants answers for; the index diffs the two graphs and
// re-indexes only what moved, was added, or was deleted.
package spatial

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/kilupskalvis/geoedit/internal/core"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/tidwall/rtree"
)

type box struct {
	min, max [2]float64
}

func boxOf(e models.Extent) box {
	lo, hi := e.Bounds()
	return box{min: lo, max: hi}
}

// Index tracks entity and way segment bounding boxes.
type Index struct {
	current *graph.Graph
	logger  *slog.Logger

	entityTree     rtree.RTreeG[string]
	entityBoxes    map[string]box
	entitySegments map[string][]models.Segment

	segmentTree  rtree.RTreeG[string]
	segmentBoxes map[string]box
	segments     map[string]models.Segment
}

// Option configures an Index
type Option func(*Index)

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) { idx.logger = logger }
}

// New creates an empty index whose current graph is g.
func New(g *graph.Graph, opts ...Option) *Index {
	idx := &Index{
		current:        g,
		logger:         slog.Default(),
		entityBoxes:    make(map[string]box),
		entitySegments: make(map[string][]models.Segment),
		segmentBoxes:   make(map[string]box),
		segments:       make(map[string]models.Segment),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Current returns the graph the index is synchronized with
func (idx *Index) Current() *graph.Graph { return idx.current }

// Len returns the number of indexed entities
func (idx *Index) Len() int { return len(idx.entityBoxes) }

// SegmentLen returns the number of indexed segments
func (idx *Index) SegmentLen() int { return len(idx.segmentBoxes) }

// Has returns true if the entity has a box in the index
func (idx *Index) Has(id string) bool {
	_, ok := idx.entityBoxes[id]
	return ok
}

func (idx *Index) removeEntity(id string) {
	if b, ok := idx.entityBoxes[id]; ok {
		idx.entityTree.Delete(b.min, b.max, id)
		delete(idx.entityBoxes, id)
		boxesRemoved.WithLabelValues("entity").Inc()
	}

	for _, seg := range idx.entitySegments[id] {
		if b, ok := idx.segmentBoxes[seg.ID]; ok {
			idx.segmentTree.Delete(b.min, b.max, seg.ID)
			delete(idx.segmentBoxes, seg.ID)
			delete(idx.segments, seg.ID)
			boxesRemoved.WithLabelValues("segment").Inc()
		}
	}
	delete(idx.entitySegments, id)
}

// loadEntities computes fresh boxes against the current graph and inserts
// them, one batch per tree. Entities without an extent are left out.
func (idx *Index) loadEntities(toUpdate map[string]models.Entity) {
	g := idx.current

	var (
		eboxes []string
		sboxes []string
	)
	for id, e := range toUpdate {
		idx.removeEntity(id)
		ext, ok := e.Extent(g)
		if !ok {
			continue
		}
		idx.entityBoxes[id] = boxOf(ext)
		eboxes = append(eboxes, id)

		s, ok := e.(models.Segmenter)
		if !ok {
			continue
		}
		segments := s.Segments(g)
		idx.entitySegments[id] = segments
		for _, seg := range segments {
			sext, ok := seg.Extent(g)
			if !ok {
				continue
			}
			idx.segmentBoxes[seg.ID] = boxOf(sext)
			idx.segments[seg.ID] = seg
			sboxes = append(sboxes, seg.ID)
		}
	}

	for _, id := range eboxes {
		b := idx.entityBoxes[id]
		idx.entityTree.Insert(b.min, b.max, id)
	}
	for _, id := range sboxes {
		b := idx.segmentBoxes[id]
		idx.segmentTree.Insert(b.min, b.max, id)
	}
	boxesLoaded.WithLabelValues("entity").Add(float64(len(eboxes)))
	boxesLoaded.WithLabelValues("segment").Add(float64(len(sboxes)))
	updateEntities.Observe(float64(len(toUpdate)))
}

// includeParents queues every indexed parent way and relation of e, all the
// way up, so their boxes are recomputed.
func (idx *Index) includeParents(e models.Entity, toUpdate map[string]models.Entity, seen map[string]bool) error {
	g := idx.current
	stack := []models.Entity{e}

	for len(stack) > 0 {
		entity := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[entity.ID()] {
			continue
		}
		seen[entity.ID()] = true

		ways, err := g.ParentWays(entity)
		if err != nil {
			return err
		}
		rels, err := g.ParentRelations(entity)
		if err != nil {
			return err
		}
		for _, parent := range slices.Concat(ways, rels) {
			if idx.Has(parent.ID()) {
				idx.removeEntity(parent.ID())
				toUpdate[parent.ID()] = parent
			}
			stack = append(stack, parent)
		}
	}
	return nil
}

// SetCurrentGraph makes g current and patches the boxes that changed
// between the old and new current graph. Tag-only edits touch nothing.
func (idx *Index) SetCurrentGraph(g *graph.Graph) error {
	if g == idx.current {
		return nil
	}

	diff := core.NewDifference(idx.current, g)
	idx.current = g

	changed := diff.DidChange()
	if !changed.Addition && !changed.Deletion && !changed.Geometry {
		return nil
	}

	toUpdate := make(map[string]models.Entity)
	seen := make(map[string]bool)

	if changed.Deletion {
		for _, e := range diff.Deleted() {
			idx.removeEntity(e.ID())
		}
	}

	if changed.Geometry {
		for _, e := range diff.Modified() {
			idx.removeEntity(e.ID())
			toUpdate[e.ID()] = e
			if err := idx.includeParents(e, toUpdate, seen); err != nil {
				return err
			}
		}
	}

	if changed.Addition {
		for _, e := range diff.Created() {
			toUpdate[e.ID()] = e
		}
	}

	idx.loadEntities(toUpdate)
	updatesTotal.WithLabelValues("graph").Inc()
	idx.logger.Debug("spatial index updated", "changes", diff.Len(), "reindexed", len(toUpdate))
	return nil
}

// Rebase indexes newly loaded entities without changing the current graph.
// Entities already indexed are skipped unless force is set; entities deleted
// in the current graph are never indexed.
func (idx *Index) Rebase(entities []models.Entity, force bool) error {
	g := idx.current
	toUpdate := make(map[string]models.Entity)
	seen := make(map[string]bool)

	for _, e := range entities {
		if e == nil || !e.Visible() {
			continue
		}
		id := e.ID()
		if g.IsDeleted(id) {
			continue
		}
		if idx.Has(id) && !force {
			continue
		}

		idx.removeEntity(id)
		toUpdate[id] = e
		if err := idx.includeParents(e, toUpdate, seen); err != nil {
			return err
		}
	}

	idx.loadEntities(toUpdate)
	updatesTotal.WithLabelValues("rebase").Inc()
	idx.logger.Debug("spatial index rebased", "entities", len(entities), "reindexed", len(toUpdate))
	return nil
}

// Intersects returns the entities of g whose boxes overlap extent, ordered by id.
func (idx *Index) Intersects(extent models.Extent, g *graph.Graph) ([]models.Entity, error) {
	if err := idx.SetCurrentGraph(g); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	lo, hi := extent.Bounds()
	idx.entityTree.Search(lo, hi, func(_, _ [2]float64, id string) bool {
		found[id] = struct{}{}
		return true
	})

	result := make([]models.Entity, 0, len(found))
	for _, id := range slices.Sorted(maps.Keys(found)) {
		e, err := g.Entity(id)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// WaySegments returns the way segments whose boxes overlap extent, ordered by id.
func (idx *Index) WaySegments(extent models.Extent, g *graph.Graph) ([]models.Segment, error) {
	if err := idx.SetCurrentGraph(g); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	lo, hi := extent.Bounds()
	idx.segmentTree.Search(lo, hi, func(_, _ [2]float64, id string) bool {
		found[id] = struct{}{}
		return true
	})

	result := make([]models.Segment, 0, len(found))
	for _, id := range slices.Sorted(maps.Keys(found)) {
		result = append(result, idx.segments[id])
	}
	return result, nil
}

// Package history keeps the undo/redo stack of edits on top of a shared base
// graph, together with the spatial index that answers queries against the
// current edit.
package history

import (
	"log/slog"
	"slices"
	"time"

	"github.com/kilupskalvis/geoedit/internal/core"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/kilupskalvis/geoedit/internal/spatial"
)

// customImagery is the imagery name of a user supplied source; it is never
// credited.
const customImagery = "Custom"

// Action derives a new graph from the current one.
type Action func(*graph.Graph) *graph.Graph

// Changes groups the entities of a difference by kind
type Changes struct {
	Modified []models.Entity
	Created  []models.Entity
	Deleted  []models.Entity
}

type checkpoint struct {
	stack []core.Edit
	index int
}

// History is an undo/redo stack of edits. The first edit holds the base graph
// and is never popped.
type History struct {
	stack       []core.Edit
	index       int
	tree        *spatial.Index
	checkpoints map[string]checkpoint

	imageryUsed []string
	photosUsed  []string
	transform   *core.Transform
	selectedIDs []string

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a History
type Option func(*History)

// WithLogger sets the logger used by the history and its spatial index
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) { h.logger = logger }
}

// WithClock sets the clock used to timestamp saved histories
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// New creates a history over an empty base graph.
func New(opts ...Option) *History {
	h := &History{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Reset()
	return h
}

// Reset drops every edit, checkpoint and loaded entity.
func (h *History) Reset() {
	base := graph.New()
	h.stack = []core.Edit{{Graph: base}}
	h.index = 0
	h.tree = spatial.New(base, spatial.WithLogger(h.logger))
	h.checkpoints = make(map[string]checkpoint)
}

// Graph returns the graph of the current edit
func (h *History) Graph() *graph.Graph { return h.stack[h.index].Graph }

// Base returns the unedited graph
func (h *History) Base() *graph.Graph { return h.stack[0].Graph }

// Tree returns the spatial index
func (h *History) Tree() *spatial.Index { return h.tree }

// Index returns the position of the current edit in the stack
func (h *History) Index() int { return h.index }

// Len returns the number of edits on the stack, the base included
func (h *History) Len() int { return len(h.stack) }

// Edit returns the current edit
func (h *History) Edit() core.Edit { return h.stack[h.index] }

// SetImageryUsed sets the imagery credited to the following edits
func (h *History) SetImageryUsed(sources []string) { h.imageryUsed = slices.Clone(sources) }

// SetPhotosUsed sets the photos credited to the following edits
func (h *History) SetPhotosUsed(sources []string) { h.photosUsed = slices.Clone(sources) }

// SetTransform sets the map view recorded with the following edits
func (h *History) SetTransform(t *core.Transform) { h.transform = t }

// SetSelectedIDs sets the selection recorded with the following edits
func (h *History) SetSelectedIDs(ids []string) { h.selectedIDs = slices.Clone(ids) }

// Merge loads freshly downloaded entities into the base graph and the spatial
// index. Every edit on the stack sees them afterwards. seenIDs lists every id
// the download contained, including ones already known; it defaults to the
// ids of entities.
func (h *History) Merge(entities []models.Entity, seenIDs []string) error {
	base := h.Base()
	if seenIDs == nil {
		seenIDs = make([]string, 0, len(entities))
		for _, e := range entities {
			if e != nil {
				seenIDs = append(seenIDs, e.ID())
			}
		}
	}

	fresh := 0
	for _, e := range entities {
		if e != nil && base.HasEntity(e.ID()) == nil {
			fresh++
		}
	}

	graphs := make([]*graph.Graph, len(h.stack))
	for i, edit := range h.stack {
		graphs[i] = edit.Graph
	}
	base.Rebase(entities, graphs, false)
	if err := h.tree.Rebase(entities, false); err != nil {
		return err
	}

	mergesTotal.Inc()
	h.logger.Debug("merged entities", "entities", len(entities), "new", fresh, "seen", len(seenIDs))
	return nil
}

func (h *History) act(annotation string, actions []Action) core.Edit {
	g := h.Graph()
	for _, fn := range actions {
		g = fn(g)
	}
	return core.Edit{
		Graph:       g,
		Annotation:  annotation,
		ImageryUsed: slices.Clone(h.imageryUsed),
		PhotosUsed:  slices.Clone(h.photosUsed),
		Transform:   h.transform,
		SelectedIDs: slices.Clone(h.selectedIDs),
	}
}

// push truncates the redo tail and appends edit. The stack is clipped first so
// checkpoints holding the old stack are not overwritten.
func (h *History) push(edit core.Edit) {
	h.stack = append(slices.Clip(h.stack[:h.index+1]), edit)
	h.index++
}

// Perform applies the actions to the current graph and pushes the result as a
// new edit, discarding anything that could have been redone. An empty
// annotation makes the edit transparent to undo and redo.
func (h *History) Perform(annotation string, actions ...Action) *core.Difference {
	previous := h.Graph()
	h.push(h.act(annotation, actions))
	editsTotal.WithLabelValues("perform").Inc()
	return h.change(previous)
}

// Replace applies the actions to the current graph and swaps the result in for
// the current edit.
func (h *History) Replace(annotation string, actions ...Action) *core.Difference {
	previous := h.Graph()
	edit := h.act(annotation, actions)
	h.stack = slices.Clone(h.stack)
	h.stack[h.index] = edit
	editsTotal.WithLabelValues("replace").Inc()
	return h.change(previous)
}

// Overwrite pops the current edit and performs the actions in its place.
func (h *History) Overwrite(annotation string, actions ...Action) *core.Difference {
	previous := h.Graph()
	if h.index > 0 {
		h.index--
	}
	h.push(h.act(annotation, actions))
	editsTotal.WithLabelValues("overwrite").Inc()
	return h.change(previous)
}

// Pop removes n edits from the top of the stack and steps the current edit
// back by as many, never past the base. A redo tail left by Undo is popped
// first. n < 1 pops one edit.
func (h *History) Pop(n int) *core.Difference {
	previous := h.Graph()
	if n < 1 {
		n = 1
	}
	for ; n > 0 && h.index > 0; n-- {
		h.index--
		h.stack = h.stack[:len(h.stack)-1]
	}
	h.stack = slices.Clip(h.stack)
	editsTotal.WithLabelValues("pop").Inc()
	return h.change(previous)
}

// Undo steps back to the previous annotated edit, or to the base.
func (h *History) Undo() *core.Difference {
	previous := h.Graph()
	for h.index > 0 {
		h.index--
		if h.stack[h.index].Annotated() {
			break
		}
	}
	editsTotal.WithLabelValues("undo").Inc()
	return h.change(previous)
}

// Redo steps forward to the next annotated edit. It does nothing if there is
// none.
func (h *History) Redo() *core.Difference {
	previous := h.Graph()
	for i := h.index + 1; i < len(h.stack); i++ {
		if h.stack[i].Annotated() {
			h.index = i
			break
		}
	}
	editsTotal.WithLabelValues("redo").Inc()
	return h.change(previous)
}

func (h *History) change(previous *graph.Graph) *core.Difference {
	return core.NewDifference(previous, h.Graph())
}

// UndoAnnotation returns the annotation Undo would revert, or "".
func (h *History) UndoAnnotation() string {
	for i := h.index; i >= 0; i-- {
		if h.stack[i].Annotated() {
			return h.stack[i].Annotation
		}
	}
	return ""
}

// RedoAnnotation returns the annotation Redo would restore, or "".
func (h *History) RedoAnnotation() string {
	for i := h.index + 1; i < len(h.stack); i++ {
		if h.stack[i].Annotated() {
			return h.stack[i].Annotation
		}
	}
	return ""
}

// PeekAnnotation returns the annotation of the current edit
func (h *History) PeekAnnotation() string { return h.stack[h.index].Annotation }

// PeekAllAnnotations returns the annotations up to the current edit, oldest first
func (h *History) PeekAllAnnotations() []string {
	var result []string
	for _, edit := range h.stack[:h.index+1] {
		if edit.Annotated() {
			result = append(result, edit.Annotation)
		}
	}
	return result
}

// Intersects returns the entities of the current graph whose boxes overlap
// extent.
func (h *History) Intersects(extent models.Extent) ([]models.Entity, error) {
	return h.tree.Intersects(extent, h.Graph())
}

// Difference returns the difference from the base to the current graph
func (h *History) Difference() *core.Difference {
	return core.NewDifference(h.Base(), h.Graph())
}

// Changes returns the changes from the base to the current graph, with action
// applied on top when it is not nil.
func (h *History) Changes(action Action) Changes {
	head := h.Graph()
	if action != nil {
		head = action(head)
	}
	d := core.NewDifference(h.Base(), head)
	return Changes{
		Modified: d.Modified(),
		Created:  d.Created(),
		Deleted:  d.Deleted(),
	}
}

// HasChanges returns true if the current graph differs from the base
func (h *History) HasChanges() bool {
	return h.Difference().Len() > 0
}

// ImageryUsed returns the imagery credited by the edits up to the current
// one, in first use order. Custom imagery is left out.
func (h *History) ImageryUsed() []string {
	return h.collect(func(e core.Edit) []string { return e.ImageryUsed }, customImagery)
}

// PhotosUsed returns the photos credited by the edits up to the current one,
// in first use order.
func (h *History) PhotosUsed() []string {
	return h.collect(func(e core.Edit) []string { return e.PhotosUsed })
}

func (h *History) collect(sources func(core.Edit) []string, exclude ...string) []string {
	seen := make(map[string]struct{})
	result := []string{}
	for _, edit := range h.stack[1 : h.index+1] {
		for _, s := range sources(edit) {
			if slices.Contains(exclude, s) {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			result = append(result, s)
		}
	}
	return result
}

// SetCheckpoint remembers the stack and position under key.
func (h *History) SetCheckpoint(key string) {
	h.checkpoints[key] = checkpoint{stack: slices.Clip(h.stack), index: h.index}
}

// ResetToCheckpoint restores the stack saved under key. ok is false when no
// such checkpoint exists.
func (h *History) ResetToCheckpoint(key string) (diff *core.Difference, ok bool) {
	cp, ok := h.checkpoints[key]
	if !ok {
		return nil, false
	}
	previous := h.Graph()
	h.stack = cp.stack
	h.index = cp.index
	return h.change(previous), true
}

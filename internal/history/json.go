package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/kilupskalvis/geoedit/internal/core"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
)

// Version is the saved history format written by ToJSON
const Version = 3

var (
	// ErrUnsupportedHistoryVersion is returned when restoring a format other
	// than version 2 or 3
	ErrUnsupportedHistoryVersion = errors.New("unsupported history version")

	// ErrNoChanges is returned when saving a history without changes
	ErrNoChanges = errors.New("history has no changes")
)

type document struct {
	Version      int                   `json:"version"`
	Entities     []models.EntityRecord `json:"entities"`
	BaseEntities []models.EntityRecord `json:"baseEntities,omitempty"`
	Stack        []stackItem           `json:"stack"`
	Index        int                   `json:"index"`
	Timestamp    int64                 `json:"timestamp"`
}

// stackItem is one saved edit. Modified lists content keys of
// document.Entities.
type stackItem struct {
	Modified    []string        `json:"modified,omitempty"`
	Deleted     []string        `json:"deleted,omitempty"`
	Annotation  string          `json:"annotation,omitempty"`
	ImageryUsed []string        `json:"imageryUsed,omitempty"`
	PhotosUsed  []string        `json:"photosUsed,omitempty"`
	Transform   *core.Transform `json:"transform,omitempty"`
	SelectedIDs []string        `json:"selectedIDs,omitempty"`
}

// ToJSON saves the whole stack. Alongside the edited entities it keeps the
// base versions of everything edited, with their child nodes and parent ways,
// so the edits can be restored before the area is downloaded again.
func (h *History) ToJSON() ([]byte, error) {
	if !h.HasChanges() {
		return nil, ErrNoChanges
	}

	var (
		entities []models.EntityRecord
		keys     = make(map[string]struct{})
		assigned = make(map[models.Entity]string)
		latest   = make(map[string]int)
		touched  []string
		seen     = make(map[string]struct{})
		stack    = make([]stackItem, 0, len(h.stack))
	)

	for _, edit := range h.stack {
		g := edit.Graph
		item := stackItem{
			Annotation:  edit.Annotation,
			ImageryUsed: edit.ImageryUsed,
			PhotosUsed:  edit.PhotosUsed,
			Transform:   edit.Transform,
			SelectedIDs: edit.SelectedIDs,
		}

		for _, id := range slices.Sorted(g.LocalIDs()) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				touched = append(touched, id)
			}

			e, _ := g.LocalEntity(id)
			if e == nil {
				item.Deleted = append(item.Deleted, id)
				continue
			}

			if key, ok := assigned[e]; ok {
				item.Modified = append(item.Modified, key)
				continue
			}

			rec, err := models.ToRecord(e)
			if err != nil {
				return nil, fmt.Errorf("save edit %q: %w", edit.Annotation, err)
			}
			// Separate edits can reach the same version of an id, e.g. move,
			// revert, move. The later entity is saved under a fresh version.
			key := models.EntityKey(e)
			if _, taken := keys[key]; taken {
				rec.V = latest[id] + 1
				key = id + "v" + strconv.Itoa(rec.V)
			}
			latest[id] = max(latest[id], rec.V)
			keys[key] = struct{}{}
			assigned[e] = key

			item.Modified = append(item.Modified, key)
			entities = append(entities, rec)
		}
		stack = append(stack, item)
	}

	baseEntities, err := h.originals(touched)
	if err != nil {
		return nil, err
	}

	return json.Marshal(document{
		Version:      Version,
		Entities:     entities,
		BaseEntities: baseEntities,
		Stack:        stack,
		Index:        h.index,
		Timestamp:    h.now().UnixMilli(),
	})
}

// originals collects the base versions of ids together with their child
// nodes and parent ways.
func (h *History) originals(ids []string) ([]models.EntityRecord, error) {
	base := h.Base()
	var (
		result []models.EntityRecord
		added  = make(map[string]struct{})
	)
	add := func(e models.Entity) error {
		if _, ok := added[e.ID()]; ok {
			return nil
		}
		added[e.ID()] = struct{}{}
		rec, err := models.ToRecord(e)
		if err != nil {
			return err
		}
		result = append(result, rec)
		return nil
	}

	for _, id := range ids {
		original := base.HasEntity(id)
		if original == nil {
			continue
		}
		if _, ok := added[id]; ok {
			continue
		}
		if err := add(original); err != nil {
			return nil, err
		}

		for _, childID := range models.NodeIDsOf(original) {
			if child := base.HasEntity(childID); child != nil {
				if err := add(child); err != nil {
					return nil, err
				}
			}
		}

		parents, err := base.ParentWays(original)
		if err != nil {
			return nil, fmt.Errorf("parents of %s: %w", id, err)
		}
		for _, parent := range parents {
			if err := add(parent); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// FromJSON replaces the stack with a saved one. Saved base entities are
// merged into the base graph and the spatial index, replacing any already
// loaded. A document that fails to decode or validate leaves the history
// unchanged; a failure while indexing the restored base entities leaves
// them merged into the base graph.
func (h *History) FromJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		restoresTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("decode history: %w", err)
	}
	if doc.Version != 2 && doc.Version != 3 {
		restoresTotal.WithLabelValues("unsupported").Inc()
		return fmt.Errorf("%w: %d", ErrUnsupportedHistoryVersion, doc.Version)
	}
	if len(doc.Stack) == 0 || doc.Index < 0 || doc.Index >= len(doc.Stack) {
		restoresTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("history index %d out of range for %d edits", doc.Index, len(doc.Stack))
	}

	modified := make(map[string]models.Entity, len(doc.Entities))
	for i, rec := range doc.Entities {
		e, err := rec.Entity()
		if err != nil {
			restoresTotal.WithLabelValues("invalid").Inc()
			return fmt.Errorf("history entity %d: %w", i, err)
		}
		modified[models.EntityKey(e)] = e
	}

	layers := make([]map[string]models.Entity, len(doc.Stack))
	for i, item := range doc.Stack[1:] {
		local := make(map[string]models.Entity, len(item.Modified)+len(item.Deleted))
		for _, key := range item.Modified {
			e, ok := modified[key]
			if !ok {
				restoresTotal.WithLabelValues("invalid").Inc()
				return fmt.Errorf("history edit %d: unknown entity %s", i+1, key)
			}
			local[e.ID()] = e
		}
		for _, id := range item.Deleted {
			local[id] = nil
		}
		layers[i+1] = local
	}

	var baseEntities []models.Entity
	if doc.Version >= 3 {
		for i, rec := range doc.BaseEntities {
			e, err := rec.Entity()
			if err != nil {
				restoresTotal.WithLabelValues("invalid").Inc()
				return fmt.Errorf("history base entity %d: %w", i, err)
			}
			baseEntities = append(baseEntities, e)
		}
	}

	base := h.Base()
	if len(baseEntities) > 0 {
		graphs := make([]*graph.Graph, len(h.stack))
		for i, edit := range h.stack {
			graphs[i] = edit.Graph
		}
		base.Rebase(baseEntities, graphs, true)
		if err := h.tree.Rebase(baseEntities, true); err != nil {
			return err
		}
	}

	stack := make([]core.Edit, len(doc.Stack))
	stack[0] = h.stack[0]
	for i, item := range doc.Stack[1:] {
		stack[i+1] = core.Edit{
			Graph:       base.Load(layers[i+1]),
			Annotation:  item.Annotation,
			ImageryUsed: item.ImageryUsed,
			PhotosUsed:  item.PhotosUsed,
			Transform:   item.Transform,
			SelectedIDs: item.SelectedIDs,
		}
	}

	h.stack = stack
	h.index = doc.Index
	if t := stack[h.index].Transform; t != nil {
		h.transform = t
	}

	restoresTotal.WithLabelValues("ok").Inc()
	h.logger.Debug("restored history",
		"version", doc.Version,
		"edits", len(stack)-1,
		"index", h.index,
		"base_entities", len(baseEntities))
	return nil
}

package core

import "github.com/kilupskalvis/geoedit/internal/graph"

// Transform is the map view at the time of an edit
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Edit is one entry of the undo/redo history: the graph after the edit and
// what the user saw and did to produce it. Edits are never modified after
// they are created.
type Edit struct {
	Graph       *graph.Graph
	Annotation  string
	ImageryUsed []string
	PhotosUsed  []string
	Transform   *Transform
	SelectedIDs []string
}

// Annotated returns true if the edit is an undo stop
func (e Edit) Annotated() bool {
	return e.Annotation != ""
}

package graph

import "github.com/kilupskalvis/geoedit/internal/models"

// Stats counts the entities of the base layer by kind
type Stats struct {
	Nodes          int `json:"nodes"`
	Ways           int `json:"ways"`
	Relations      int `json:"relations"`
	Points         int `json:"points"`
	Vertices       int `json:"vertices"`
	SharedVertices int `json:"shared_vertices"`
	Areas          int `json:"areas"`
	Multipolygons  int `json:"multipolygons"`
}

// Total returns the number of entities counted
func (s Stats) Total() int {
	return s.Nodes + s.Ways + s.Relations
}

// BaseStats counts the entities of the base layer. Geometry and sharing are
// read against g, so local edits to parent ways are taken into account.
func (g *Graph) BaseStats() (Stats, error) {
	var s Stats
	for _, e := range g.base.entities {
		switch e.Type() {
		case models.TypeNode:
			s.Nodes++
			if g.IsPoi(e) {
				s.Points++
				continue
			}
			s.Vertices++
			shared, err := g.IsShared(e)
			if err != nil {
				return s, err
			}
			if shared {
				s.SharedVertices++
			}
		case models.TypeWay:
			s.Ways++
		case models.TypeRelation:
			s.Relations++
			if models.IsMultipolygonEntity(e) {
				s.Multipolygons++
			}
		}
		if e.Geometry(g) == models.GeometryArea {
			s.Areas++
		}
	}
	return s, nil
}

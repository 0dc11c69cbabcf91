package core

import (
	"maps"
	"slices"
	"testing"

	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGraph creates a base graph with a residential street n1-n2-n3, a
// tagged crossing vertex n4 on a footway w2, a cafe poi n9, and a route
// relation r1 holding w1.
func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return graph.New(
		models.NewNode("n1", models.Loc{0, 0}, nil),
		models.NewNode("n2", models.Loc{1, 0}, nil),
		models.NewNode("n3", models.Loc{2, 0}, nil),
		models.NewNode("n4", models.Loc{1, 1}, models.Tags{"highway": "crossing"}),
		models.NewNode("n5", models.Loc{1, 2}, nil),
		models.NewNode("n9", models.Loc{9, 9}, models.Tags{"amenity": "cafe"}),
		models.NewWay("w1", []string{"n1", "n2", "n3"}, models.Tags{"highway": "residential"}),
		models.NewWay("w2", []string{"n4", "n5"}, models.Tags{"highway": "footway"}),
		models.NewRelation("r1", []models.Member{{ID: "w1", Type: models.TypeWay, Role: ""}}, models.Tags{"type": "route"}),
	)
}

func entity[T models.Entity](t *testing.T, g *graph.Graph, id string) T {
	t.Helper()
	e, err := g.Entity(id)
	require.NoError(t, err)
	typed, ok := e.(T)
	require.True(t, ok, "unexpected type for %s", id)
	return typed
}

func TestDifference_SameGraphIsEmpty(t *testing.T) {
	g := newTestGraph(t)
	head := g.Replace(models.NewNode("n10", models.Loc{5, 5}, nil))

	d := NewDifference(head, head)
	assert.Equal(t, 0, d.Len())
	assert.False(t, d.DidChange().Any())

	complete, err := d.Complete()
	require.NoError(t, err)
	assert.Empty(t, complete)

	summary, err := d.Summary()
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestDifference_Created(t *testing.T) {
	g := newTestGraph(t)
	n10 := models.NewNode("n10", models.Loc{5, 5}, nil)
	head := g.Replace(n10)

	d := NewDifference(g, head)

	assert.Equal(t, ChangeFlags{Addition: true}, d.DidChange())
	assert.Equal(t, []models.Entity{n10}, d.Created())
	assert.Empty(t, d.Modified())
	assert.Empty(t, d.Deleted())
	assert.Equal(t, Change{Head: n10}, d.Changes()["n10"])
}

func TestDifference_Deleted(t *testing.T) {
	g := newTestGraph(t)
	n9 := entity[*models.Node](t, g, "n9")
	head := g.Remove(n9)

	d := NewDifference(g, head)

	assert.Equal(t, ChangeFlags{Deletion: true}, d.DidChange())
	assert.Equal(t, []models.Entity{n9}, d.Deleted())
	assert.Empty(t, d.Created())
}

func TestDifference_MoveIsGeometry(t *testing.T) {
	g := newTestGraph(t)
	moved := entity[*models.Node](t, g, "n2").Move(models.Loc{1, -1})
	head := g.Replace(moved)

	d := NewDifference(g, head)

	assert.Equal(t, ChangeFlags{Geometry: true}, d.DidChange())
	assert.Equal(t, []models.Entity{moved}, d.Modified())
}

func TestDifference_RetagIsProperties(t *testing.T) {
	g := newTestGraph(t)
	retagged := entity[*models.Node](t, g, "n9").WithTags(models.Tags{"amenity": "pub"})
	head := g.Replace(retagged)

	d := NewDifference(g, head)

	assert.Equal(t, ChangeFlags{Properties: true}, d.DidChange())
	assert.Equal(t, []models.Entity{retagged}, d.Modified())
}

func TestDifference_NodeListIsGeometry(t *testing.T) {
	g := newTestGraph(t)
	w1 := entity[*models.Way](t, g, "w1").RemoveNode("n3")
	head := g.Replace(w1)

	d := NewDifference(g, head)
	assert.Equal(t, ChangeFlags{Geometry: true}, d.DidChange())
}

func TestDifference_MembersAreGeometryAndProperties(t *testing.T) {
	g := newTestGraph(t)
	r1 := entity[*models.Relation](t, g, "r1").AddMember(models.Member{ID: "w2", Type: models.TypeWay})
	head := g.Replace(r1)

	d := NewDifference(g, head)
	assert.Equal(t, ChangeFlags{Geometry: true, Properties: true}, d.DidChange())
}

func TestDifference_EqualCopyIsNotAChange(t *testing.T) {
	g := newTestGraph(t)
	n9 := entity[*models.Node](t, g, "n9")
	copied := n9.WithTags(n9.Tags().Clone())
	head := g.Replace(copied)

	d := NewDifference(g, head)
	assert.Equal(t, 0, d.Len())
}

func TestDifference_RevertedEditIsNotAChange(t *testing.T) {
	g := newTestGraph(t)
	n9 := entity[*models.Node](t, g, "n9")
	edited := g.Replace(n9.Move(models.Loc{8, 8}))
	head := edited.Revert("n9")

	d := NewDifference(g, head)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 1, NewDifference(edited, head).Len())
}

func TestDifference_DisjointEditsCombine(t *testing.T) {
	g := newTestGraph(t)
	moved := entity[*models.Node](t, g, "n1").Move(models.Loc{0, 1})
	retagged := entity[*models.Node](t, g, "n9").WithTags(nil)

	a := g.Replace(moved)
	ab := a.Replace(retagged)

	assert.Equal(t, []string{"n1"}, slices.Sorted(maps.Keys(NewDifference(g, a).Changes())))
	assert.Equal(t, []string{"n9"}, slices.Sorted(maps.Keys(NewDifference(a, ab).Changes())))
	assert.Equal(t, []string{"n1", "n9"}, slices.Sorted(maps.Keys(NewDifference(g, ab).Changes())))
}

func TestDifference_Complete_MovedVertexPullsParents(t *testing.T) {
	g := newTestGraph(t)
	moved := entity[*models.Node](t, g, "n2").Move(models.Loc{1, -1})
	head := g.Replace(moved)

	complete, err := NewDifference(g, head).Complete()
	require.NoError(t, err)

	assert.Equal(t, []string{"n2", "r1", "w1"}, slices.Sorted(maps.Keys(complete)))
	assert.Same(t, moved, complete["n2"])
}

func TestDifference_Complete_WayIncludesBaseAndHeadNodes(t *testing.T) {
	g := newTestGraph(t)
	n3 := entity[*models.Node](t, g, "n3")
	w1 := entity[*models.Way](t, g, "w1").RemoveNode("n3").AddNode("n5", -1)
	head := g.Update(func(b *graph.Builder) {
		b.Replace(w1)
		b.Remove(n3)
	})

	complete, err := NewDifference(g, head).Complete()
	require.NoError(t, err)

	assert.Equal(t, []string{"n1", "n2", "n3", "n5", "r1", "w1"}, slices.Sorted(maps.Keys(complete)))
	assert.Nil(t, complete["n3"])
}

func TestDifference_Complete_MultipolygonMembers(t *testing.T) {
	outer := models.NewWay("w1", []string{"n1", "n2", "n3", "n1"}, nil)
	mp := models.NewRelation("r1", []models.Member{
		{ID: "w1", Type: models.TypeWay, Role: "outer"},
		{ID: "w404", Type: models.TypeWay, Role: "inner"},
	}, models.Tags{"type": "multipolygon", "landuse": "grass"})
	g := graph.New(
		models.NewNode("n1", models.Loc{0, 0}, nil),
		models.NewNode("n2", models.Loc{1, 0}, nil),
		models.NewNode("n3", models.Loc{1, 1}, nil),
		outer, mp,
	)
	head := g.Replace(mp.WithTags(models.Tags{"type": "multipolygon", "landuse": "meadow"}))

	complete, err := NewDifference(g, head).Complete()
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "w1"}, slices.Sorted(maps.Keys(complete)))
	assert.NotContains(t, complete, "w404")
}

func TestDifference_Complete_RelationCycleTerminates(t *testing.T) {
	r1 := models.NewRelation("r1", []models.Member{
		{ID: "n1", Type: models.TypeNode},
		{ID: "r2", Type: models.TypeRelation},
	}, nil)
	r2 := models.NewRelation("r2", []models.Member{{ID: "r1", Type: models.TypeRelation}}, nil)
	n1 := models.NewNode("n1", models.Loc{0, 0}, nil)
	g := graph.New(n1, r1, r2)
	head := g.Replace(n1.Move(models.Loc{3, 3}))

	complete, err := NewDifference(g, head).Complete()
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "r1", "r2"}, slices.Sorted(maps.Keys(complete)))
}

package graph

import (
	"testing"

	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebase_SkipsKnownUnlessForced(t *testing.T) {
	n1 := node("n1", 0, 0)
	g := New(n1)
	moved := n1.Move(models.Loc{5, 5})

	g.Rebase([]models.Entity{moved}, []*Graph{g}, false)
	assert.Same(t, n1, g.HasEntity("n1"))

	g.Rebase([]models.Entity{moved}, []*Graph{g}, true)
	assert.Same(t, moved, g.HasEntity("n1"))
}

func TestRebase_Idempotent(t *testing.T) {
	n1, n2 := node("n1", 0, 0), node("n2", 1, 1)
	w1 := way("w1", "n1", "n2")
	entities := []models.Entity{n1, n2, w1}

	once := New()
	once.Rebase(entities, []*Graph{once}, false)

	twice := New()
	twice.Rebase(entities, []*Graph{twice}, false)
	version := twice.BaseVersion()
	twice.Rebase(entities, []*Graph{twice}, false)

	assert.Equal(t, once.base.entities, twice.base.entities)
	assert.Equal(t, once.base.parentWays, twice.base.parentWays)
	assert.Equal(t, once.base.parentRels, twice.base.parentRels)
	assert.Equal(t, version, twice.BaseVersion())
}

func TestRebase_VisibleToDerivedGraphs(t *testing.T) {
	g := New()
	derived := g.Replace(node("n9", 9, 9))
	n1 := node("n1", 0, 0)

	g.Rebase([]models.Entity{n1}, []*Graph{g, derived}, false)

	assert.Same(t, n1, derived.HasEntity("n1"))
	assert.Same(t, n1, g.HasEntity("n1"))
}

func TestRebase_RestoresNodeDeletedBeforeItsWayWasKnown(t *testing.T) {
	n1, n2 := node("n1", 0, 0), node("n2", 1, 0)
	g1 := New(n1, n2)
	g2 := g1.Remove(n2)
	require.True(t, g2.IsDeleted("n2"))

	w1 := way("w1", "n1", "n2")
	g1.Rebase([]models.Entity{w1}, []*Graph{g1, g2}, false)

	assert.False(t, g2.IsDeleted("n2"))
	assert.Same(t, n2, g2.HasEntity("n2"))
	parents, err := g2.ParentWays(n2)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids(parents))
}

func TestRebase_OnlyMostRecentDeletionTriggersRestore(t *testing.T) {
	n1, n2 := node("n1", 0, 0), node("n2", 1, 0)
	g1 := New(n1, n2)
	g2 := g1.Remove(n2)
	g3 := g2.Replace(n2)

	g1.Rebase([]models.Entity{way("w1", "n1", "n2")}, []*Graph{g1, g2, g3}, false)

	assert.True(t, g2.IsDeleted("n2"))
}

func TestRebase_ReconcilesLocalParentCaches(t *testing.T) {
	n1, n2 := node("n1", 0, 0), node("n2", 1, 0)
	w1 := way("w1", "n1", "n2")
	g1 := New(n1, n2, w1)
	g2 := g1.Replace(way("w2", "n2"))

	parents, err := g2.ParentWays(n2)
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2"}, ids(parents))

	g1.Rebase([]models.Entity{way("w3", "n2")}, []*Graph{g1, g2}, false)

	parents, err = g2.ParentWays(n2)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2", "w3"}, ids(parents))
}

func TestRebase_DoesNotResurrectLocallyEditedParent(t *testing.T) {
	n1 := node("n1", 0, 0)
	w1 := way("w1", "n1")
	g1 := New(n1)
	g2 := g1.Replace(w1)
	g3 := g2.Replace(w1.WithNodes(nil))

	g1.Rebase([]models.Entity{w1}, []*Graph{g1, g2, g3}, false)

	parents, err := g3.ParentWays(n1)
	require.NoError(t, err)
	assert.Empty(t, parents)

	parents, err = g2.ParentWays(n1)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids(parents))
}

func TestRebase_ReconcilesRelations(t *testing.T) {
	n1 := node("n1", 0, 0)
	r1 := models.NewRelation("r1", []models.Member{{ID: "n1"}}, nil)
	g1 := New(n1)
	g2 := g1.Replace(r1)

	r2 := models.NewRelation("r2", []models.Member{{ID: "n1"}}, nil)
	g1.Rebase([]models.Entity{r2}, []*Graph{g1, g2}, false)

	rels, err := g2.ParentRelations(n1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(rels))
}

func TestRebase_InvalidatesTransients(t *testing.T) {
	n1 := node("n1", 0, 0)
	g := New(n1)
	outside := g.Replace(node("n5", 5, 5))

	calls := 0
	fn := func() any { calls++; return calls }
	g.Transient(n1, "k", fn)
	outside.Transient(n1, "k", fn)
	require.Equal(t, 2, calls)

	g.Rebase([]models.Entity{node("n2", 1, 1)}, []*Graph{g}, false)

	assert.Equal(t, 3, g.Transient(n1, "k", fn))
	// Graphs outside the stack notice the new base version on their next read.
	assert.Equal(t, 4, outside.Transient(n1, "k", fn))
	assert.Equal(t, 4, outside.Transient(n1, "k", fn))
}

func TestRebase_GeometryFollowsNewParents(t *testing.T) {
	n1 := node("n1", 0, 0)
	g := New(n1)

	kind, err := g.Geometry("n1")
	require.NoError(t, err)
	require.Equal(t, models.GeometryPoint, kind)

	g.Rebase([]models.Entity{way("w1", "n1")}, []*Graph{g}, false)

	kind, err = g.Geometry("n1")
	require.NoError(t, err)
	assert.Equal(t, models.GeometryVertex, kind)
}

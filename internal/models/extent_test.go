package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtent(t *testing.T) {
	assert.True(t, NewExtent().IsEmpty())

	e := NewExtent(Loc{2, 3}, Loc{-1, 5})
	assert.Equal(t, Extent{Min: Loc{-1, 3}, Max: Loc{2, 5}}, e)
	assert.False(t, e.IsEmpty())
}

func TestExtent_Extend(t *testing.T) {
	e := NewExtent(Loc{0, 0})
	assert.Equal(t, e, e.Extend(NewExtent()))
	assert.Equal(t, Extent{Min: Loc{0, 0}, Max: Loc{4, 4}}, e.Extend(NewExtent(Loc{4, 4})))
}

func TestExtent_IntersectsAndContains(t *testing.T) {
	a := Extent{Min: Loc{0, 0}, Max: Loc{2, 2}}

	assert.True(t, a.Intersects(Extent{Min: Loc{2, 2}, Max: Loc{3, 3}}), "touching corners")
	assert.False(t, a.Intersects(Extent{Min: Loc{2.1, 0}, Max: Loc{3, 1}}))
	assert.True(t, a.Contains(Extent{Min: Loc{0.5, 0.5}, Max: Loc{1, 1}}))
	assert.False(t, a.Contains(Extent{Min: Loc{1, 1}, Max: Loc{3, 1}}))
}

func TestParseExtent(t *testing.T) {
	e, err := ParseExtent("0, 1,2.5,3")
	require.NoError(t, err)
	assert.Equal(t, Extent{Min: Loc{0, 1}, Max: Loc{2.5, 3}}, e)

	for _, s := range []string{"", "1,2,3", "a,0,1,1", "2,0,1,1", "0,2,1,1", "NaN,0,1,1", "0,0,Inf,1", "-inf,0,1,1"} {
		_, err := ParseExtent(s)
		assert.Error(t, err, s)
	}
}

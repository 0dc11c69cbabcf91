package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Loc is a [lon, lat] coordinate pair
type Loc [2]float64

// Extent is an axis-aligned bounding box
type Extent struct {
	Min Loc
	Max Loc
}

// NewExtent returns an extent covering the given locations. With no
// locations it returns an empty extent that Extend can grow.
func NewExtent(locs ...Loc) Extent {
	e := Extent{
		Min: Loc{math.Inf(1), math.Inf(1)},
		Max: Loc{math.Inf(-1), math.Inf(-1)},
	}
	for _, l := range locs {
		e = e.ExtendLoc(l)
	}
	return e
}

// IsEmpty returns true if the extent covers nothing
func (e Extent) IsEmpty() bool {
	return e.Min[0] > e.Max[0] || e.Min[1] > e.Max[1]
}

// ExtendLoc returns an extent grown to include l
func (e Extent) ExtendLoc(l Loc) Extent {
	return Extent{
		Min: Loc{math.Min(e.Min[0], l[0]), math.Min(e.Min[1], l[1])},
		Max: Loc{math.Max(e.Max[0], l[0]), math.Max(e.Max[1], l[1])},
	}
}

// Extend returns an extent grown to include other
func (e Extent) Extend(other Extent) Extent {
	if other.IsEmpty() {
		return e
	}
	return e.ExtendLoc(other.Min).ExtendLoc(other.Max)
}

// Intersects returns true if the two extents overlap or touch
func (e Extent) Intersects(other Extent) bool {
	return e.Min[0] <= other.Max[0] && e.Max[0] >= other.Min[0] &&
		e.Min[1] <= other.Max[1] && e.Max[1] >= other.Min[1]
}

// Contains returns true if other lies entirely inside e
func (e Extent) Contains(other Extent) bool {
	return e.Min[0] <= other.Min[0] && e.Max[0] >= other.Max[0] &&
		e.Min[1] <= other.Min[1] && e.Max[1] >= other.Max[1]
}

// Bounds returns the min and max corners in the form the rectangle tree uses.
func (e Extent) Bounds() (min, max [2]float64) {
	return e.Min, e.Max
}

// ParseExtent parses "minx,miny,maxx,maxy"
func ParseExtent(s string) (Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Extent{}, fmt.Errorf("invalid bbox %q: expected minx,miny,maxx,maxy", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Extent{}, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Extent{}, fmt.Errorf("invalid bbox %q: coordinates must be finite", s)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return Extent{}, fmt.Errorf("invalid bbox %q: min greater than max", s)
	}
	return Extent{Min: Loc{v[0], v[1]}, Max: Loc{v[2], v[3]}}, nil
}

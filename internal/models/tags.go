package models

import (
	"maps"
	"strings"
)

// Tags are the key/value attributes of an entity
type Tags map[string]string

// Equal compares two tag sets by value
func (t Tags) Equal(other Tags) bool {
	return maps.Equal(t, other)
}

// Clone returns a copy of the tags
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}

var uninterestingTags = map[string]bool{
	"attribution": true,
	"created_by":  true,
	"source":      true,
	"odbl":        true,
}

// HasInterestingTags returns true if any tag carries meaning on its own
func HasInterestingTags(tags Tags) bool {
	for k := range tags {
		if uninterestingTags[k] || strings.HasPrefix(k, "tiger:") {
			continue
		}
		return true
	}
	return false
}

var areaKeys = map[string]bool{
	"area":     true,
	"amenity":  true,
	"building": true,
	"landuse":  true,
	"leisure":  true,
	"natural":  true,
	"place":    true,
}

// isAreaTags decides whether a closed way is drawn as an area
func isAreaTags(tags Tags) bool {
	if v, ok := tags["area"]; ok {
		return v == "yes"
	}
	for k, v := range tags {
		if areaKeys[k] && v != "no" {
			return true
		}
	}
	return false
}

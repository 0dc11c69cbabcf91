// Package models defines the map entities stored by the graph: nodes, ways
// and relations, plus the geometry helpers they need.
package models

import "strconv"

// EntityType tags the kind of an entity
type EntityType string

const (
	TypeNode     EntityType = "node"
	TypeWay      EntityType = "way"
	TypeRelation EntityType = "relation"
)

// GeometryKind is how an entity is drawn
type GeometryKind string

const (
	GeometryPoint    GeometryKind = "point"
	GeometryVertex   GeometryKind = "vertex"
	GeometryLine     GeometryKind = "line"
	GeometryArea     GeometryKind = "area"
	GeometryRelation GeometryKind = "relation"
)

// Entity is a node, way or relation. Entities are values: an edit produces a
// new Entity rather than changing an existing one.
type Entity interface {
	ID() string
	Type() EntityType
	Tags() Tags
	Visible() bool
	Geometry(r Resolver) GeometryKind
	// Extent returns false when the entity has no resolvable location.
	Extent(r Resolver) (Extent, bool)
}

// Resolver is the read side of a graph that entities need to compute
// derived values.
type Resolver interface {
	HasEntity(id string) Entity
	IsPoi(e Entity) bool
	Transient(e Entity, key string, fn func() any) any
}

// Located is implemented by entities with a single location.
type Located interface {
	Loc() Loc
}

// NodeLister is implemented by entities with an ordered node list.
type NodeLister interface {
	NodeIDs() []string
}

// MemberLister is implemented by entities with a member list.
type MemberLister interface {
	Members() []Member
}

// Segmenter is implemented by line-like entities that can be split into
// per-edge segments for the segment index.
type Segmenter interface {
	Segments(r Resolver) []Segment
}

// Multipolygon reports whether a relation is a multipolygon.
type Multipolygon interface {
	IsMultipolygon() bool
}

// Member is one entry of a relation's member list
type Member struct {
	ID   string     `json:"id"`
	Type EntityType `json:"type"`
	Role string     `json:"role"`
}

// IsMultipolygonEntity returns true for multipolygon relations
func IsMultipolygonEntity(e Entity) bool {
	mp, ok := e.(Multipolygon)
	return ok && mp.IsMultipolygon()
}

// NodeIDsOf returns the node list of a way-like entity, or nil.
func NodeIDsOf(e Entity) []string {
	if nl, ok := e.(NodeLister); ok {
		return nl.NodeIDs()
	}
	return nil
}

// MemberIDsOf returns the member ids of a relation-like entity in order,
// including duplicates.
func MemberIDsOf(e Entity) []string {
	ml, ok := e.(MemberLister)
	if !ok {
		return nil
	}
	members := ml.Members()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// EntityKey returns the content key of an entity, used to deduplicate entity
// versions in a saved history.
func EntityKey(e Entity) string {
	if v, ok := e.(interface{ Version() int }); ok {
		return e.ID() + "v" + strconv.Itoa(v.Version())
	}
	return e.ID() + "v0"
}

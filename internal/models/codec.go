package models

import (
	"encoding/json"
	"fmt"
	"io"
)

// EntityRecord is the JSON form of an entity
type EntityRecord struct {
	Type    EntityType `json:"type"`
	ID      string     `json:"id"`
	Loc     *Loc       `json:"loc,omitempty"`
	Nodes   []string   `json:"nodes,omitempty"`
	Members []Member   `json:"members,omitempty"`
	Tags    Tags       `json:"tags,omitempty"`
	Visible *bool      `json:"visible,omitempty"`
	V       int        `json:"v,omitempty"`
}

// Document is a file of entities
type Document struct {
	Entities []EntityRecord `json:"entities"`
}

// ToRecord converts an entity into its JSON form
func ToRecord(e Entity) (EntityRecord, error) {
	rec := EntityRecord{Type: e.Type(), ID: e.ID(), Tags: e.Tags()}
	if !e.Visible() {
		hidden := false
		rec.Visible = &hidden
	}
	switch v := e.(type) {
	case *Node:
		loc := v.loc
		rec.Loc = &loc
		rec.V = v.version
	case *Way:
		rec.Nodes = v.nodes
		rec.V = v.version
	case *Relation:
		rec.Members = v.members
		rec.V = v.version
	default:
		return EntityRecord{}, fmt.Errorf("unsupported entity %s of type %T", e.ID(), e)
	}
	return rec, nil
}

// Entity builds the entity described by the record
func (r EntityRecord) Entity() (Entity, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("entity record without id")
	}
	visible := r.Visible == nil || *r.Visible

	switch r.Type {
	case TypeNode:
		if r.Loc == nil {
			return nil, fmt.Errorf("node %s: missing loc", r.ID)
		}
		return &Node{id: r.ID, loc: *r.Loc, tags: r.Tags, visible: visible, version: r.V}, nil
	case TypeWay:
		return &Way{id: r.ID, nodes: r.Nodes, tags: r.Tags, visible: visible, version: r.V}, nil
	case TypeRelation:
		return &Relation{id: r.ID, members: r.Members, tags: r.Tags, visible: visible, version: r.V}, nil
	default:
		return nil, fmt.Errorf("entity %s: unknown type %q", r.ID, r.Type)
	}
}

// MarshalEntity encodes a single entity
func MarshalEntity(e Entity) ([]byte, error) {
	rec, err := ToRecord(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalEntity decodes a single entity
func UnmarshalEntity(data []byte) (Entity, error) {
	var rec EntityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return rec.Entity()
}

// DecodeEntities reads a Document and returns its entities in file order
func DecodeEntities(r io.Reader) ([]Entity, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	entities := make([]Entity, 0, len(doc.Entities))
	for i, rec := range doc.Entities {
		e, err := rec.Entity()
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

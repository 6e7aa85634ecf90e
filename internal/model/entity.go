package model

import (
	"fmt"
	"slices"
)

// ─── Field kinds ────────────────────────────────────────────

// FieldKind is the primitive storage kind of an entity field.
type FieldKind string

// Allowed FieldKind values.
const (
	KindString     FieldKind = "string"
	KindInteger    FieldKind = "integer"
	KindFloat      FieldKind = "float"
	KindBoolean    FieldKind = "boolean"
	KindDate       FieldKind = "date"
	KindDateTime   FieldKind = "datetime"
	KindDuration   FieldKind = "duration"
	KindIdentifier FieldKind = "identifier"
	KindChoice     FieldKind = "choice"
	KindBinary     FieldKind = "binary"
)

// IsValid returns true if the FieldKind is one of the known values.
func (k FieldKind) IsValid() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindBoolean, KindDate, KindDateTime,
		KindDuration, KindIdentifier, KindChoice, KindBinary:
		return true
	}
	return false
}

func (k FieldKind) String() string { return string(k) }

// Direction tells whether a relationship is owned by the entity declaring it.
type Direction string

// Allowed Direction values.
const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
)

// IsValid returns true if the Direction is one of the known values.
func (d Direction) IsValid() bool { return d == Forward || d == Reverse }

// Cardinality is the number of related records a relationship can hold.
type Cardinality string

// Allowed Cardinality values.
const (
	One  Cardinality = "one"
	Many Cardinality = "many"
)

// IsValid returns true if the Cardinality is one of the known values.
func (c Cardinality) IsValid() bool { return c == One || c == Many }

// ─── Descriptors ────────────────────────────────────────────

// Choice is a single allowed value of a choice-set field.
type Choice struct {
	Value string `yaml:"value" json:"value" validate:"required"`
	Label string `yaml:"label" json:"label,omitempty"`
}

// Field describes a scalar attribute of an entity.
type Field struct {
	Name       string    `yaml:"name" json:"name" validate:"required"`
	Kind       FieldKind `yaml:"kind" json:"kind" validate:"required"`
	Nullable   bool      `yaml:"nullable" json:"nullable,omitempty"`
	HasDefault bool      `yaml:"default" json:"default,omitempty"`
	Primary    bool      `yaml:"primary" json:"primary,omitempty"`
	Choices    []Choice  `yaml:"choices" json:"choices,omitempty" validate:"dive"`
}

// HasChoices reports whether the field is restricted to a choice set.
func (f Field) HasChoices() bool { return len(f.Choices) > 0 }

// Relationship describes a navigable link from one entity to another.
//
// Forward relationships store the reference on the declaring entity (foreign key,
// one-to-one, or owned many-to-many). Reverse relationships are the inbound view of a
// forward relationship on Target, named by Inverse.
type Relationship struct {
	Name        string      `yaml:"name" json:"name" validate:"required"`
	Direction   Direction   `yaml:"direction" json:"direction" validate:"required"`
	Target      string      `yaml:"target" json:"target" validate:"required"`
	Cardinality Cardinality `yaml:"cardinality" json:"cardinality" validate:"required"`
	Inverse     string      `yaml:"inverse" json:"inverse,omitempty"`
}

// IsReverse reports whether the relationship is derived from another entity's reference.
func (r Relationship) IsReverse() bool { return r.Direction == Reverse }

// IsMany reports whether the relationship holds a collection.
func (r Relationship) IsMany() bool { return r.Cardinality == Many }

// Entity is a named record type with its fields and relationships.
type Entity struct {
	Name          string         `yaml:"name" json:"name" validate:"required"`
	Group         string         `yaml:"group" json:"group,omitempty"`
	Fields        []Field        `yaml:"fields" json:"fields" validate:"dive"`
	Relationships []Relationship `yaml:"relationships" json:"relationships,omitempty" validate:"dive"`
}

// Field returns the named field.
func (e *Entity) Field(name string) (Field, bool) {
	i := slices.IndexFunc(e.Fields, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return e.Fields[i], true
}

// Relationship returns the named relationship.
func (e *Entity) Relationship(name string) (Relationship, bool) {
	i := slices.IndexFunc(e.Relationships, func(r Relationship) bool { return r.Name == name })
	if i < 0 {
		return Relationship{}, false
	}
	return e.Relationships[i], true
}

// PrimaryField returns the identifier field, falling back to a field named "id".
func (e *Entity) PrimaryField() (Field, bool) {
	for _, f := range e.Fields {
		if f.Primary {
			return f, true
		}
	}
	return e.Field("id")
}

// PrimaryName returns the name of the identifier field ("id" when none is declared).
func (e *Entity) PrimaryName() string {
	if f, ok := e.PrimaryField(); ok {
		return f.Name
	}
	return "id"
}

// ─── Introspection ──────────────────────────────────────────

// Introspector supplies entity metadata. Implementations are read once per build.
type Introspector interface {
	EntityNames() []string
	Fields(entity string) ([]Field, error)
	Relationships(entity string) ([]Relationship, error)
}

// Describe reads a full Entity from an Introspector.
func Describe(src Introspector, name string) (*Entity, error) {
	fields, err := src.Fields(name)
	if err != nil {
		return nil, fmt.Errorf("read fields of %s: %w", name, err)
	}
	rels, err := src.Relationships(name)
	if err != nil {
		return nil, fmt.Errorf("read relationships of %s: %w", name, err)
	}
	return &Entity{Name: name, Fields: fields, Relationships: rels}, nil
}

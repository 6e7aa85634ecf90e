// Package introspect provides a model.Introspector backed by a declarative YAML model
// file.
package introspect

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

// ErrUnknownEntity is returned for an entity name absent from the model.
var ErrUnknownEntity = errors.New("unknown entity")

type document struct {
	Entities []model.Entity `yaml:"entities" validate:"dive"`
}

// Model is an in-memory entity model. It is immutable after construction.
type Model struct {
	order    []string
	entities map[string]*model.Entity
}

// LoadFile reads and validates a model file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML model document.
func Parse(data []byte) (*Model, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate model: %w", err)
	}
	return New(doc.Entities)
}

// New builds a Model from entity descriptors, checking kinds and relationship targets.
func New(entities []model.Entity) (*Model, error) {
	m := &Model{entities: make(map[string]*model.Entity, len(entities))}
	for i := range entities {
		e := entities[i]
		if _, dup := m.entities[e.Name]; dup {
			return nil, fmt.Errorf("entity %s declared twice", e.Name)
		}
		m.entities[e.Name] = &e
		m.order = append(m.order, e.Name)
	}
	for _, name := range m.order {
		if err := m.check(m.entities[name]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) check(e *model.Entity) error {
	seen := make(map[string]bool)
	for _, f := range e.Fields {
		if seen[f.Name] {
			return fmt.Errorf("entity %s: duplicate member %s", e.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Kind.IsValid() {
			return fmt.Errorf("entity %s field %s: invalid kind %q", e.Name, f.Name, f.Kind)
		}
		if f.HasChoices() && f.Kind != model.KindChoice {
			return fmt.Errorf("entity %s field %s: choices on %s field", e.Name, f.Name, f.Kind)
		}
	}
	for _, r := range e.Relationships {
		if seen[r.Name] {
			return fmt.Errorf("entity %s: duplicate member %s", e.Name, r.Name)
		}
		seen[r.Name] = true
		if !r.Direction.IsValid() {
			return fmt.Errorf("entity %s relationship %s: invalid direction %q", e.Name, r.Name, r.Direction)
		}
		if !r.Cardinality.IsValid() {
			return fmt.Errorf("entity %s relationship %s: invalid cardinality %q", e.Name, r.Name, r.Cardinality)
		}
		target, ok := m.entities[r.Target]
		if !ok {
			return fmt.Errorf("entity %s relationship %s: %w %s", e.Name, r.Name, ErrUnknownEntity, r.Target)
		}
		if !r.IsReverse() {
			continue
		}
		if r.Inverse == "" {
			return fmt.Errorf("entity %s relationship %s: reverse relationship needs inverse", e.Name, r.Name)
		}
		inv, ok := target.Relationship(r.Inverse)
		if !ok || inv.IsReverse() || inv.Target != e.Name {
			return fmt.Errorf("entity %s relationship %s: inverse %s.%s is not a forward relationship to %s",
				e.Name, r.Name, r.Target, r.Inverse, e.Name)
		}
	}
	return nil
}

// EntityNames returns entity names in declaration order.
func (m *Model) EntityNames() []string {
	return append([]string(nil), m.order...)
}

// Fields returns the fields of an entity.
func (m *Model) Fields(entity string) ([]model.Field, error) {
	e, ok := m.entities[entity]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownEntity, entity)
	}
	return append([]model.Field(nil), e.Fields...), nil
}

// Relationships returns the relationships of an entity.
func (m *Model) Relationships(entity string) ([]model.Relationship, error) {
	e, ok := m.entities[entity]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownEntity, entity)
	}
	return append([]model.Relationship(nil), e.Relationships...), nil
}

// Group returns the group an entity was declared in, if any.
func (m *Model) Group(entity string) string {
	if e, ok := m.entities[entity]; ok {
		return e.Group
	}
	return ""
}

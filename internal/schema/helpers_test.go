package schema

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/introspect"
	"github.com/couchcryptid/crudgen-api/internal/model"
)

const shopModel = `
entities:
  - name: Category
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: name, kind: string}
    relationships:
      - {name: parent, direction: forward, target: Category, cardinality: one}
      - {name: items, direction: reverse, target: Item, cardinality: many, inverse: category}
  - name: Item
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: name, kind: string}
      - name: status
        kind: choice
        default: true
        choices:
          - {value: draft, label: Draft}
          - {value: live, label: Live}
      - {name: price, kind: float, nullable: true}
      - {name: created_at, kind: datetime}
    relationships:
      - {name: category, direction: forward, target: Category, cardinality: one}
      - {name: tags, direction: forward, target: Tag, cardinality: many}
  - name: Tag
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: label, kind: string}
    relationships:
      - {name: items, direction: reverse, target: Item, cardinality: many, inverse: tags}
`

const orderModel = `
entities:
  - name: Order
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: number, kind: string}
    relationships:
      - {name: customer, direction: forward, target: Customer, cardinality: one}
  - name: Customer
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: email, kind: string}
    relationships:
      - {name: address, direction: forward, target: Address, cardinality: one}
  - name: Address
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: city, kind: string}
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// allFields returns a config exposing every field and including the given relationships.
func allFields(rels ...string) entityconfig.EntityConfig {
	cfg := entityconfig.EntityConfig{
		Fields:        entityconfig.FieldsConfig{Include: entityconfig.FieldSet{All: true}},
		Relationships: map[string]entityconfig.RelationshipConfig{},
	}
	for _, r := range rels {
		cfg.Relationships[r] = entityconfig.RelationshipConfig{Include: true}
	}
	return cfg
}

func configSet(configs map[string]entityconfig.EntityConfig) *entityconfig.Set {
	set := &entityconfig.Set{Configs: map[string]entityconfig.EntityConfig{}}
	for name, cfg := range configs {
		cfg.Model = name
		set.Configs[name] = cfg
		set.Order = append(set.Order, name)
	}
	return set
}

func generate(t *testing.T, modelYAML string, configs map[string]entityconfig.EntityConfig, opts ...func(*Options)) *Build {
	t.Helper()
	m, err := introspect.Parse([]byte(modelYAML))
	require.NoError(t, err)
	o := Options{Logger: discardLogger()}
	for _, fn := range opts {
		fn(&o)
	}
	return Generate(m, configSet(configs), o)
}

func shopConfigs() map[string]entityconfig.EntityConfig {
	return map[string]entityconfig.EntityConfig{
		"Category": allFields("parent", "items"),
		"Item":     allFields("category", "tags"),
		"Tag":      allFields("items"),
	}
}

func fieldTypes(d *TypeDescriptor) map[string]string {
	out := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Name] = f.Type.String()
	}
	return out
}

func fieldNames(d *TypeDescriptor) []string {
	out := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		out = append(out, f.Name)
	}
	return out
}

func mustType(t *testing.T, b *Build, name string) *TypeDescriptor {
	t.Helper()
	d, ok := b.Registry.Lookup(name)
	require.True(t, ok, "type %s not registered", name)
	return d
}

var shopRelation = model.Relationship{Name: "next", Direction: model.Forward, Target: "Node", Cardinality: model.One}

package graph

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/introspect"
	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/schema"
	"github.com/couchcryptid/crudgen-api/internal/store"
)

const catalogModel = `
entities:
  - name: Category
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: name, kind: string}
    relationships:
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
    relationships:
      - {name: category, direction: forward, target: Category, cardinality: one}
      - {name: tags, direction: forward, target: Tag, cardinality: many}
  - name: Tag
    fields:
      - {name: id, kind: identifier, primary: true}
      - {name: label, kind: string}
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func include(rels ...string) entityconfig.EntityConfig {
	cfg := entityconfig.EntityConfig{
		Fields:        entityconfig.FieldsConfig{Include: entityconfig.FieldSet{All: true}},
		Relationships: map[string]entityconfig.RelationshipConfig{},
	}
	for _, r := range rels {
		cfg.Relationships[r] = entityconfig.RelationshipConfig{Include: true}
	}
	return cfg
}

func catalogConfigs() map[string]entityconfig.EntityConfig {
	return map[string]entityconfig.EntityConfig{
		"Category": include("items"),
		"Item":     include("category", "tags"),
		"Tag":      include(),
	}
}

// withNested enables nested creation (and optionally updates) on one relationship.
func withNested(cfg entityconfig.EntityConfig, rel string, updates bool) entityconfig.EntityConfig {
	rc := cfg.Relationships[rel]
	rc.NestedCreation = entityconfig.NestedPolicy{Enabled: true}
	rc.NestedUpdates = entityconfig.NestedPolicy{Enabled: updates}
	cfg.Relationships[rel] = rc
	return cfg
}

func buildCatalog(t *testing.T, configs map[string]entityconfig.EntityConfig) *schema.Build {
	t.Helper()
	m, err := introspect.Parse([]byte(catalogModel))
	require.NoError(t, err)
	set := &entityconfig.Set{Configs: map[string]entityconfig.EntityConfig{}}
	for _, name := range []string{"Category", "Item", "Tag"} {
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		cfg.Model = name
		set.Configs[name] = cfg
		set.Order = append(set.Order, name)
	}
	b := schema.Generate(m, set, schema.Options{Logger: discardLogger()})
	require.Empty(t, b.Problems)
	return b
}

func newExecutable(t *testing.T, configs map[string]entityconfig.EntityConfig, data model.DataAccess) *Executable {
	t.Helper()
	exe, err := NewExecutable(buildCatalog(t, configs), data, Options{
		MaxPageSize:    20,
		MaxNestedItems: 5,
		Logger:         discardLogger(),
	})
	require.NoError(t, err)
	return exe
}

// run executes query and fails the test on GraphQL errors.
func run(t *testing.T, exe *Executable, query string, vars map[string]any) map[string]any {
	t.Helper()
	res := exe.Execute(context.Background(), query, "", vars)
	require.Empty(t, res.Errors, "query returned errors")
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func runErr(t *testing.T, exe *Executable, query string) []string {
	t.Helper()
	res := exe.Execute(context.Background(), query, "", nil)
	require.NotEmpty(t, res.Errors, "expected errors")
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func seed(t *testing.T, data model.DataAccess, entity string, fields map[string]any) string {
	t.Helper()
	rec, err := data.Create(context.Background(), entity, fields)
	require.NoError(t, err)
	return rec.ID
}

func stored(t *testing.T, data model.DataAccess, entity, id string) model.Record {
	t.Helper()
	rec, err := data.Get(context.Background(), entity, id)
	require.NoError(t, err)
	return rec
}

func count(t *testing.T, data model.DataAccess, entity string) int {
	t.Helper()
	recs, err := data.List(context.Background(), entity, 0)
	require.NoError(t, err)
	return len(recs)
}

// countingData counts Get calls.
type countingData struct {
	model.DataAccess
	gets atomic.Int32
}

func (c *countingData) Get(ctx context.Context, entity, id string) (model.Record, error) {
	c.gets.Add(1)
	return c.DataAccess.Get(ctx, entity, id)
}

// countingLists counts List calls.
type countingLists struct {
	*store.Memory
	lists atomic.Int32
}

func (c *countingLists) List(ctx context.Context, entity string, limit int) ([]model.Record, error) {
	c.lists.Add(1)
	return c.Memory.List(ctx, entity, limit)
}

// rejectingData fails every write with a constraint violation.
type rejectingData struct {
	*store.Memory
}

func (r rejectingData) Create(_ context.Context, entity string, _ map[string]any) (model.Record, error) {
	return model.Record{}, &model.ConstraintError{Entity: entity, Message: "duplicate name"}
}

func (r rejectingData) Delete(_ context.Context, entity, _ string) error {
	return &model.ConstraintError{Entity: entity, Message: "still referenced"}
}

package generator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crudgen-api/internal/config"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

const testModel = `
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
    relationships:
      - {name: category, direction: forward, target: Category, cardinality: one}
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fixture(t *testing.T) Source {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "model.yml"), testModel)
	writeFile(t, filepath.Join(root, "gql_config", "shop", "defaults.yml"), `
fields:
  include: all
`)
	writeFile(t, filepath.Join(root, "gql_config", "shop", "category.yml"), `
model: Category
relationships:
  items: {include: true}
`)
	writeFile(t, filepath.Join(root, "gql_config", "shop", "item.yml"), `
model: Item
relationships:
  category: {include: true, nested_creation: true}
`)
	return Source{
		ModelFile: filepath.Join(root, "model.yml"),
		ConfigDir: filepath.Join(root, "gql_config"),
	}
}

func TestBuild_GeneratesConfiguredEntities(t *testing.T) {
	m := observability.NewTestMetrics()
	b, err := New(fixture(t), discardLogger(), m).Build()

	require.NoError(t, err)
	assert.Empty(t, b.Problems)
	assert.Equal(t, []string{"Category", "Item"}, b.Entities)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaBuildsTotal.WithLabelValues("ok")), 0)
}

func TestBuild_ConfigProblemsArePartial(t *testing.T) {
	src := fixture(t)
	writeFile(t, filepath.Join(src.ConfigDir, "shop", "tag.yml"), "model: Tag\nfields: [unclosed\n")
	m := observability.NewTestMetrics()

	b, err := New(src, discardLogger(), m).Build()

	require.NoError(t, err)
	assert.NotEmpty(t, b.Problems)
	assert.Equal(t, []string{"Category", "Item"}, b.Entities)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaBuildsTotal.WithLabelValues("partial")), 0)
}

func TestBuild_MissingModelFile(t *testing.T) {
	src := fixture(t)
	src.ModelFile = filepath.Join(t.TempDir(), "missing.yml")
	m := observability.NewTestMetrics()

	_, err := New(src, discardLogger(), m).Build()

	require.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SchemaBuildsTotal.WithLabelValues("error")), 0)
}

func TestBuild_NilMetrics(t *testing.T) {
	_, err := New(fixture(t), nil, nil).Build()
	require.NoError(t, err)
}

func TestWatchDirs(t *testing.T) {
	src := fixture(t)
	dirs, err := New(src, discardLogger(), nil).WatchDirs()

	require.NoError(t, err)
	assert.Equal(t, []string{src.ConfigDir, filepath.Join(src.ConfigDir, "shop")}, dirs)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		ModelFile:       "m.yml",
		ConfigDir:       "cfg",
		EntityGroups:    []string{"shop"},
		CutPolicy:       "closing_edge",
		DefaultPageSize: 25,
	}
	src, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, schema.CutClosingEdge, src.CutPolicy)
	assert.Equal(t, 25, src.DefaultPageSize)
	assert.Equal(t, []string{"shop"}, src.Groups)

	cfg.CutPolicy = "sideways"
	_, err = FromConfig(cfg)
	require.Error(t, err)
}

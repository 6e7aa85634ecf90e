//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/crudgen-api/internal/database"
	"github.com/couchcryptid/crudgen-api/internal/generator"
	"github.com/couchcryptid/crudgen-api/internal/graph"
	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/schema"
	"github.com/couchcryptid/crudgen-api/internal/store"
	"github.com/stretchr/testify/require"
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

var catalogFragments = map[string]string{
	"defaults.yml": "fields:\n  include: all\n",
	"category.yml": "model: Category\nrelationships:\n  items: {include: true}\n",
	"item.yml": `model: Item
relationships:
  category: {include: true, nested_creation: true}
  tags: {include: true}
`,
	"tag.yml": "model: Tag\n",
}

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildCatalog writes the catalog model and config group to a temp dir and generates
// the schema from disk the way the server does.
func buildCatalog(t *testing.T) *schema.Build {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "model.yml"), []byte(catalogModel), 0o600))
	shop := filepath.Join(root, "gql_config", "shop")
	require.NoError(t, os.MkdirAll(shop, 0o755))
	for name, content := range catalogFragments {
		require.NoError(t, os.WriteFile(filepath.Join(shop, name), []byte(content), 0o600))
	}

	b, err := generator.New(generator.Source{
		ModelFile: filepath.Join(root, "model.yml"),
		ConfigDir: filepath.Join(root, "gql_config"),
	}, discardLogger(), nil).Build()
	require.NoError(t, err)
	require.Empty(t, b.Problems)
	return b
}

// setupStore starts Postgres, runs migrations and registers cleanup.
func setupStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	dsn, pg := startPostgres(ctx, t)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	require.NoError(t, database.RunMigrations(dsn))

	pool, err := database.NewPool(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return store.New(pool, observability.NewTestMetrics())
}

func newHandler(t *testing.T, data model.DataAccess, opts graph.HandlerOptions) *graph.Handler {
	t.Helper()
	exe, err := graph.NewExecutable(buildCatalog(t), data, graph.Options{Logger: discardLogger()})
	require.NoError(t, err)
	opts.Logger = discardLogger()
	return graph.NewHandler(exe, opts)
}

func startGraphQLServer(t *testing.T, h *graph.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.Create(ctx, "Category", map[string]any{"name": "Tools"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Tools", created.Fields["name"])

	got, err := m.Get(ctx, "Category", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := m.Update(ctx, "Category", created.ID, map[string]any{"description": "hand tools"})
	require.NoError(t, err)
	assert.Equal(t, "Tools", updated.Fields["name"])
	assert.Equal(t, "hand tools", updated.Fields["description"])

	require.NoError(t, m.Delete(ctx, "Category", created.ID))
	_, err = m.Get(ctx, "Category", created.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "Item", "missing")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Item", nf.Entity)
	assert.Equal(t, "missing", nf.ID)

	_, err = m.Update(ctx, "Item", "missing", map[string]any{"name": "x"})
	require.ErrorIs(t, err, model.ErrNotFound)
	require.ErrorIs(t, m.Delete(ctx, "Item", "missing"), model.ErrNotFound)
}

func TestMemory_ListKeepsInsertionOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rec, err := m.Create(ctx, "Tag", map[string]any{"name": name})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	all, err := m.List(ctx, "Tag", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, rec := range all {
		assert.Equal(t, ids[i], rec.ID)
	}

	page, err := m.List(ctx, "Tag", 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	empty, err := m.List(ctx, "Unknown", 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemory_ListBy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	one, _ := m.Create(ctx, "Item", map[string]any{"category": "c1"})
	_, _ = m.Create(ctx, "Item", map[string]any{"category": "c2"})
	many, _ := m.Create(ctx, "Item", map[string]any{"tags": []string{"t1", "t2"}})
	anyList, _ := m.Create(ctx, "Item", map[string]any{"tags": []any{"t2"}})

	byCategory, err := m.ListBy(ctx, "Item", "category", "c1", 0)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, one.ID, byCategory[0].ID)

	byTag, err := m.ListBy(ctx, "Item", "tags", "t2", 0)
	require.NoError(t, err)
	require.Len(t, byTag, 2)
	assert.Equal(t, many.ID, byTag[0].ID)
	assert.Equal(t, anyList.ID, byTag[1].ID)

	limited, err := m.ListBy(ctx, "Item", "tags", "t2", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, _ := m.Create(ctx, "Item", map[string]any{"tags": []string{"t1"}})

	rec.Fields["tags"].([]string)[0] = "changed"
	rec.Fields["name"] = "changed"

	got, err := m.Get(ctx, "Item", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.Fields["tags"])
	assert.NotContains(t, got.Fields, "name")
}

func TestMemory_UpdateNilClearsField(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, _ := m.Create(ctx, "Item", map[string]any{"category": "c1"})

	updated, err := m.Update(ctx, "Item", rec.ID, map[string]any{"category": nil})
	require.NoError(t, err)
	assert.Empty(t, updated.RelatedIDs("category"))

	matches, err := m.ListBy(ctx, "Item", "category", "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemory_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := m.Create(ctx, "Tag", map[string]any{})
			assert.NoError(t, err)
			mu.Lock()
			seen[rec.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
)

func TestOutput_ShopTypes(t *testing.T) {
	b := generate(t, shopModel, shopConfigs())

	assert.Equal(t, map[string]string{
		"id":         "ID!",
		"name":       "String!",
		"status":     "ItemStatusEnum!",
		"price":      "Float",
		"created_at": "String!",
		"category":   "CategoryType",
		"tags":       "[TagType!]!",
	}, fieldTypes(mustType(t, b, "ItemType")))

	assert.Equal(t, []string{"id", "name"}, fieldNames(mustType(t, b, "CategoryType")))
	assert.Equal(t, []string{"id", "label"}, fieldNames(mustType(t, b, "TagType")))
}

func TestOutput_SelfReferenceTerminates(t *testing.T) {
	b := generate(t, shopModel, shopConfigs())

	assert.True(t, b.Cuts.Has("Category", "parent"))
	category := mustType(t, b, "CategoryType")
	_, ok := category.Field("parent")
	assert.False(t, ok)

	// Following relationship fields from any output type never revisits a type.
	var walk func(idx int, seen map[int]bool)
	walk = func(idx int, seen map[int]bool) {
		require.False(t, seen[idx], "type %s revisited", b.Registry.At(idx).Name)
		seen[idx] = true
		for _, f := range b.Registry.At(idx).Fields {
			if f.Relation != nil {
				walk(f.Type.Index, seen)
			}
		}
		delete(seen, idx)
	}
	for _, name := range b.Entities {
		d, _ := b.Registry.Output(name)
		walk(d.Index, map[int]bool{})
	}
}

func TestOutput_MutualReferenceKeepsOneDirection(t *testing.T) {
	b := generate(t, shopModel, shopConfigs())

	item := mustType(t, b, "ItemType")
	category := mustType(t, b, "CategoryType")
	_, itemToCategory := item.Field("category")
	_, categoryToItems := category.Field("items")

	assert.True(t, itemToCategory)
	assert.False(t, categoryToItems)
	assert.True(t, b.Cuts.Has("Category", "items"))
	assert.False(t, b.Cuts.Has("Item", "category"))
}

func TestOutput_ClosingEdgePolicyKeepsReverse(t *testing.T) {
	configs := map[string]entityconfig.EntityConfig{
		"Category": allFields("items"),
		"Item":     allFields("category"),
	}
	b := generate(t, shopModel, configs, func(o *Options) { o.CutPolicy = CutClosingEdge })

	_, itemToCategory := mustType(t, b, "ItemType").Field("category")
	items, categoryToItems := mustType(t, b, "CategoryType").Field("items")

	assert.False(t, itemToCategory)
	require.True(t, categoryToItems)
	assert.Equal(t, "[ItemType!]!", items.Type.String())
}

func TestOutput_FieldSelection(t *testing.T) {
	item := allFields()
	item.Fields.Exclude = entityconfig.FieldSet{Names: []string{"price", "created_at"}}
	tag := entityconfig.EntityConfig{Fields: entityconfig.FieldsConfig{
		Include: entityconfig.FieldSet{Names: []string{"label"}},
	}}
	hidden := entityconfig.EntityConfig{Fields: entityconfig.FieldsConfig{
		Include: entityconfig.FieldSet{Names: []string{"name"}},
		Exclude: entityconfig.FieldSet{Names: []string{"id"}},
	}}

	b := generate(t, shopModel, map[string]entityconfig.EntityConfig{"Item": item, "Tag": tag, "Category": hidden})

	assert.Equal(t, []string{"id", "name", "status"}, fieldNames(mustType(t, b, "ItemType")))
	assert.Equal(t, []string{"id", "label"}, fieldNames(mustType(t, b, "TagType")), "identifier is kept unless excluded")
	assert.Equal(t, []string{"name"}, fieldNames(mustType(t, b, "CategoryType")))
}

func TestOutput_UnconfiguredTargetSkipped(t *testing.T) {
	b := generate(t, shopModel, map[string]entityconfig.EntityConfig{"Item": allFields("category", "tags")})

	assert.Equal(t, []string{"Item"}, b.Entities)
	_, ok := mustType(t, b, "ItemType").Field("category")
	assert.False(t, ok)
	_, ok = b.Registry.Output("Category")
	assert.False(t, ok)
}

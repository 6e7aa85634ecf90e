package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFieldKindIsValid(t *testing.T) {
	valid := []model.FieldKind{
		model.KindString, model.KindInteger, model.KindFloat, model.KindBoolean,
		model.KindDate, model.KindDateTime, model.KindDuration, model.KindIdentifier,
		model.KindChoice, model.KindBinary,
	}
	for _, k := range valid {
		assert.True(t, k.IsValid(), "expected %q to be valid", k)
	}
	for _, k := range []model.FieldKind{"", "STRING", "uuid"} {
		assert.False(t, k.IsValid(), "expected %q to be invalid", k)
	}
}

func TestEntityLookups(t *testing.T) {
	e := &model.Entity{
		Name: "Item",
		Fields: []model.Field{
			{Name: "pk", Kind: model.KindIdentifier, Primary: true},
			{Name: "name", Kind: model.KindString},
		},
		Relationships: []model.Relationship{
			{Name: "category", Direction: model.Forward, Target: "Category", Cardinality: model.One},
		},
	}

	f, ok := e.Field("name")
	assert.True(t, ok)
	assert.Equal(t, model.KindString, f.Kind)

	_, ok = e.Field("missing")
	assert.False(t, ok)

	r, ok := e.Relationship("category")
	assert.True(t, ok)
	assert.False(t, r.IsReverse())
	assert.False(t, r.IsMany())

	assert.Equal(t, "pk", e.PrimaryName())
	assert.Equal(t, "id", (&model.Entity{Name: "Bare"}).PrimaryName())
}

func TestRecordRelatedIDs(t *testing.T) {
	r := model.Record{ID: "1", Fields: map[string]any{
		"one":   "a",
		"many":  []string{"b", "c"},
		"json":  []any{"d", 3, "e"},
		"empty": "",
	}}

	assert.Equal(t, []string{"a"}, r.RelatedIDs("one"))
	assert.Equal(t, []string{"b", "c"}, r.RelatedIDs("many"))
	assert.Equal(t, []string{"d", "e"}, r.RelatedIDs("json"))
	assert.Nil(t, r.RelatedIDs("empty"))
	assert.Nil(t, r.RelatedIDs("absent"))
}

func TestErrorsMatchSentinels(t *testing.T) {
	nf := fmt.Errorf("get: %w", &model.NotFoundError{Entity: "Item", ID: "42"})
	assert.True(t, errors.Is(nf, model.ErrNotFound))
	assert.True(t, model.IsNotFound(nf))
	assert.Contains(t, nf.Error(), `Item "42" not found`)

	cause := errors.New("duplicate key")
	ce := &model.ConstraintError{Entity: "Tag", Cause: cause}
	assert.True(t, errors.Is(ce, model.ErrConstraint))
	assert.True(t, errors.Is(ce, cause))
	assert.False(t, model.IsNotFound(ce))
}

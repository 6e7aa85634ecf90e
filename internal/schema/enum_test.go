package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

func TestEnumKey(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"draft", "DRAFT"},
		{"in-review", "IN_REVIEW"},
		{"1st", "_1ST"},
		{"a b.c", "A_B_C"},
		{"already_OK", "ALREADY_OK"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, EnumKey(tt.value))
		})
	}
}

func TestEnumName(t *testing.T) {
	assert.Equal(t, "ItemStatusEnum", EnumName("Item", "status"))
	assert.Equal(t, "OrderPaymentStateEnum", EnumName("Order", "payment_state"))
}

func TestEnum_CollisionsAndRawValues(t *testing.T) {
	c := newBuildContext(discardLogger())
	f := model.Field{Name: "kind", Kind: model.KindChoice, Choices: []model.Choice{
		{Value: "a-b", Label: "dash"},
		{Value: "a_b", Label: "underscore"},
		{Value: "A B", Label: "space"},
	}}

	d := c.enum("Thing", f)

	assert.Equal(t, KindEnum, d.Kind)
	assert.Equal(t, []EnumValue{
		{Key: "A_B", Value: "a-b", Label: "dash"},
		{Key: "A_B_2", Value: "a_b", Label: "underscore"},
		{Key: "A_B_3", Value: "A B", Label: "space"},
	}, d.Values)
}

func TestEnum_CachedByName(t *testing.T) {
	c := newBuildContext(discardLogger())
	f := model.Field{Name: "status", Kind: model.KindChoice, Choices: []model.Choice{{Value: "x"}}}

	first := c.enum("Item", f)
	second := c.enum("Item", f)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.registry.Len())
}

func TestScalarFor(t *testing.T) {
	tests := map[model.FieldKind]string{
		model.KindString:     ScalarString,
		model.KindInteger:    ScalarInt,
		model.KindFloat:      ScalarFloat,
		model.KindBoolean:    ScalarBoolean,
		model.KindDate:       ScalarString,
		model.KindDateTime:   ScalarString,
		model.KindDuration:   ScalarString,
		model.KindIdentifier: ScalarID,
		model.KindBinary:     ScalarString,
		model.KindChoice:     ScalarString,
	}
	for kind, want := range tests {
		assert.Equal(t, want, ScalarFor(kind), kind.String())
	}
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterOnce(t *testing.T) {
	r := NewRegistry()

	a, created := r.Register(&TypeDescriptor{Name: "AType", Kind: KindOutput})
	require.True(t, created)
	assert.Equal(t, 0, a.Index)

	again, created := r.Register(&TypeDescriptor{Name: "AType", Kind: KindInput})
	assert.False(t, created)
	assert.Same(t, a, again)
	assert.Equal(t, KindOutput, again.Kind)

	b, _ := r.Register(&TypeDescriptor{Name: "BType"})
	assert.Equal(t, 1, b.Index)
	assert.Same(t, b, r.At(1))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_FrozenRejectsWrites(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	assert.True(t, r.Frozen())
	assert.Panics(t, func() { r.Register(&TypeDescriptor{Name: "X"}) })
}

func TestTypeRef_String(t *testing.T) {
	assert.Equal(t, "ID", scalarRef(ScalarID).String())
	assert.Equal(t, "ID!", scalarRef(ScalarID).required().String())
	assert.Equal(t, "[ID!]", idRef(true).String())
	assert.Equal(t, "[ItemType!]!", TypeRef{Name: "ItemType", Index: 3}.listOf().required().String())
}

func TestBuildContext_ReentryIsDeferred(t *testing.T) {
	c := newBuildContext(discardLogger())
	require.NoError(t, c.begin("ItemNestedInput"))
	assert.ErrorIs(t, c.begin("ItemNestedInput"), ErrTypeBuildDeferred)
	c.end("ItemNestedInput")
	assert.NoError(t, c.begin("ItemNestedInput"))
}

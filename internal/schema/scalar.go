package schema

import (
	"iter"
	"maps"
	"slices"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

// ScalarFor maps a field kind to a built-in scalar. Temporal kinds and binary data
// travel as strings.
func ScalarFor(kind model.FieldKind) string {
	switch kind {
	case model.KindInteger:
		return ScalarInt
	case model.KindFloat:
		return ScalarFloat
	case model.KindBoolean:
		return ScalarBoolean
	case model.KindIdentifier:
		return ScalarID
	default:
		return ScalarString
	}
}

// fieldRef returns the nullable type of a scalar field, synthesizing its enum when the
// field carries a choice set.
func (c *BuildContext) fieldRef(entity string, f model.Field) TypeRef {
	if f.Kind == model.KindChoice && f.HasChoices() {
		return typeRef(c.enum(entity, f))
	}
	return scalarRef(ScalarFor(f.Kind))
}

func sortedKeys[V any](m map[string]V) iter.Seq[string] {
	return slices.Values(slices.Sorted(maps.Keys(m)))
}

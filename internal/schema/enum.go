package schema

import (
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

// EnumName returns the enum type name for a choice field.
func EnumName(entity, field string) string {
	return entity + inflect.Camelize(field) + "Enum"
}

// enum returns the enum descriptor of a choice field, registering it on first use.
func (c *BuildContext) enum(entity string, f model.Field) *TypeDescriptor {
	name := EnumName(entity, f.Name)
	if d, ok := c.registry.Lookup(name); ok {
		return d
	}
	d := &TypeDescriptor{Name: name, Kind: KindEnum, Entity: entity, Values: enumValues(f.Choices)}
	d, _ = c.registry.Register(d)
	return d
}

func enumValues(choices []model.Choice) []EnumValue {
	used := make(map[string]bool, len(choices))
	out := make([]EnumValue, 0, len(choices))
	for _, ch := range choices {
		key := EnumKey(ch.Value)
		unique := key
		for n := 2; used[unique]; n++ {
			unique = key + "_" + strconv.Itoa(n)
		}
		used[unique] = true
		out = append(out, EnumValue{Key: unique, Value: ch.Value, Label: ch.Label})
	}
	return out
}

// EnumKey sanitizes a choice value into an enum member name: upper case, every
// character outside [A-Z0-9_] replaced by an underscore, and a leading digit prefixed.
func EnumKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(value) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	key := b.String()
	if key == "" || (key[0] >= '0' && key[0] <= '9') {
		key = "_" + key
	}
	return key
}

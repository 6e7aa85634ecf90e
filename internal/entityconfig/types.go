// Package entityconfig loads per-entity generation settings from groups of YAML/JSON
// fragments and merges them over each group's defaults.
package entityconfig

import (
	"maps"
	"slices"
)

// DefaultMaxDepth bounds nested input recursion when a relationship does not set max_depth.
const DefaultMaxDepth = 1

// FieldSet is either an explicit list of field names or the "all" marker.
type FieldSet struct {
	All   bool     `mapstructure:"all"`
	Names []string `mapstructure:"names"`
}

// IsEmpty reports whether nothing was listed.
func (s FieldSet) IsEmpty() bool { return !s.All && len(s.Names) == 0 }

// Has reports whether name is covered by the set.
func (s FieldSet) Has(name string) bool { return s.All || slices.Contains(s.Names, name) }

// FieldsConfig selects which scalar fields take part in generated types.
type FieldsConfig struct {
	Include  FieldSet `mapstructure:"include"`
	Exclude  FieldSet `mapstructure:"exclude"`
	ReadOnly FieldSet `mapstructure:"read_only"`
}

// Allows reports whether a field is exposed at all. An empty include list means every
// field; exclude is applied after include and always wins.
func (c FieldsConfig) Allows(name string) bool {
	if c.Exclude.Has(name) {
		return false
	}
	return c.Include.IsEmpty() || c.Include.Has(name)
}

// Writable reports whether a field may appear in input types.
func (c FieldsConfig) Writable(name string) bool {
	return c.Allows(name) && !c.ReadOnly.Has(name)
}

// NestedPolicy controls whether a relationship accepts nested payloads. The detailed
// form may carry Fields and Relationships that replace the target entity's own settings
// along this nesting path.
type NestedPolicy struct {
	Enabled       bool                          `mapstructure:"enabled"`
	Fields        *FieldsConfig                 `mapstructure:"fields"`
	Relationships map[string]RelationshipConfig `mapstructure:"relationships" validate:"omitempty,dive"`
	// PK lists lookup fields for payloads along this path. Decode folds it into the
	// owning relationship's PK.
	PK []string `mapstructure:"pk"`
}

// HasOverride reports whether the policy replaces any of the target's settings.
func (p NestedPolicy) HasOverride() bool {
	return p.Fields != nil || p.Relationships != nil
}

// RelationshipConfig is the per-relationship section of an entity fragment.
type RelationshipConfig struct {
	Include        bool         `mapstructure:"include"`
	ReadOnly       bool         `mapstructure:"read_only"`
	NestedCreation NestedPolicy `mapstructure:"nested_creation"`
	NestedUpdates  NestedPolicy `mapstructure:"nested_updates"`
	MaxDepth       *int         `mapstructure:"max_depth" validate:"omitempty,gte=0,lte=10"`
	PK             []string     `mapstructure:"pk"`
	PKLookupFields []string     `mapstructure:"pk_lookup_fields"`
}

// Depth returns max_depth or DefaultMaxDepth.
func (r RelationshipConfig) Depth() int {
	if r.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return *r.MaxDepth
}

// Writable reports whether the relationship appears in input types.
func (r RelationshipConfig) Writable() bool { return r.Include && !r.ReadOnly }

// EntityConfig is the merged configuration of one entity.
type EntityConfig struct {
	Model         string                        `mapstructure:"model"`
	Group         string                        `mapstructure:"-"`
	Fields        FieldsConfig                  `mapstructure:"fields"`
	Relationships map[string]RelationshipConfig `mapstructure:"relationships" validate:"omitempty,dive"`
}

// Relationship returns the settings of the named relationship.
func (c EntityConfig) Relationship(name string) (RelationshipConfig, bool) {
	r, ok := c.Relationships[name]
	return r, ok
}

// IncludedRelationships returns the names of included relationships in sorted order.
func (c EntityConfig) IncludedRelationships() []string {
	var names []string
	for name, r := range c.Relationships {
		if r.Include {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// WithOverride returns a copy of c with the policy's fields and relationships applied.
func (c EntityConfig) WithOverride(p NestedPolicy) EntityConfig {
	out := c
	if p.Fields != nil {
		out.Fields = *p.Fields
	}
	if p.Relationships != nil {
		out.Relationships = maps.Clone(p.Relationships)
	}
	return out
}

package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"

	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/model"
)

var errNotGenerated = errors.New("entity is not generated")

type inputMode int

const (
	createMode inputMode = iota
	updateMode
)

func (m inputMode) policy(rc entityconfig.RelationshipConfig) entityconfig.NestedPolicy {
	if m == updateMode {
		return rc.NestedUpdates
	}
	return rc.NestedCreation
}

// NestedInputName returns the nested input name for a target entity. The suffix tells
// apart update payloads, the remaining depth budget when above one, and the shape
// supplied by a parent's override or lookup list.
func NestedInputName(target string, update bool, remaining int, rc entityconfig.RelationshipConfig, policy entityconfig.NestedPolicy) string {
	var parts []string
	if update {
		parts = append(parts, "U")
	}
	if remaining > 1 {
		parts = append(parts, "D"+strconv.Itoa(remaining))
	}
	if policy.HasOverride() || len(rc.PK) > 0 {
		parts = append(parts, shapeHash(rc.PK, policy))
	}
	name := target + "NestedInput"
	if len(parts) > 0 {
		name += "_" + strings.Join(parts, "_")
	}
	return name
}

func shapeHash(pk []string, policy entityconfig.NestedPolicy) string {
	// json.Marshal sorts map keys, which makes the encoding canonical.
	data, _ := json.Marshal(struct {
		PK            []string
		Fields        *entityconfig.FieldsConfig
		Relationships map[string]entityconfig.RelationshipConfig
	}{pk, policy.Fields, policy.Relationships})
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64(data)))
}

// buildInputs registers the create and update inputs of an entity.
func (c *BuildContext) buildInputs(e *model.Entity) error {
	cfg := c.configs[e.Name]

	create := &TypeDescriptor{Name: InputName(e.Name), Kind: KindInput, Entity: e.Name}
	create.Fields = append(create.Fields, c.inputScalars(e, cfg.Fields, true)...)
	create.Fields = append(create.Fields, c.inputRelations(e, cfg, createMode, 0, 0)...)
	if len(create.Fields) == 0 {
		return &InvalidTypeError{Type: create.Name, Reason: "no writable fields"}
	}

	update := &TypeDescriptor{Name: UpdateInputName(e.Name), Kind: KindUpdateInput, Entity: e.Name}
	update.Fields = append(update.Fields, FieldDef{Name: e.PrimaryName(), Type: scalarRef(ScalarID).required()})
	update.Fields = append(update.Fields, c.inputScalars(e, cfg.Fields, false)...)
	update.Fields = append(update.Fields, c.inputRelations(e, cfg, updateMode, 0, 0)...)

	c.registry.Register(create)
	c.registry.Register(update)
	return nil
}

// inputScalars returns the writable scalar fields. With required set, a field is
// non-null when it is neither nullable nor defaulted.
func (c *BuildContext) inputScalars(e *model.Entity, fc entityconfig.FieldsConfig, required bool) []FieldDef {
	pk := e.PrimaryName()
	var out []FieldDef
	for _, f := range e.Fields {
		if f.Primary || f.Name == pk || !fc.Writable(f.Name) {
			continue
		}
		ref := c.fieldRef(e.Name, f)
		if required && !f.Nullable && !f.HasDefault {
			ref = ref.required()
		}
		out = append(out, FieldDef{Name: f.Name, Type: ref})
	}
	return out
}

// inputRelations returns the writable relationship fields of an input. level is zero for
// the top-level inputs; below it, remaining is the depth budget of the enclosing nested
// input.
func (c *BuildContext) inputRelations(e *model.Entity, cfg entityconfig.EntityConfig, mode inputMode, level, remaining int) []FieldDef {
	var out []FieldDef
	for _, r := range e.Relationships {
		rc, ok := cfg.Relationships[r.Name]
		if !ok || !rc.Writable() {
			continue
		}
		rel := r
		def := FieldDef{Name: r.Name, Type: idRef(r.IsMany()), Relation: &rel}
		policy := mode.policy(rc)
		if r.IsReverse() || !policy.Enabled || !c.generated(r.Target) {
			out = append(out, def)
			continue
		}

		budget := rc.Depth()
		if level > 0 {
			budget = min(remaining-1, budget)
			if c.cuts.Has(e.Name, r.Name) {
				budget = 0
			}
		}
		if budget <= 0 {
			out = append(out, def)
			continue
		}

		nested, err := c.nestedInput(r.Target, rc, policy, mode, budget, level+1)
		if err != nil {
			if errors.Is(err, ErrTypeBuildDeferred) {
				c.logger.Debug("nested input deferred, accepting identifiers",
					"entity", e.Name, "relationship", r.Name)
			} else {
				c.report(fmt.Errorf("nested input %s.%s: %w", e.Name, r.Name, err))
			}
			out = append(out, def)
			continue
		}
		def.Type = typeRef(nested)
		if r.IsMany() {
			def.Type = def.Type.listOf()
		}
		def.Nested = true
		def.UpdateNested = rc.NestedUpdates.Enabled
		out = append(out, def)
	}
	return out
}

// nestedInput returns the nested input for target, building it on first request. The
// parent's detailed policy replaces the target's own fields and relationships along this
// path.
func (c *BuildContext) nestedInput(target string, rc entityconfig.RelationshipConfig, policy entityconfig.NestedPolicy, mode inputMode, remaining, level int) (*TypeDescriptor, error) {
	te := c.entities[target]
	cfg, ok := c.configs[target]
	if te == nil || !ok {
		return nil, fmt.Errorf("nested input for %s: %w", target, errNotGenerated)
	}

	name := NestedInputName(target, mode == updateMode, remaining, rc, policy)
	if d, ok := c.registry.Lookup(name); ok {
		return d, nil
	}
	if err := c.begin(name); err != nil {
		return nil, err
	}
	defer c.end(name)

	if policy.HasOverride() {
		cfg = cfg.WithOverride(policy)
		if policy.Relationships != nil {
			c.checkRelationships(te, cfg.Relationships, name)
		}
	}

	d := &TypeDescriptor{Name: name, Kind: KindNestedInput, Entity: target, Depth: level}
	pk := te.PrimaryName()
	lookup := rc.PK
	if len(lookup) == 0 {
		lookup = []string{pk}
	}
	for _, key := range lo.Uniq(lookup) {
		if key == pk {
			d.Fields = append(d.Fields, FieldDef{Name: key, Type: scalarRef(ScalarID)})
			d.Lookup = append(d.Lookup, key)
			continue
		}
		f, ok := te.Field(key)
		if !ok {
			c.report(&UnknownFieldError{Entity: target, Field: key, Path: name})
			continue
		}
		d.Fields = append(d.Fields, FieldDef{Name: key, Type: c.fieldRef(target, f)})
		d.Lookup = append(d.Lookup, key)
	}
	for _, f := range c.inputScalars(te, cfg.Fields, false) {
		if !lo.Contains(d.Lookup, f.Name) {
			d.Fields = append(d.Fields, f)
		}
	}
	d.Fields = append(d.Fields, c.inputRelations(te, cfg, mode, level, remaining)...)

	registered, _ := c.registry.Register(d)
	return registered, nil
}

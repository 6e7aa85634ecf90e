package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/schema"
)

// reverseAssignment is a reverse relationship value applied once the owning record
// has been written.
type reverseAssignment struct {
	def   schema.FieldDef
	value any
}

// Create writes a new record from a create-input payload.
func (r *Runtime) Create(ctx context.Context, entity string, input map[string]any) (model.Record, error) {
	d, ok := r.build.Registry.Lookup(schema.InputName(entity))
	if !ok || !r.build.HasEntity(entity) {
		return model.Record{}, fmt.Errorf("create %s: entity not generated", entity)
	}
	rec, err := r.write(ctx, d, "", input)
	return rec, mutationError(entity, schema.OpCreate.String(), err)
}

// Update writes the fields present in an update-input payload to the record named by
// its identifier.
func (r *Runtime) Update(ctx context.Context, entity string, input map[string]any) (model.Record, error) {
	d, ok := r.build.Registry.Lookup(schema.UpdateInputName(entity))
	if !ok || !r.build.HasEntity(entity) {
		return model.Record{}, fmt.Errorf("update %s: entity not generated", entity)
	}
	e, _ := r.build.Entity(entity)
	id := idString(input[e.PrimaryName()])
	if id == "" {
		return model.Record{}, fmt.Errorf("update %s: %s is required", entity, e.PrimaryName())
	}
	rec, err := r.write(ctx, d, id, input)
	return rec, mutationError(entity, schema.OpUpdate.String(), err)
}

// write splits the payload of an input descriptor into scalar and relationship
// assignments. Forward relationships are resolved to identifiers before the record is
// written; reverse relationships are applied after, once the record has an id. An
// empty id creates.
func (r *Runtime) write(ctx context.Context, d *schema.TypeDescriptor, id string, input map[string]any) (model.Record, error) {
	e, _ := r.build.Entity(d.Entity)
	pk := e.PrimaryName()

	fields := make(map[string]any, len(input))
	var reverse []reverseAssignment
	for _, f := range d.Fields {
		v, present := input[f.Name]
		if !present || f.Name == pk {
			continue
		}
		switch {
		case f.Relation == nil:
			fields[f.Name] = v
		case f.Relation.IsReverse():
			reverse = append(reverse, reverseAssignment{def: f, value: v})
		default:
			ref, err := r.resolveForward(ctx, f, v)
			if err != nil {
				return model.Record{}, err
			}
			fields[f.Name] = ref
		}
	}

	var (
		rec model.Record
		err error
	)
	if id == "" {
		rec, err = r.data.Create(ctx, d.Entity, fields)
		if err != nil {
			return model.Record{}, mutationError(d.Entity, schema.OpCreate.String(), err)
		}
	} else {
		rec, err = r.data.Update(ctx, d.Entity, id, fields)
		if err != nil {
			return model.Record{}, mutationError(d.Entity, schema.OpUpdate.String(), err)
		}
	}

	for _, a := range reverse {
		if err := r.applyReverse(ctx, rec.ID, a.def, a.value); err != nil {
			return model.Record{}, err
		}
	}
	return rec, nil
}

// resolveForward turns a forward relationship value into the identifier (or list of
// identifiers) stored on the owning record. nil detaches.
func (r *Runtime) resolveForward(ctx context.Context, f schema.FieldDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !f.Relation.IsMany() {
		return r.resolveRef(ctx, f, v)
	}
	ids, err := r.resolveRefs(ctx, f, v)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Runtime) resolveRefs(ctx context.Context, f schema.FieldDef, v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := r.resolveRef(ctx, f, item)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// resolveRef resolves one relationship item: an identifier is looked up and attached,
// a nested payload is attached to the record its lookup keys find or created.
func (r *Runtime) resolveRef(ctx context.Context, f schema.FieldDef, item any) (string, error) {
	target := f.Relation.Target
	payload, nested := item.(map[string]any)
	if !nested {
		id := idString(item)
		if _, err := r.data.Get(ctx, target, id); err != nil {
			return "", fmt.Errorf("attach %s %q: %w", target, id, err)
		}
		return id, nil
	}

	nd, ok := r.build.Registry.Lookup(f.Type.Name)
	if !ok || nd.Kind != schema.KindNestedInput {
		return "", fmt.Errorf("no nested input for %s", f.Name)
	}
	return r.attachOrCreate(ctx, nd, f.UpdateNested, payload)
}

// attachOrCreate finds the record a nested payload identifies. An explicit primary
// key must exist; other lookup keys fall through to creation when nothing matches.
// A found record is updated with the remaining payload when updates are allowed.
func (r *Runtime) attachOrCreate(ctx context.Context, nd *schema.TypeDescriptor, allowUpdate bool, payload map[string]any) (string, error) {
	e, _ := r.build.Entity(nd.Entity)
	pk := e.PrimaryName()

	id, found, err := r.lookup(ctx, nd, pk, payload)
	if err != nil {
		return "", err
	}
	if !found {
		rec, err := r.write(ctx, nd, "", payload)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	}

	if allowUpdate && hasNonLookupValues(nd, payload) {
		if _, err := r.write(ctx, nd, id, withoutKeys(payload, nd.Lookup)); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *Runtime) lookup(ctx context.Context, nd *schema.TypeDescriptor, pk string, payload map[string]any) (string, bool, error) {
	for _, key := range nd.Lookup {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if key == pk {
			id := idString(v)
			if _, err := r.data.Get(ctx, nd.Entity, id); err != nil {
				return "", false, fmt.Errorf("attach %s %q: %w", nd.Entity, id, err)
			}
			return id, true, nil
		}
		matches, err := r.data.ListBy(ctx, nd.Entity, key, fmt.Sprint(v), 1)
		if err != nil {
			return "", false, fmt.Errorf("look up %s by %s: %w", nd.Entity, key, err)
		}
		if len(matches) > 0 {
			return matches[0].ID, true, nil
		}
	}
	return "", false, nil
}

// applyReverse replaces the set of records pointing at owner through the inverse
// forward relationship. Records no longer in the set are detached.
func (r *Runtime) applyReverse(ctx context.Context, owner string, f schema.FieldDef, v any) error {
	rel := f.Relation
	te, ok := r.build.Entity(rel.Target)
	if !ok {
		return fmt.Errorf("reverse %s: target %s not generated", rel.Name, rel.Target)
	}
	inverse, ok := te.Relationship(rel.Inverse)
	if !ok {
		return fmt.Errorf("reverse %s: %s has no relationship %s", rel.Name, rel.Target, rel.Inverse)
	}

	var want []string
	if v != nil {
		ids, err := r.resolveRefs(ctx, f, v)
		if err != nil {
			return err
		}
		want = ids
	}

	current, err := r.data.ListBy(ctx, rel.Target, rel.Inverse, owner, 0)
	if err != nil {
		return fmt.Errorf("list %s by %s: %w", rel.Target, rel.Inverse, err)
	}
	for _, rec := range current {
		if slices.Contains(want, rec.ID) {
			continue
		}
		if err := r.relink(ctx, rel.Target, inverse, rec.ID, owner, false); err != nil {
			return err
		}
	}
	for _, id := range want {
		if err := r.relink(ctx, rel.Target, inverse, id, owner, true); err != nil {
			return err
		}
	}
	return nil
}

// relink attaches or detaches owner on the inverse relationship of one record.
func (r *Runtime) relink(ctx context.Context, entity string, inverse model.Relationship, id, owner string, attach bool) error {
	var value any
	if inverse.IsMany() {
		rec, err := r.data.Get(ctx, entity, id)
		if err != nil {
			return fmt.Errorf("load %s %q: %w", entity, id, err)
		}
		ids := slices.DeleteFunc(slices.Clone(rec.RelatedIDs(inverse.Name)), func(s string) bool { return s == owner })
		if attach {
			ids = append(ids, owner)
		}
		value = ids
	} else if attach {
		value = owner
	}

	if _, err := r.data.Update(ctx, entity, id, map[string]any{inverse.Name: value}); err != nil {
		return mutationError(entity, schema.OpUpdate.String(), err)
	}
	return nil
}

func hasNonLookupValues(nd *schema.TypeDescriptor, payload map[string]any) bool {
	for k := range payload {
		if !slices.Contains(nd.Lookup, k) {
			return true
		}
	}
	return false
}

func withoutKeys(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

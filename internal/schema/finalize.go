package schema

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/graphql-go/graphql"
)

var validName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

var builtinScalars = map[string]*graphql.Scalar{
	ScalarString:  graphql.String,
	ScalarInt:     graphql.Int,
	ScalarFloat:   graphql.Float,
	ScalarBoolean: graphql.Boolean,
	ScalarID:      graphql.ID,
}

// finalizer turns descriptors into graphql-go types, each exactly once.
type finalizer struct {
	ctx     *BuildContext
	objects map[int]*graphql.Object
	inputs  map[int]*graphql.InputObject
	enums   map[int]*graphql.Enum
}

func newFinalizer(c *BuildContext) *finalizer {
	return &finalizer{
		ctx:     c,
		objects: make(map[int]*graphql.Object),
		inputs:  make(map[int]*graphql.InputObject),
		enums:   make(map[int]*graphql.Enum),
	}
}

// entity finalizes the output, input and update input of an entity.
func (f *finalizer) entity(name string) error {
	for _, typeName := range []string{OutputName(name), InputName(name), UpdateInputName(name)} {
		d, ok := f.ctx.registry.Lookup(typeName)
		if !ok {
			return &InvalidTypeError{Type: typeName, Reason: "not built"}
		}
		var err error
		if d.Kind == KindOutput {
			_, err = f.object(d.Index)
		} else {
			_, err = f.input(d.Index)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *finalizer) object(idx int) (*graphql.Object, error) {
	if obj, ok := f.objects[idx]; ok {
		return obj, nil
	}
	d := f.ctx.registry.At(idx)
	if !validName.MatchString(d.Entity) {
		return nil, &InvalidTypeError{Type: d.Name, Reason: "entity name is not a valid GraphQL name"}
	}
	if err := f.ctx.begin(d.Name); err != nil {
		return nil, err
	}
	defer f.ctx.end(d.Name)

	fields := graphql.Fields{}
	kept := d.Fields[:0:0]
	for _, fd := range d.Fields {
		if !validName.MatchString(fd.Name) {
			return nil, &InvalidTypeError{Type: d.Name, Reason: fmt.Sprintf("field %q is not a valid GraphQL name", fd.Name)}
		}
		t, err := f.outputType(fd.Type)
		if err != nil {
			if fd.Relation == nil {
				return nil, err
			}
			f.dropped(d.Name, fd.Name, err)
			continue
		}
		fields[fd.Name] = &graphql.Field{Type: t}
		kept = append(kept, fd)
	}
	if len(fields) == 0 {
		return nil, &InvalidTypeError{Type: d.Name, Reason: "no fields"}
	}
	d.Fields = kept

	obj := graphql.NewObject(graphql.ObjectConfig{Name: d.Name, Fields: fields})
	f.objects[idx] = obj
	return obj, nil
}

func (f *finalizer) input(idx int) (*graphql.InputObject, error) {
	if in, ok := f.inputs[idx]; ok {
		return in, nil
	}
	d := f.ctx.registry.At(idx)
	if !validName.MatchString(d.Entity) {
		return nil, &InvalidTypeError{Type: d.Name, Reason: "entity name is not a valid GraphQL name"}
	}
	if err := f.ctx.begin(d.Name); err != nil {
		return nil, err
	}
	defer f.ctx.end(d.Name)

	fields := graphql.InputObjectConfigFieldMap{}
	kept := d.Fields[:0:0]
	for _, fd := range d.Fields {
		if !validName.MatchString(fd.Name) {
			return nil, &InvalidTypeError{Type: d.Name, Reason: fmt.Sprintf("field %q is not a valid GraphQL name", fd.Name)}
		}
		t, err := f.inputType(fd.Type)
		if err != nil {
			if !fd.Nested {
				return nil, err
			}
			f.dropped(d.Name, fd.Name, err)
			continue
		}
		fields[fd.Name] = &graphql.InputObjectFieldConfig{Type: t}
		kept = append(kept, fd)
	}
	if len(fields) == 0 {
		return nil, &InvalidTypeError{Type: d.Name, Reason: "no fields"}
	}
	d.Fields = kept

	in := graphql.NewInputObject(graphql.InputObjectConfig{Name: d.Name, Fields: fields})
	f.inputs[idx] = in
	return in, nil
}

func (f *finalizer) enum(idx int) *graphql.Enum {
	if en, ok := f.enums[idx]; ok {
		return en
	}
	d := f.ctx.registry.At(idx)
	values := graphql.EnumValueConfigMap{}
	for _, v := range d.Values {
		values[v.Key] = &graphql.EnumValueConfig{Value: v.Value, Description: v.Label}
	}
	en := graphql.NewEnum(graphql.EnumConfig{Name: d.Name, Values: values})
	f.enums[idx] = en
	return en
}

func (f *finalizer) dropped(typeName, field string, err error) {
	if errors.Is(err, ErrTypeBuildDeferred) {
		f.ctx.logger.Debug("field deferred and omitted", "type", typeName, "field", field)
		return
	}
	f.ctx.logger.Warn("field omitted", "type", typeName, "field", field, "error", err)
}

func (f *finalizer) named(ref TypeRef, input bool) (graphql.Type, error) {
	if ref.IsScalar() {
		s, ok := builtinScalars[ref.Name]
		if !ok {
			return nil, &InvalidTypeError{Type: ref.Name, Reason: "unknown scalar"}
		}
		return s, nil
	}
	d := f.ctx.registry.At(ref.Index)
	switch {
	case d.Kind == KindEnum:
		return f.enum(ref.Index), nil
	case input && d.Kind.IsInput():
		return f.input(ref.Index)
	case !input && d.Kind == KindOutput:
		return f.object(ref.Index)
	}
	return nil, &InvalidTypeError{Type: d.Name, Reason: "wrong kind " + d.Kind.String()}
}

func wrap(t graphql.Type, ref TypeRef) graphql.Type {
	if ref.List {
		if ref.ElemNonNull {
			t = graphql.NewNonNull(t)
		}
		t = graphql.NewList(t)
	}
	if ref.NonNull {
		t = graphql.NewNonNull(t)
	}
	return t
}

func (f *finalizer) outputType(ref TypeRef) (graphql.Output, error) {
	t, err := f.named(ref, false)
	if err != nil {
		return nil, err
	}
	return wrap(t, ref).(graphql.Output), nil
}

func (f *finalizer) inputType(ref TypeRef) (graphql.Input, error) {
	t, err := f.named(ref, true)
	if err != nil {
		return nil, err
	}
	return wrap(t, ref).(graphql.Input), nil
}

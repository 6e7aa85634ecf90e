package schema

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
)

// HealthCheckField is present on both root types, even in an empty schema.
const HealthCheckField = "health_check"

// OpKind identifies one of the five generated root operations.
type OpKind int

const (
	OpList OpKind = iota
	OpGet
	OpCreate
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	return [...]string{"list", "get", "create", "update", "delete"}[k]
}

// Argument describes a root operation argument.
type Argument struct {
	Name    string
	Type    TypeRef
	Default any
}

// Operation describes one generated root field.
type Operation struct {
	Name     string
	Entity   string
	Kind     OpKind
	Mutation bool
	Result   TypeRef
	Args     []Argument
}

// Operations returns the root operations of an assembled entity.
func (b *Build) Operations(entity string) []Operation {
	out, _ := b.Registry.Output(entity)
	in, _ := b.Registry.Lookup(InputName(entity))
	upd, _ := b.Registry.Lookup(UpdateInputName(entity))
	root := RootName(entity)
	id := Argument{Name: "id", Type: scalarRef(ScalarID).required()}

	return []Operation{
		{
			Name: "get_" + root + "_list", Entity: entity, Kind: OpList,
			Result: typeRef(out).listOf().required(),
			Args:   []Argument{{Name: "limit", Type: scalarRef(ScalarInt), Default: b.defaultPageSize}},
		},
		{
			Name: "get_" + root + "_by_id", Entity: entity, Kind: OpGet,
			Result: typeRef(out),
			Args:   []Argument{id},
		},
		{
			Name: "create_" + root, Entity: entity, Kind: OpCreate, Mutation: true,
			Result: typeRef(out).required(),
			Args:   []Argument{{Name: "input", Type: typeRef(in).required()}},
		},
		{
			Name: "update_" + root, Entity: entity, Kind: OpUpdate, Mutation: true,
			Result: typeRef(out).required(),
			Args:   []Argument{{Name: "input", Type: typeRef(upd).required()}},
		},
		{
			Name: "delete_" + root, Entity: entity, Kind: OpDelete, Mutation: true,
			Result: scalarRef(ScalarBoolean).required(),
			Args:   []Argument{id},
		},
	}
}

// Resolvers supplies the resolver of every generated root operation.
type Resolvers interface {
	Resolve(op Operation) graphql.FieldResolveFn
}

// Assemble creates the executable schema, wiring root operations to resolvers.
func (b *Build) Assemble(r Resolvers) (graphql.Schema, error) {
	health := func() *graphql.Field {
		return &graphql.Field{
			Type:    graphql.NewNonNull(graphql.String),
			Resolve: func(graphql.ResolveParams) (any, error) { return "ok", nil },
		}
	}
	query := graphql.Fields{HealthCheckField: health()}
	mutation := graphql.Fields{HealthCheckField: health()}

	for _, entity := range b.Entities {
		for _, op := range b.Operations(entity) {
			field, err := b.rootField(op, r.Resolve(op))
			if err != nil {
				return graphql.Schema{}, fmt.Errorf("assemble %s: %w", op.Name, err)
			}
			if op.Mutation {
				mutation[op.Name] = field
			} else {
				query[op.Name] = field
			}
		}
	}

	s, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: query}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutation}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (b *Build) rootField(op Operation, resolve graphql.FieldResolveFn) (*graphql.Field, error) {
	result, err := b.fin.outputType(op.Result)
	if err != nil {
		return nil, err
	}
	args := graphql.FieldConfigArgument{}
	for _, a := range op.Args {
		t, err := b.fin.inputType(a.Type)
		if err != nil {
			return nil, err
		}
		args[a.Name] = &graphql.ArgumentConfig{Type: t, DefaultValue: a.Default}
	}
	return &graphql.Field{Type: result, Args: args, Resolve: resolve}, nil
}

func defaultLiteral(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case string:
		return strconv.Quote(t)
	}
	return fmt.Sprint(v)
}

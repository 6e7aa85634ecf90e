package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// SDL renders the assembled schema in GraphQL schema definition language and checks the
// result with gqlparser.
func (b *Build) SDL() (string, error) {
	doc := b.Document()
	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatSchemaDocument(doc)
	sdl := sb.String()

	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "generated.graphql", Input: sdl}); err != nil {
		return "", fmt.Errorf("validate generated schema: %w", err)
	}
	return sdl, nil
}

// Document returns the assembled schema as a gqlparser schema document.
func (b *Build) Document() *ast.SchemaDocument {
	var roots []string
	query := &ast.Definition{Kind: ast.Object, Name: "Query", Fields: ast.FieldList{healthField()}}
	mutation := &ast.Definition{Kind: ast.Object, Name: "Mutation", Fields: ast.FieldList{healthField()}}
	for _, entity := range b.Entities {
		for _, op := range b.Operations(entity) {
			f := &ast.FieldDefinition{Name: op.Name, Type: astType(op.Result)}
			roots = append(roots, op.Result.Name)
			for _, a := range op.Args {
				roots = append(roots, a.Type.Name)
				arg := &ast.ArgumentDefinition{Name: a.Name, Type: astType(a.Type)}
				if a.Default != nil {
					arg.DefaultValue = &ast.Value{Kind: ast.IntValue, Raw: defaultLiteral(a.Default)}
				}
				f.Arguments = append(f.Arguments, arg)
			}
			if op.Mutation {
				mutation.Fields = append(mutation.Fields, f)
			} else {
				query.Fields = append(query.Fields, f)
			}
		}
	}

	reached := b.reachable(roots)
	doc := &ast.SchemaDocument{Definitions: ast.DefinitionList{query, mutation}}
	for _, d := range b.Registry.All() {
		if !reached[d.Index] {
			continue
		}
		if def := b.definition(d); def != nil {
			doc.Definitions = append(doc.Definitions, def)
		}
	}
	return doc
}

// reachable returns the indexes of descriptors reachable from the named root types.
// Descriptors of entities dropped after registration are left out.
func (b *Build) reachable(roots []string) map[int]bool {
	seen := make(map[int]bool)
	queue := make([]*TypeDescriptor, 0, len(roots))
	push := func(name string) {
		if d, ok := b.Registry.Lookup(name); ok && !seen[d.Index] {
			seen[d.Index] = true
			queue = append(queue, d)
		}
	}
	for _, name := range roots {
		push(name)
	}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, f := range d.Fields {
			push(f.Type.Name)
		}
	}
	return seen
}

// definition converts a finalized descriptor; descriptors that never became a type
// yield nil.
func (b *Build) definition(d *TypeDescriptor) *ast.Definition {
	switch d.Kind {
	case KindEnum:
		if _, ok := b.fin.enums[d.Index]; !ok {
			return nil
		}
		def := &ast.Definition{Kind: ast.Enum, Name: d.Name}
		for _, v := range d.Values {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: v.Key, Description: v.Label})
		}
		return def
	case KindOutput:
		if _, ok := b.fin.objects[d.Index]; !ok {
			return nil
		}
		return &ast.Definition{Kind: ast.Object, Name: d.Name, Fields: astFields(d)}
	default:
		if _, ok := b.fin.inputs[d.Index]; !ok {
			return nil
		}
		return &ast.Definition{Kind: ast.InputObject, Name: d.Name, Fields: astFields(d)}
	}
}

func astFields(d *TypeDescriptor) ast.FieldList {
	out := make(ast.FieldList, 0, len(d.Fields))
	for _, f := range d.Fields {
		out = append(out, &ast.FieldDefinition{Name: f.Name, Type: astType(f.Type)})
	}
	return out
}

func astType(ref TypeRef) *ast.Type {
	if !ref.List {
		if ref.NonNull {
			return ast.NonNullNamedType(ref.Name, nil)
		}
		return ast.NamedType(ref.Name, nil)
	}
	elem := ast.NamedType(ref.Name, nil)
	if ref.ElemNonNull {
		elem = ast.NonNullNamedType(ref.Name, nil)
	}
	if ref.NonNull {
		return ast.NonNullListType(elem, nil)
	}
	return ast.ListType(elem, nil)
}

func healthField() *ast.FieldDefinition {
	return &ast.FieldDefinition{Name: HealthCheckField, Type: ast.NonNullNamedType("String", nil)}
}

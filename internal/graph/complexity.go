package graph

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

// ComplexityLimit estimates the cost of an operation against the generated schema
// and rejects it above a budget. Every field costs 1 plus its children; list fields
// multiply their children by the expected item count:
//   - root list operations: the literal or variable limit, else DefaultPageSize
//   - nested collections: MaxNestedItems
//
// For a list of 10 items selecting id, name and a nested category {id, name}:
//
//	get_item_list: 1 + 10 × (id 1 + name 1 + category (1 + 2)) = 51
type ComplexityLimit struct {
	MaxComplexity   int
	DefaultPageSize int
	MaxNestedItems  int
}

// Check returns an error when the selected operation of doc exceeds MaxComplexity.
// Fields the schema does not know count 1 each; validation reports them later.
func (c ComplexityLimit) Check(s *graphql.Schema, doc *ast.QueryDocument, operationName string, variables map[string]any) error {
	op := selectOperation(doc, operationName)
	if op == nil {
		return nil
	}
	var root graphql.Type = s.QueryType()
	if op.Operation == ast.Mutation && s.MutationType() != nil {
		root = s.MutationType()
	}
	w := complexityWalker{limit: c, schema: s, fragments: doc.Fragments, variables: variables}
	cost := w.selectionSet(op.SelectionSet, root, true, 0)
	if cost > c.MaxComplexity {
		return fmt.Errorf("operation has complexity %d, which exceeds the limit of %d", cost, c.MaxComplexity)
	}
	return nil
}

func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0]
		}
		return nil
	}
	return doc.Operations.ForName(name)
}

type complexityWalker struct {
	limit     ComplexityLimit
	schema    *graphql.Schema
	fragments ast.FragmentDefinitionList
	variables map[string]any
}

func (w complexityWalker) selectionSet(set ast.SelectionSet, parent graphql.Type, root bool, spreads int) int {
	if spreads > maxFragmentNesting {
		return 0
	}
	total := 0
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			total += w.field(s, parent, root, spreads)
		case *ast.InlineFragment:
			t := parent
			if s.TypeCondition != "" {
				if named := w.schema.Type(s.TypeCondition); named != nil {
					t = named
				}
			}
			total += w.selectionSet(s.SelectionSet, t, root, spreads+1)
		case *ast.FragmentSpread:
			if def := w.fragments.ForName(s.Name); def != nil {
				t := parent
				if named := w.schema.Type(def.TypeCondition); named != nil {
					t = named
				}
				total += w.selectionSet(def.SelectionSet, t, root, spreads+1)
			}
		}
	}
	return total
}

func (w complexityWalker) field(f *ast.Field, parent graphql.Type, root bool, spreads int) int {
	obj, ok := parent.(*graphql.Object)
	if !ok {
		return 1
	}
	def, ok := obj.Fields()[f.Name]
	if !ok {
		return 1
	}

	t, list := unwrapType(def.Type)
	child := w.selectionSet(f.SelectionSet, t, false, spreads)
	if !list {
		return 1 + child
	}
	n := w.limit.MaxNestedItems
	if root {
		n = w.listLimit(f)
	}
	return 1 + n*child
}

func (w complexityWalker) listLimit(f *ast.Field) int {
	arg := f.Arguments.ForName("limit")
	if arg == nil || arg.Value == nil {
		return w.limit.DefaultPageSize
	}
	switch arg.Value.Kind {
	case ast.IntValue:
		if n, err := strconv.Atoi(arg.Value.Raw); err == nil {
			return n
		}
	case ast.Variable:
		switch v := w.variables[arg.Value.Raw].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return w.limit.DefaultPageSize
}

func unwrapType(t graphql.Type) (graphql.Type, bool) {
	list := false
	for {
		switch w := t.(type) {
		case *graphql.NonNull:
			t = w.OfType
		case *graphql.List:
			list = true
			t = w.OfType
		default:
			return t, list
		}
	}
}

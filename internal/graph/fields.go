package graph

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// selection is the tree of field names requested below a resolved field, with
// fragments flattened. A nil selection requests every field.
type selection map[string]selection

// has reports whether name was requested.
func (s selection) has(name string) bool {
	if s == nil {
		return true
	}
	_, ok := s[name]
	return ok
}

// child returns the sub-selection of name.
func (s selection) child(name string) selection {
	if s == nil {
		return nil
	}
	return s[name]
}

// collectFields returns the selection requested on the field being resolved.
func collectFields(info graphql.ResolveInfo) selection {
	sel := selection{}
	for _, f := range info.FieldASTs {
		if f.SelectionSet != nil {
			sel.merge(f.SelectionSet, info.Fragments, 0)
		}
	}
	return sel
}

const maxFragmentNesting = 32

func (s selection) merge(set *ast.SelectionSet, fragments map[string]ast.Definition, nesting int) {
	if set == nil || nesting > maxFragmentNesting {
		return
	}
	for _, item := range set.Selections {
		switch node := item.(type) {
		case *ast.Field:
			name := node.Name.Value
			child, ok := s[name]
			if !ok {
				child = selection{}
				s[name] = child
			}
			child.merge(node.SelectionSet, fragments, nesting)
		case *ast.InlineFragment:
			s.merge(node.SelectionSet, fragments, nesting+1)
		case *ast.FragmentSpread:
			if def, ok := fragments[node.Name.Value].(*ast.FragmentDefinition); ok {
				s.merge(def.SelectionSet, fragments, nesting+1)
			}
		}
	}
}

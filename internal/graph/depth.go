package graph

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// DepthLimit rejects queries that exceed a maximum selection-set nesting depth.
type DepthLimit struct {
	MaxDepth int
}

// Validate checks the limit itself.
func (d DepthLimit) Validate() error {
	if d.MaxDepth < 1 {
		return fmt.Errorf("DepthLimit: MaxDepth must be >= 1")
	}
	return nil
}

// Check returns an error when an operation of doc nests deeper than MaxDepth.
func (d DepthLimit) Check(doc *ast.QueryDocument) error {
	for _, op := range doc.Operations {
		depth := queryDepth(op.SelectionSet, doc.Fragments, 0)
		if depth > d.MaxDepth {
			return fmt.Errorf("query depth %d exceeds maximum allowed depth of %d", depth, d.MaxDepth)
		}
	}
	return nil
}

// queryDepth computes the deepest nesting level in a selection set. Fragment spreads
// resolve through fragments since the document is not validated yet.
func queryDepth(selSet ast.SelectionSet, fragments ast.FragmentDefinitionList, spreads int) int {
	if len(selSet) == 0 || spreads > maxFragmentNesting {
		return 0
	}
	maxChild := 0
	for _, sel := range selSet {
		var childDepth int
		switch s := sel.(type) {
		case *ast.Field:
			childDepth = queryDepth(s.SelectionSet, fragments, spreads)
		case *ast.InlineFragment:
			childDepth = queryDepth(s.SelectionSet, fragments, spreads+1) - 1
		case *ast.FragmentSpread:
			def := s.Definition
			if def == nil {
				def = fragments.ForName(s.Name)
			}
			if def != nil {
				childDepth = queryDepth(def.SelectionSet, fragments, spreads+1) - 1
			}
		}
		if childDepth > maxChild {
			maxChild = childDepth
		}
	}
	return 1 + maxChild
}

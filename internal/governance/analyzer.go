package governance

import (
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// analysis is the static score of one operation.
type analysis struct {
	depth         int
	complexity    int
	introspection bool
}

// analyzer walks an operation's selection sets scoring depth and complexity
// without executing anything. Fragment spreads are resolved against the
// same document; a spread whose definition is missing is charged the
// default field cost at one extra level.
type analyzer struct {
	cfg       Config
	doc       *ast.QueryDocument
	variables map[string]any
}

func (a *analyzer) analyzeOperation(op *ast.OperationDefinition) analysis {
	depth, complexity := a.walk(op.SelectionSet, 0)

	if op.Operation == ast.Mutation {
		complexity *= mutationCostFactor
	}

	return analysis{
		depth:         depth,
		complexity:    complexity,
		introspection: introspectionOnly(op.SelectionSet),
	}
}

// walk returns the deepest nesting level reached below parentDepth and the
// complexity of the selection set.
func (a *analyzer) walk(selSet ast.SelectionSet, parentDepth int) (maxDepth, complexity int) {
	maxDepth = parentDepth

	for _, sel := range selSet {
		switch s := sel.(type) {
		case *ast.Field:
			fieldDepth := parentDepth + 1
			childDepth, childComplexity := a.walk(s.SelectionSet, fieldDepth)

			cost := (a.cfg.fieldCost(s.Name) + childComplexity) * a.listMultiplier(s)
			complexity += cost
			maxDepth = max(maxDepth, childDepth)

		case *ast.InlineFragment:
			// Type conditions narrow, they do not nest.
			childDepth, childComplexity := a.walk(s.SelectionSet, parentDepth)
			complexity += childComplexity
			maxDepth = max(maxDepth, childDepth)

		case *ast.FragmentSpread:
			frag := a.doc.Fragments.ForName(s.Name)
			if frag == nil {
				complexity += a.cfg.DefaultFieldComplexity
				maxDepth = max(maxDepth, parentDepth+1)
				continue
			}
			childDepth, childComplexity := a.walk(frag.SelectionSet, parentDepth)
			complexity += childComplexity
			maxDepth = max(maxDepth, childDepth)
		}
	}
	return maxDepth, complexity
}

// listMultiplier returns how many times a field's subtree is charged. List
// fields taking first/limit multiply by the requested page size, capped so
// an oversized argument scores no higher than the largest page the server
// serves.
func (a *analyzer) listMultiplier(field *ast.Field) int {
	for _, arg := range field.Arguments {
		if arg.Name != "first" && arg.Name != "limit" {
			continue
		}
		if n, ok := a.argumentInt(arg.Value); ok && n > 1 {
			return min(n, maxListMultiplier)
		}
	}
	return 1
}

// argumentInt resolves an argument value to an int, following variable
// references into the request's variables map. JSON numbers arrive as
// float64.
func (a *analyzer) argumentInt(v *ast.Value) (int, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Kind {
	case ast.IntValue:
		n, err := strconv.Atoi(v.Raw)
		return n, err == nil
	case ast.Variable:
		switch raw := a.variables[v.Raw].(type) {
		case float64:
			return int(raw), true
		case int:
			return raw, true
		case string:
			n, err := strconv.Atoi(raw)
			return n, err == nil
		}
	}
	return 0, false
}

// introspectionOnly reports whether every root selection is a meta field
// (__schema, __type, __typename).
func introspectionOnly(selSet ast.SelectionSet) bool {
	if len(selSet) == 0 {
		return false
	}
	for _, sel := range selSet {
		field, ok := sel.(*ast.Field)
		if !ok || !strings.HasPrefix(field.Name, "__") {
			return false
		}
	}
	return true
}

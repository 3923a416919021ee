package eval

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/scope"
)

// Branch names for ConditionalResult.ExecutedBranch.
const (
	BranchThen = "then"
	BranchElse = "else"
	BranchNone = "none"
)

// ConditionalResult reports which arm of a conditional was selected and
// the statements that arm contributes.
type ConditionalResult struct {
	ExecutedBranch string
	Nodes          []*ast.Node
}

// ProcessConditional evaluates an if statement's condition against the
// scope and returns the selected branch. Only if_statement nodes are
// recognized. A condition that fails to evaluate, unresolved variables
// included, fails the whole conditional; nothing defaults to false.
func ProcessConditional(node *ast.Node, arena *scope.Arena, id scope.ID) (*ConditionalResult, error) {
	if node == nil || node.Type != ast.TypeIfStatement {
		typeName := "nil"
		line, col := 0, 0
		if node != nil {
			typeName = node.Type
			line, col = node.Span.Start.Line, node.Span.Start.Column
		}
		return nil, diagnostics.NewErrorAt(diagnostics.ErrE004, line, col,
			"conditional processing requires an if_statement, got %s", typeName)
	}

	cond, err := Evaluate(node.Condition, arena, id)
	if err != nil {
		return nil, err
	}

	if IsTruthy(cond) {
		return &ConditionalResult{ExecutedBranch: BranchThen, Nodes: node.ThenBody}, nil
	}
	if node.ElseBody != nil {
		return &ConditionalResult{ExecutedBranch: BranchElse, Nodes: node.ElseBody}, nil
	}
	return &ConditionalResult{ExecutedBranch: BranchNone, Nodes: []*ast.Node{}}, nil
}

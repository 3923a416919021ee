// Package mutator applies random mutations to parsed trees. Mutated
// trees exercise the stages behind the parser with shapes a normal
// parse would rarely produce.
package mutator

import (
	"math/rand"

	"github.com/funvibe/solidscript/internal/ast"
)

// ASTMutator applies random mutations to a tree in place.
type ASTMutator struct {
	rnd *rand.Rand
}

// NewASTMutator creates a mutator with the given seed.
func NewASTMutator(seed int64) *ASTMutator {
	return &ASTMutator{rnd: rand.New(rand.NewSource(seed))}
}

// Mutate applies one random mutation somewhere in the statements and
// reports whether anything changed.
func (m *ASTMutator) Mutate(statements []*ast.Node) bool {
	nodes := collect(statements)
	if len(nodes) == 0 {
		return false
	}
	// Several attempts, since not every node type has a mutation.
	for try := 0; try < 8; try++ {
		if m.mutateNode(nodes[m.rnd.Intn(len(nodes))]) {
			return true
		}
	}
	return false
}

// collect flattens every node reachable from the statements.
func collect(nodes []*ast.Node) []*ast.Node {
	var out []*ast.Node
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		out = append(out, n)
		for _, p := range n.Parameters {
			walk(p.Value)
		}
		for _, p := range n.Params {
			walk(p.Default)
		}
		for _, list := range [][]*ast.Node{n.Children, n.Body, n.ThenBody, n.ElseBody, n.Elements} {
			for _, child := range list {
				walk(child)
			}
		}
		for _, child := range []*ast.Node{n.Value, n.Condition, n.Left, n.Right, n.Operand, n.RangeStart, n.RangeStep, n.RangeEnd} {
			walk(child)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func (m *ASTMutator) mutateNode(n *ast.Node) bool {
	switch n.Type {
	case ast.TypeNumberLiteral:
		return m.mutateNumber(n)
	case ast.TypeBooleanLiteral:
		n.Bool = !n.Bool
		return true
	case ast.TypeBinaryExpression:
		return m.mutateOperator(n)
	case ast.TypeIdentifier:
		return m.mutateIdentifier(n)
	default:
		return m.mutateStructure(n)
	}
}

func (m *ASTMutator) mutateNumber(n *ast.Node) bool {
	switch m.rnd.Intn(4) {
	case 0:
		n.Number = -n.Number
	case 1:
		n.Number = n.Number * 2
	case 2:
		n.Number = 0
	default:
		n.Number = n.Number + 1
	}
	return true
}

func (m *ASTMutator) mutateOperator(n *ast.Node) bool {
	ops := []string{"+", "-", "*", "/", "<", ">", "==", "!="}
	idx := m.rnd.Intn(len(ops))
	if ops[idx] == n.Operator {
		idx = (idx + 1) % len(ops)
	}
	n.Operator = ops[idx]
	return true
}

func (m *ASTMutator) mutateIdentifier(n *ast.Node) bool {
	names := []string{"x", "y", "z", "ghost"}
	idx := m.rnd.Intn(len(names))
	if names[idx] == n.Name {
		idx = (idx + 1) % len(names)
	}
	n.Name = names[idx]
	return true
}

// mutateStructure duplicates or drops a child statement.
func (m *ASTMutator) mutateStructure(n *ast.Node) bool {
	if len(n.Children) == 0 {
		return false
	}
	idx := m.rnd.Intn(len(n.Children))
	if m.rnd.Intn(2) == 0 {
		n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
	} else {
		n.Children = append(n.Children, n.Children[idx].Clone())
	}
	return true
}

package expand

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/value"
)

// Substitute returns node with every identifier named in bindings
// replaced by a clone of its bound node. The original tree is never
// mutated; untouched subtrees are returned as-is. Names rebound deeper
// in the tree shadow the substitution: a loop iterator or let binding
// with the same name keeps its own meaning inside its body, and module
// definitions are left alone entirely since their parameters bind at
// instantiation time.
func Substitute(node *ast.Node, bindings map[string]*ast.Node) *ast.Node {
	if node == nil || len(bindings) == 0 {
		return node
	}

	switch node.Type {
	case ast.TypeIdentifier:
		if bound, ok := bindings[node.Name]; ok {
			out := bound.Clone()
			out.Span = node.Span
			return out
		}
		return node

	case ast.TypeModuleDefinition, ast.TypeFunction:
		return node

	case ast.TypeForLoop:
		out := *node
		out.Parameters = substituteParams(node.Parameters, bindings)
		inner := bindings
		if len(node.Parameters) == 1 {
			inner = without(bindings, node.Parameters[0].Name)
		}
		out.Children = substituteNodes(node.Children, inner)
		return &out

	case ast.TypeLet:
		out := *node
		out.Parameters = substituteParams(node.Parameters, bindings)
		names := make([]string, len(node.Parameters))
		for i, p := range node.Parameters {
			names[i] = p.Name
		}
		out.Children = substituteNodes(node.Children, without(bindings, names...))
		return &out
	}

	out := *node
	out.Parameters = substituteParams(node.Parameters, bindings)
	out.Children = substituteNodes(node.Children, bindings)
	out.Body = substituteNodes(node.Body, bindings)
	out.Value = Substitute(node.Value, bindings)
	out.Condition = Substitute(node.Condition, bindings)
	out.ThenBody = substituteNodes(node.ThenBody, bindings)
	out.ElseBody = substituteNodes(node.ElseBody, bindings)
	out.Left = Substitute(node.Left, bindings)
	out.Right = Substitute(node.Right, bindings)
	out.Operand = Substitute(node.Operand, bindings)
	out.Elements = substituteNodes(node.Elements, bindings)
	out.RangeStart = Substitute(node.RangeStart, bindings)
	out.RangeStep = Substitute(node.RangeStep, bindings)
	out.RangeEnd = Substitute(node.RangeEnd, bindings)
	return &out
}

func substituteNodes(nodes []*ast.Node, bindings map[string]*ast.Node) []*ast.Node {
	if nodes == nil || len(bindings) == 0 {
		return nodes
	}
	out := make([]*ast.Node, len(nodes))
	for i, n := range nodes {
		out[i] = Substitute(n, bindings)
	}
	return out
}

func substituteParams(params []ast.Param, bindings map[string]*ast.Node) []ast.Param {
	if params == nil || len(bindings) == 0 {
		return params
	}
	out := make([]ast.Param, len(params))
	for i, p := range params {
		out[i] = ast.Param{Name: p.Name, Value: Substitute(p.Value, bindings)}
	}
	return out
}

func without(bindings map[string]*ast.Node, names ...string) map[string]*ast.Node {
	found := false
	for _, name := range names {
		if _, ok := bindings[name]; ok {
			found = true
			break
		}
	}
	if !found {
		return bindings
	}
	out := make(map[string]*ast.Node, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// ValueNode renders an evaluated value back into a literal node so it
// can replace an identifier in a rewritten tree.
func ValueNode(v value.Value, span ast.Span) *ast.Node {
	switch v := v.(type) {
	case *value.Number:
		return &ast.Node{Type: ast.TypeNumberLiteral, Span: span, Number: v.Value}
	case *value.Text:
		return &ast.Node{Type: ast.TypeStringLiteral, Span: span, Str: v.Value}
	case *value.Boolean:
		return &ast.Node{Type: ast.TypeBooleanLiteral, Span: span, Bool: v.Value}
	case *value.Vector:
		elements := make([]*ast.Node, len(v.Elements))
		for i, el := range v.Elements {
			elements[i] = ValueNode(el, span)
		}
		return &ast.Node{Type: ast.TypeVectorLiteral, Span: span, Elements: elements}
	}
	return nil
}

// Package printer renders syntax trees as an indented, deterministic
// text dump. The CLI uses it for --dump-ast; tests use it to pin tree
// shapes without reaching into node fields.
package printer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/funvibe/solidscript/internal/ast"
)

// Print dumps a statement list, one top-level node per block.
func Print(nodes []*ast.Node) string {
	p := &printer{}
	for _, node := range nodes {
		p.printNode(node)
	}
	return p.buf.String()
}

// PrintNode dumps a single node and its subtree.
func PrintNode(node *ast.Node) string {
	p := &printer{}
	p.printNode(node)
	return p.buf.String()
}

type printer struct {
	buf    bytes.Buffer
	indent int
}

func (p *printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("  ")
	}
}

func (p *printer) line(s string) {
	p.writeIndent()
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

func (p *printer) printNode(n *ast.Node) {
	if n == nil {
		p.line("<???>")
		return
	}
	p.line(head(n))
	p.indent++

	if n.Value != nil {
		p.section("value:", []*ast.Node{n.Value})
	}
	p.printParamDecls(n.Params)
	p.printParams(n.Parameters)
	if n.Condition != nil {
		p.section("condition:", []*ast.Node{n.Condition})
	}
	p.section("then:", n.ThenBody)
	p.section("else:", n.ElseBody)
	if n.Left != nil || n.Right != nil {
		p.section("left:", []*ast.Node{n.Left})
		p.section("right:", []*ast.Node{n.Right})
	}
	if n.Operand != nil {
		p.section("operand:", []*ast.Node{n.Operand})
	}
	p.section("elements:", n.Elements)
	if n.RangeStart != nil || n.RangeEnd != nil {
		p.section("start:", []*ast.Node{n.RangeStart})
		if n.RangeStep != nil {
			p.section("step:", []*ast.Node{n.RangeStep})
		}
		p.section("end:", []*ast.Node{n.RangeEnd})
	}
	p.section("body:", n.Body)
	p.section("children:", n.Children)

	p.indent--
}

// section prints a labeled node list, omitting the label when the list
// is empty.
func (p *printer) section(label string, nodes []*ast.Node) {
	if len(nodes) == 0 {
		return
	}
	p.line(label)
	p.indent++
	for _, node := range nodes {
		p.printNode(node)
	}
	p.indent--
}

// printParams prints call-site arguments keyed by position or name.
func (p *printer) printParams(params []ast.Param) {
	if len(params) == 0 {
		return
	}
	p.line("parameters:")
	p.indent++
	for i, param := range params {
		key := strconv.Itoa(i)
		if param.Name != "" {
			key = param.Name
		}
		p.line(key + ":")
		p.indent++
		p.printNode(param.Value)
		p.indent--
	}
	p.indent--
}

// printParamDecls prints declared parameters, nesting defaults.
func (p *printer) printParamDecls(decls []ast.ParamDecl) {
	if len(decls) == 0 {
		return
	}
	p.line("params:")
	p.indent++
	for _, decl := range decls {
		if decl.Default == nil {
			p.line(decl.Name)
			continue
		}
		p.line(decl.Name + ":")
		p.indent++
		p.printNode(decl.Default)
		p.indent--
	}
	p.indent--
}

// head renders the one-line summary of a node: its type plus the scalar
// that identifies it.
func head(n *ast.Node) string {
	switch n.Type {
	case ast.TypeNumberLiteral:
		return fmt.Sprintf("number_literal %g", n.Number)
	case ast.TypeStringLiteral:
		return "string_literal " + strconv.Quote(n.Str)
	case ast.TypeBooleanLiteral:
		return fmt.Sprintf("boolean_literal %t", n.Bool)
	case ast.TypeBinaryExpression:
		return "binary_expression " + n.Operator
	case ast.TypeUnaryExpression:
		return "unary_expression " + n.Operator
	default:
		// Builtin statements carry their name as the type; the name is
		// printed only when it differs.
		if n.Name != "" && n.Name != n.Type {
			return n.Type + " " + n.Name
		}
		return n.Type
	}
}

// Package ast defines the tree produced by the parser and consumed by every
// processing stage. Nodes are keyed by a type-name string rather than a Go
// interface hierarchy: the node shape is the wire contract with the upstream
// parser, and downstream stages dispatch on the name through the classifier's
// category tables.
//
// Nodes are treated as immutable once produced. Stages that need to rewrite
// a tree (loop unrolling, branch selection, module instantiation) build new
// nodes via Clone instead of mutating in place.
package ast

// Statement-level node type names.
const (
	TypeAssignment          = "assignment"
	TypeModuleDefinition    = "module_definition"
	TypeModuleInstantiation = "module_instantiation"
	TypeForLoop             = "for_loop"
	TypeIfStatement         = "if_statement"
	TypeLet                 = "let"
	TypeFunction            = "function"
)

// Expression-level node type names.
const (
	TypeNumberLiteral    = "number_literal"
	TypeStringLiteral    = "string_literal"
	TypeBooleanLiteral   = "boolean_literal"
	TypeVectorLiteral    = "vector_literal"
	TypeIdentifier       = "identifier"
	TypeBinaryExpression = "binary_expression"
	TypeUnaryExpression  = "unary_expression"
	TypeRangeExpression  = "range_expression"
)

// Position is a location in the source text. Line and Column are 1-based,
// Offset is a 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span is the source range a node was parsed from, including the raw text
// slice for error reporting and cache keys.
type Span struct {
	Start Position
	End   Position
	Text  string
}

// Param is one call-site argument or binding: a value expression with an
// optional name. Positional arguments have an empty Name.
type Param struct {
	Name  string
	Value *Node
}

// ParamDecl is one declared module or function parameter. Default is nil
// when the parameter has no default value.
type ParamDecl struct {
	Name    string
	Default *Node
}

// Node is a single AST node. Which fields are populated depends on Type:
//
//	assignment            Name, Value
//	module_definition     Name, Params, Body
//	module_instantiation  Name, Parameters, Children
//	for_loop              Parameters (exactly one binding), Children
//	if_statement          Condition, ThenBody, ElseBody
//	let                   Parameters (bindings), Children
//	function              Name, Params, Value
//	number_literal        Number
//	string_literal        Str
//	boolean_literal       Bool
//	vector_literal        Elements
//	identifier            Name
//	binary_expression     Operator, Left, Right
//	unary_expression      Operator, Operand
//	range_expression      RangeStart, RangeStep (optional), RangeEnd
//
// Builtin geometry statements (cube, translate, union, ...) reuse the
// module_instantiation field layout but carry the builtin name as Type.
type Node struct {
	Type string
	Span Span

	Name       string
	Parameters []Param
	Params     []ParamDecl
	Children   []*Node
	Body       []*Node
	Value      *Node

	Condition *Node
	ThenBody  []*Node
	ElseBody  []*Node

	Operator string
	Left     *Node
	Right    *Node
	Operand  *Node

	Number   float64
	Str      string
	Bool     bool
	Elements []*Node

	RangeStart *Node
	RangeStep  *Node
	RangeEnd   *Node
}

// Clone returns a deep copy of the node. The span is shared by value; the
// source text it references is immutable.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Parameters = cloneParams(n.Parameters)
	out.Params = cloneParamDecls(n.Params)
	out.Children = CloneNodes(n.Children)
	out.Body = CloneNodes(n.Body)
	out.Value = n.Value.Clone()
	out.Condition = n.Condition.Clone()
	out.ThenBody = CloneNodes(n.ThenBody)
	out.ElseBody = CloneNodes(n.ElseBody)
	out.Left = n.Left.Clone()
	out.Right = n.Right.Clone()
	out.Operand = n.Operand.Clone()
	out.Elements = CloneNodes(n.Elements)
	out.RangeStart = n.RangeStart.Clone()
	out.RangeStep = n.RangeStep.Clone()
	out.RangeEnd = n.RangeEnd.Clone()
	return &out
}

// CloneNodes deep-copies a node list, preserving order.
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

func cloneParams(params []Param) []Param {
	if params == nil {
		return nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Name: p.Name, Value: p.Value.Clone()}
	}
	return out
}

func cloneParamDecls(decls []ParamDecl) []ParamDecl {
	if decls == nil {
		return nil
	}
	out := make([]ParamDecl, len(decls))
	for i, d := range decls {
		out[i] = ParamDecl{Name: d.Name, Default: d.Default.Clone()}
	}
	return out
}

// IsExpression reports whether the node type name belongs to the expression
// grammar rather than the statement grammar.
func IsExpression(typeName string) bool {
	switch typeName {
	case TypeNumberLiteral, TypeStringLiteral, TypeBooleanLiteral,
		TypeVectorLiteral, TypeIdentifier, TypeBinaryExpression,
		TypeUnaryExpression, TypeRangeExpression:
		return true
	}
	return false
}

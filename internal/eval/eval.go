// Package eval executes expression trees against a variable scope and
// selects conditional branches. The operator set is closed. Both
// operands of && and || are evaluated eagerly; the language has no
// short-circuit semantics.
package eval

import (
	"math"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/scope"
	"github.com/funvibe/solidscript/internal/value"
)

var (
	trueValue  = &value.Boolean{Value: true}
	falseValue = &value.Boolean{Value: false}
)

// binaryOps is the closed operator set. Anything else is an unknown
// operator, reported as such regardless of operand types.
var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	">": true, "<": true, ">=": true, "<=": true,
	"==": true, "!=": true, "&&": true, "||": true,
}

// Evaluate computes the value of an expression node against a scope.
// Unresolved identifiers are an error, never a silent undefined.
func Evaluate(expr *ast.Node, arena *scope.Arena, id scope.ID) (value.Value, error) {
	if expr == nil {
		return nil, diagnostics.NewErrorAt(diagnostics.ErrE004, 0, 0, "cannot evaluate a nil expression")
	}
	switch expr.Type {
	case ast.TypeNumberLiteral:
		return &value.Number{Value: expr.Number}, nil
	case ast.TypeStringLiteral:
		return &value.Text{Value: expr.Str}, nil
	case ast.TypeBooleanLiteral:
		return boolValue(expr.Bool), nil
	case ast.TypeVectorLiteral:
		return evalVector(expr, arena, id)
	case ast.TypeIdentifier:
		v, ok := arena.Get(id, expr.Name)
		if !ok {
			return nil, newError(expr, diagnostics.ErrE001, "variable not found: %s", expr.Name)
		}
		return v, nil
	case ast.TypeUnaryExpression:
		return evalUnary(expr, arena, id)
	case ast.TypeBinaryExpression:
		return evalBinary(expr, arena, id)
	case ast.TypeRangeExpression:
		return nil, newError(expr, diagnostics.ErrE004, "range expressions are only valid as loop bounds")
	default:
		return nil, newError(expr, diagnostics.ErrE004, "not an expression: %s", expr.Type)
	}
}

func evalVector(expr *ast.Node, arena *scope.Arena, id scope.ID) (value.Value, error) {
	elements := make([]value.Value, len(expr.Elements))
	for i, e := range expr.Elements {
		v, err := Evaluate(e, arena, id)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	return &value.Vector{Elements: elements}, nil
}

func evalUnary(expr *ast.Node, arena *scope.Arena, id scope.ID) (value.Value, error) {
	operand, err := Evaluate(expr.Operand, arena, id)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "-":
		if n, ok := operand.(*value.Number); ok {
			return &value.Number{Value: -n.Value}, nil
		}
		if v, ok := operand.(*value.Vector); ok {
			return negateVector(expr, v)
		}
	case "!":
		if b, ok := operand.(*value.Boolean); ok {
			return boolValue(!b.Value), nil
		}
	}
	return nil, newError(expr, diagnostics.ErrE003,
		"unknown operator: %s%s", expr.Operator, operand.Type())
}

func negateVector(expr *ast.Node, v *value.Vector) (value.Value, error) {
	out := make([]value.Value, len(v.Elements))
	for i, e := range v.Elements {
		n, ok := e.(*value.Number)
		if !ok {
			return nil, newError(expr, diagnostics.ErrE003,
				"unknown operator: -%s in vector", e.Type())
		}
		out[i] = &value.Number{Value: -n.Value}
	}
	return &value.Vector{Elements: out}, nil
}

// evalBinary evaluates both operands first and only then dispatches on
// the operator, so && and || see fully evaluated operands on both sides.
func evalBinary(expr *ast.Node, arena *scope.Arena, id scope.ID) (value.Value, error) {
	if !binaryOps[expr.Operator] {
		return nil, newError(expr, diagnostics.ErrE002,
			"unknown binary operator: %s", expr.Operator)
	}

	left, err := Evaluate(expr.Left, arena, id)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(expr.Right, arena, id)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case "==":
		return boolValue(value.Equal(left, right)), nil
	case "!=":
		return boolValue(!value.Equal(left, right)), nil
	case "&&", "||":
		return evalLogical(expr, left, right)
	}

	switch {
	case left.Type() == value.NUMBER_VAL && right.Type() == value.NUMBER_VAL:
		return evalNumberBinary(expr, left.(*value.Number), right.(*value.Number))
	case left.Type() == value.TEXT_VAL && right.Type() == value.TEXT_VAL:
		return evalTextBinary(expr, left.(*value.Text), right.(*value.Text))
	case left.Type() == value.VECTOR_VAL || right.Type() == value.VECTOR_VAL:
		return evalVectorBinary(expr, left, right)
	case left.Type() != right.Type():
		return nil, newError(expr, diagnostics.ErrE003,
			"type mismatch: %s %s %s", left.Type(), expr.Operator, right.Type())
	default:
		return nil, newError(expr, diagnostics.ErrE003,
			"unknown operator: %s %s %s", left.Type(), expr.Operator, right.Type())
	}
}

func evalLogical(expr *ast.Node, left, right value.Value) (value.Value, error) {
	lb, lok := left.(*value.Boolean)
	rb, rok := right.(*value.Boolean)
	if !lok || !rok {
		return nil, newError(expr, diagnostics.ErrE003,
			"unknown operator: %s %s %s", left.Type(), expr.Operator, right.Type())
	}
	if expr.Operator == "&&" {
		return boolValue(lb.Value && rb.Value), nil
	}
	return boolValue(lb.Value || rb.Value), nil
}

func evalNumberBinary(expr *ast.Node, left, right *value.Number) (value.Value, error) {
	switch expr.Operator {
	case "+":
		return &value.Number{Value: left.Value + right.Value}, nil
	case "-":
		return &value.Number{Value: left.Value - right.Value}, nil
	case "*":
		return &value.Number{Value: left.Value * right.Value}, nil
	case "/":
		return &value.Number{Value: left.Value / right.Value}, nil
	case ">":
		return boolValue(left.Value > right.Value), nil
	case "<":
		return boolValue(left.Value < right.Value), nil
	case ">=":
		return boolValue(left.Value >= right.Value), nil
	case "<=":
		return boolValue(left.Value <= right.Value), nil
	}
	return nil, newError(expr, diagnostics.ErrE003,
		"unknown operator: %s %s %s", left.Type(), expr.Operator, right.Type())
}

func evalTextBinary(expr *ast.Node, left, right *value.Text) (value.Value, error) {
	switch expr.Operator {
	case "+":
		return &value.Text{Value: left.Value + right.Value}, nil
	case ">":
		return boolValue(left.Value > right.Value), nil
	case "<":
		return boolValue(left.Value < right.Value), nil
	case ">=":
		return boolValue(left.Value >= right.Value), nil
	case "<=":
		return boolValue(left.Value <= right.Value), nil
	}
	return nil, newError(expr, diagnostics.ErrE003,
		"unknown operator: %s %s %s", left.Type(), expr.Operator, right.Type())
}

// evalVectorBinary covers elementwise vector arithmetic and scalar
// scaling, mirroring the arithmetic the CAD language supports on
// coordinate vectors.
func evalVectorBinary(expr *ast.Node, left, right value.Value) (value.Value, error) {
	lv, lok := left.(*value.Vector)
	rv, rok := right.(*value.Vector)

	switch expr.Operator {
	case "+", "-":
		if !lok || !rok {
			break
		}
		if len(lv.Elements) != len(rv.Elements) {
			return nil, newError(expr, diagnostics.ErrE003,
				"vector length mismatch: %d %s %d",
				len(lv.Elements), expr.Operator, len(rv.Elements))
		}
		out := make([]value.Value, len(lv.Elements))
		for i := range lv.Elements {
			ln, lnOK := lv.Elements[i].(*value.Number)
			rn, rnOK := rv.Elements[i].(*value.Number)
			if !lnOK || !rnOK {
				return nil, newError(expr, diagnostics.ErrE003,
					"vector arithmetic requires numeric elements")
			}
			if expr.Operator == "+" {
				out[i] = &value.Number{Value: ln.Value + rn.Value}
			} else {
				out[i] = &value.Number{Value: ln.Value - rn.Value}
			}
		}
		return &value.Vector{Elements: out}, nil
	case "*", "/":
		var vec *value.Vector
		var scalar *value.Number
		if lok {
			if n, ok := right.(*value.Number); ok {
				vec, scalar = lv, n
			}
		} else if rok && expr.Operator == "*" {
			if n, ok := left.(*value.Number); ok {
				vec, scalar = rv, n
			}
		}
		if vec == nil {
			break
		}
		out := make([]value.Value, len(vec.Elements))
		for i, e := range vec.Elements {
			n, ok := e.(*value.Number)
			if !ok {
				return nil, newError(expr, diagnostics.ErrE003,
					"vector arithmetic requires numeric elements")
			}
			if expr.Operator == "*" {
				out[i] = &value.Number{Value: n.Value * scalar.Value}
			} else {
				out[i] = &value.Number{Value: n.Value / scalar.Value}
			}
		}
		return &value.Vector{Elements: out}, nil
	}
	return nil, newError(expr, diagnostics.ErrE003,
		"unknown operator: %s %s %s", left.Type(), expr.Operator, right.Type())
}

// IsTruthy reports whether a value selects the then-branch of a
// conditional: booleans by their value, numbers when non-zero and not
// NaN, text when non-empty, vectors always.
func IsTruthy(v value.Value) bool {
	switch tv := v.(type) {
	case *value.Boolean:
		return tv.Value
	case *value.Number:
		return tv.Value != 0 && !math.IsNaN(tv.Value)
	case *value.Text:
		return tv.Value != ""
	case *value.Vector:
		return true
	}
	return false
}

func boolValue(b bool) *value.Boolean {
	if b {
		return trueValue
	}
	return falseValue
}

func newError(node *ast.Node, code diagnostics.Code, format string, args ...interface{}) *diagnostics.Diagnostic {
	return diagnostics.NewErrorAt(code, node.Span.Start.Line, node.Span.Start.Column, format, args...)
}

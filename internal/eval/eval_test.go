package eval

import (
	"math"
	"strings"
	"testing"

	"github.com/funvibe/solidscript/internal/parser"
	"github.com/funvibe/solidscript/internal/scope"
	"github.com/funvibe/solidscript/internal/value"
)

// testEval parses input as the right-hand side of an assignment and
// evaluates it against the given scope.
func testEval(t *testing.T, input string, arena *scope.Arena, id scope.ID) (value.Value, error) {
	t.Helper()
	p := parser.New("x = " + input + ";")
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors for %q: %v", input, p.Errors())
	}
	return Evaluate(program[0].Value, arena, id)
}

func mustEval(t *testing.T, input string, arena *scope.Arena, id scope.ID) value.Value {
	t.Helper()
	v, err := testEval(t, input, arena, id)
	if err != nil {
		t.Fatalf("eval %q failed: %v", input, err)
	}
	return v
}

func emptyScope() (*scope.Arena, scope.ID) {
	arena := scope.NewArena()
	return arena, arena.NewScope("global", scope.None)
}

func testNumberValue(t *testing.T, v value.Value, want float64) {
	t.Helper()
	n, ok := v.(*value.Number)
	if !ok {
		t.Fatalf("value is %T (%s), want *value.Number", v, v.Inspect())
	}
	if n.Value != want {
		t.Errorf("value = %v, want %v", n.Value, want)
	}
}

func testBooleanValue(t *testing.T, v value.Value, want bool) {
	t.Helper()
	b, ok := v.(*value.Boolean)
	if !ok {
		t.Fatalf("value is %T (%s), want *value.Boolean", v, v.Inspect())
	}
	if b.Value != want {
		t.Errorf("value = %t, want %t", b.Value, want)
	}
}

func TestNumberExpressions(t *testing.T) {
	arena, id := emptyScope()
	tests := []struct {
		input string
		want  float64
	}{
		{"5", 5},
		{"3.5", 3.5},
		{"-5", -5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"2 - 5", -3},
		{"1.5e2", 150},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testNumberValue(t, mustEval(t, tt.input, arena, id), tt.want)
		})
	}
}

func TestBooleanExpressions(t *testing.T) {
	arena, id := emptyScope()
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"2 >= 2", true},
		{"3 <= 2", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"true && false", false},
		{"true && true", true},
		{"true || false", true},
		{"false || false", false},
		{"!true", false},
		{"!false", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testBooleanValue(t, mustEval(t, tt.input, arena, id), tt.want)
		})
	}
}

func TestTextExpressions(t *testing.T) {
	arena, id := emptyScope()

	v := mustEval(t, `"foo" + "bar"`, arena, id)
	if txt, ok := v.(*value.Text); !ok || txt.Value != "foobar" {
		t.Errorf("concatenation = %s, want \"foobar\"", v.Inspect())
	}
	testBooleanValue(t, mustEval(t, `"a" < "b"`, arena, id), true)
	testBooleanValue(t, mustEval(t, `"x" == "x"`, arena, id), true)
}

func TestVectorLiteral(t *testing.T) {
	arena, id := emptyScope()

	v := mustEval(t, "[1, 2, 3]", arena, id)
	vec, ok := v.(*value.Vector)
	if !ok || len(vec.Elements) != 3 {
		t.Fatalf("value = %s, want 3-element vector", v.Inspect())
	}
	testNumberValue(t, vec.Elements[2], 3)

	nested := mustEval(t, "[[1, 2], 3]", arena, id).(*value.Vector)
	if _, ok := nested.Elements[0].(*value.Vector); !ok {
		t.Errorf("nested vector not preserved: %s", nested.Inspect())
	}
}

func TestVectorArithmetic(t *testing.T) {
	arena, id := emptyScope()
	tests := []struct {
		input string
		want  string
	}{
		{"[1, 2] + [3, 4]", "[4, 6]"},
		{"[5, 6] - [1, 2]", "[4, 4]"},
		{"[1, 2] * 3", "[3, 6]"},
		{"2 * [1, 2]", "[2, 4]"},
		{"[4, 6] / 2", "[2, 3]"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mustEval(t, tt.input, arena, id).Inspect(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := testEval(t, "[1] + [1, 2]", arena, id); err == nil {
		t.Error("expected a length mismatch error")
	}
}

func TestIdentifierResolution(t *testing.T) {
	arena := scope.NewArena()
	root := arena.NewScope("global", scope.None)
	child := arena.NewScope("call:box", root)
	arena.Set(root, "size", &value.Number{Value: 10})
	arena.Set(child, "w", &value.Number{Value: 2})

	testNumberValue(t, mustEval(t, "size + 5", arena, root), 15)
	testNumberValue(t, mustEval(t, "size * w", arena, child), 20)
}

func TestUnresolvedIdentifier(t *testing.T) {
	arena, id := emptyScope()

	_, err := testEval(t, "missing + 1", arena, id)
	if err == nil {
		t.Fatal("expected an error for an unresolved identifier")
	}
	if !strings.Contains(err.Error(), "variable not found: missing") {
		t.Errorf("unexpected error message: %s", err)
	}
}

func TestEqualityAcrossTypes(t *testing.T) {
	arena, id := emptyScope()

	testBooleanValue(t, mustEval(t, `1 == "1"`, arena, id), false)
	testBooleanValue(t, mustEval(t, `1 != "1"`, arena, id), true)
	testBooleanValue(t, mustEval(t, "[1, 2] == [1, 2]", arena, id), true)
	testBooleanValue(t, mustEval(t, "[1, 2] == [1, 3]", arena, id), false)
	testBooleanValue(t, mustEval(t, "true == true", arena, id), true)
}

func TestUnknownBinaryOperator(t *testing.T) {
	arena, id := emptyScope()

	_, err := testEval(t, "5 % 2", arena, id)
	if err == nil {
		t.Fatal("expected an error for the % operator")
	}
	if !strings.Contains(err.Error(), "unknown binary operator: %") {
		t.Errorf("unexpected error message: %s", err)
	}
}

func TestOperandTypeErrors(t *testing.T) {
	arena, id := emptyScope()
	tests := []struct {
		input   string
		wantErr string
	}{
		{`1 + "a"`, "type mismatch: NUMBER + TEXT"},
		{"true + false", "unknown operator: BOOLEAN + BOOLEAN"},
		{"1 && true", "unknown operator: NUMBER && BOOLEAN"},
		{`-"a"`, "unknown operator: -TEXT"},
		{"!5", "unknown operator: !NUMBER"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := testEval(t, tt.input, arena, id)
			if err == nil {
				t.Fatalf("expected an error for %q", tt.input)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// Both operands of && and || are evaluated before the operator is
// applied, so an unresolved variable on the right side fails the whole
// expression even when the left side already decides the outcome.
func TestLogicalOperatorsEvaluateEagerly(t *testing.T) {
	arena, id := emptyScope()

	if _, err := testEval(t, "false && (missing > 1)", arena, id); err == nil {
		t.Error("expected eager && to surface the unresolved right operand")
	}
	if _, err := testEval(t, "true || (missing > 1)", arena, id); err == nil {
		t.Error("expected eager || to surface the unresolved right operand")
	}
}

func TestDivisionByZero(t *testing.T) {
	arena, id := emptyScope()

	v := mustEval(t, "1 / 0", arena, id)
	n, ok := v.(*value.Number)
	if !ok || !math.IsInf(n.Value, 1) {
		t.Errorf("1 / 0 = %s, want +Inf", v.Inspect())
	}
}

func TestRangeOutsideLoopBounds(t *testing.T) {
	arena, id := emptyScope()

	_, err := testEval(t, "[0:2]", arena, id)
	if err == nil {
		t.Fatal("expected an error for a range expression outside loop bounds")
	}
	if !strings.Contains(err.Error(), "loop bounds") {
		t.Errorf("unexpected error message: %s", err)
	}
}

func TestUnaryMinusOnVector(t *testing.T) {
	arena, id := emptyScope()

	if got := mustEval(t, "-[1, 2]", arena, id).Inspect(); got != "[-1, -2]" {
		t.Errorf("got %s, want [-1, -2]", got)
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		v    value.Value
		want bool
	}{
		{&value.Boolean{Value: true}, true},
		{&value.Boolean{Value: false}, false},
		{&value.Number{Value: 1}, true},
		{&value.Number{Value: 0}, false},
		{&value.Number{Value: math.NaN()}, false},
		{&value.Text{Value: "x"}, true},
		{&value.Text{Value: ""}, false},
		{&value.Vector{}, true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTruthy(tt.v); got != tt.want {
			t.Errorf("IsTruthy(%v) = %t, want %t", tt.v, got, tt.want)
		}
	}
}

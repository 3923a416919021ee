// Package value defines the runtime values the evaluator produces:
// numbers, text, booleans and vectors. The set is closed; there are no
// implicit coercions between types.
package value

import (
	"fmt"
	"strings"
)

type ValueType string

const (
	NUMBER_VAL  ValueType = "NUMBER"
	TEXT_VAL    ValueType = "TEXT"
	BOOLEAN_VAL ValueType = "BOOLEAN"
	VECTOR_VAL  ValueType = "VECTOR"
)

type Value interface {
	Type() ValueType
	Inspect() string
}

// Number is a 64-bit float; the language has a single numeric type.
type Number struct {
	Value float64
}

func (n *Number) Type() ValueType { return NUMBER_VAL }
func (n *Number) Inspect() string { return fmt.Sprintf("%g", n.Value) }

// Text is a string value.
type Text struct {
	Value string
}

func (t *Text) Type() ValueType { return TEXT_VAL }
func (t *Text) Inspect() string { return fmt.Sprintf("%q", t.Value) }

// Boolean is a truth value.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ValueType { return BOOLEAN_VAL }
func (b *Boolean) Inspect() string { return fmt.Sprintf("%t", b.Value) }

// Vector is an ordered list of values, as produced by "[1, 2, 3]".
type Vector struct {
	Elements []Value
}

func (v *Vector) Type() ValueType { return VECTOR_VAL }
func (v *Vector) Inspect() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports deep structural equality. Values of different types are
// never equal; vectors compare elementwise.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *Number:
		return av.Value == b.(*Number).Value
	case *Text:
		return av.Value == b.(*Text).Value
	case *Boolean:
		return av.Value == b.(*Boolean).Value
	case *Vector:
		bv := b.(*Vector)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Package expand rewrites parsed trees into straight-line geometry
// statements. Loops unroll into one cloned body per iteration with the
// iterator replaced by its literal value. Conditionals collapse to the
// branch their condition selects. Assignments are evaluated into the
// scope, inlined into the statements that follow, and dropped from the
// output. After a full pass every identifier with a known value has
// been replaced by a literal, so later stages can evaluate surviving
// expressions without the iteration scopes that produced them.
package expand

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/eval"
	"github.com/funvibe/solidscript/internal/scope"
	"github.com/funvibe/solidscript/internal/value"
)

// Mode selects which constructs a pass rewrites. Assignments and let
// bindings are threaded in every mode.
type Mode int

const (
	Loops Mode = 1 << iota
	Conditionals

	All = Loops | Conditionals
)

// maxLoopIterations caps a single loop's unrolled size so a runaway
// range fails with a reported error instead of exhausting memory.
const maxLoopIterations = 1_000_000

// Expander rewrites node lists against a scope arena. Each body it
// descends into gets its own scope frame, released when the walk leaves.
type Expander struct {
	arena *scope.Arena
}

func New(arena *scope.Arena) *Expander {
	return &Expander{arena: arena}
}

// Process rewrites nodes under the given mode. Constructs outside the
// mode pass through untouched, bodies included, so a later pass with
// the missing mode sees them exactly as parsed.
func (e *Expander) Process(nodes []*ast.Node, id scope.ID, mode Mode) ([]*ast.Node, error) {
	out := make([]*ast.Node, 0, len(nodes))
	bindings := make(map[string]*ast.Node)

	for _, node := range nodes {
		node = Substitute(node, bindings)
		if node == nil {
			continue
		}
		switch {
		case node.Type == ast.TypeAssignment:
			v, err := eval.Evaluate(node.Value, e.arena, id)
			if err != nil {
				return nil, err
			}
			e.arena.Set(id, node.Name, v)
			bindings[node.Name] = ValueNode(v, node.Span)

		case node.Type == ast.TypeLet:
			expanded, err := e.expandLet(node, id, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case node.Type == ast.TypeForLoop && mode&Loops != 0:
			expanded, err := e.expandLoop(node, id, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case node.Type == ast.TypeIfStatement && mode&Conditionals != 0:
			expanded, err := e.expandConditional(node, id, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case node.Type == ast.TypeForLoop || node.Type == ast.TypeIfStatement:
			// outside the current mode, kept exactly as parsed
			out = append(out, node)

		case len(node.Children) > 0:
			processed, err := e.processContainer(node, id, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, processed)

		default:
			out = append(out, node)
		}
	}
	return out, nil
}

// processContainer rewrites the child block of a shape or module call
// statement inside its own scope frame.
func (e *Expander) processContainer(node *ast.Node, id scope.ID, mode Mode) (*ast.Node, error) {
	frame := e.arena.NewScope(node.Type, id)
	defer e.arena.Release(frame)

	children, err := e.Process(node.Children, frame, mode)
	if err != nil {
		return nil, err
	}
	out := *node
	out.Children = children
	return &out, nil
}

func (e *Expander) expandLoop(node *ast.Node, id scope.ID, mode Mode) ([]*ast.Node, error) {
	if len(node.Parameters) != 1 || node.Parameters[0].Name == "" {
		return nil, newError(node, diagnostics.ErrE004, "for loop requires a single iterator binding")
	}
	iterator := node.Parameters[0].Name
	bound := node.Parameters[0].Value

	values, err := e.iterationValues(bound, id)
	if err != nil {
		return nil, err
	}

	out := make([]*ast.Node, 0, len(values)*len(node.Children))
	for _, v := range values {
		frame := e.arena.NewScope("for:"+iterator, id)
		e.arena.Set(frame, iterator, v)

		binding := map[string]*ast.Node{iterator: ValueNode(v, bound.Span)}
		body := make([]*ast.Node, len(node.Children))
		for i, child := range node.Children {
			body[i] = Substitute(child, binding)
		}

		expanded, err := e.Process(body, frame, mode)
		e.arena.Release(frame)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (e *Expander) expandConditional(node *ast.Node, id scope.ID, mode Mode) ([]*ast.Node, error) {
	res, err := eval.ProcessConditional(node, e.arena, id)
	if err != nil {
		return nil, err
	}
	frame := e.arena.NewScope("if:"+res.ExecutedBranch, id)
	defer e.arena.Release(frame)
	return e.Process(res.Nodes, frame, mode)
}

func (e *Expander) expandLet(node *ast.Node, id scope.ID, mode Mode) ([]*ast.Node, error) {
	frame := e.arena.NewScope("let", id)
	defer e.arena.Release(frame)

	bindings := make(map[string]*ast.Node, len(node.Parameters))
	for _, p := range node.Parameters {
		v, err := eval.Evaluate(p.Value, e.arena, frame)
		if err != nil {
			return nil, err
		}
		e.arena.Set(frame, p.Name, v)
		bindings[p.Name] = ValueNode(v, p.Value.Span)
	}

	body := make([]*ast.Node, len(node.Children))
	for i, child := range node.Children {
		body[i] = Substitute(child, bindings)
	}
	return e.Process(body, frame, mode)
}

// iterationValues resolves a loop bound into the ordered iteration
// values: a range expression walks start to end inclusive by step, any
// other expression must evaluate to a vector whose elements are
// iterated directly.
func (e *Expander) iterationValues(bound *ast.Node, id scope.ID) ([]value.Value, error) {
	if bound == nil {
		return nil, diagnostics.NewErrorAt(diagnostics.ErrE004, 0, 0, "for loop is missing its bounds")
	}
	if bound.Type == ast.TypeRangeExpression {
		return e.rangeValues(bound, id)
	}

	v, err := eval.Evaluate(bound, e.arena, id)
	if err != nil {
		return nil, err
	}
	vec, ok := v.(*value.Vector)
	if !ok {
		return nil, newError(bound, diagnostics.ErrE003, "for loop bounds must be a range or vector, got %s", v.Type())
	}
	return vec.Elements, nil
}

func (e *Expander) rangeValues(node *ast.Node, id scope.ID) ([]value.Value, error) {
	start, err := e.evalNumber(node.RangeStart, id, "range start")
	if err != nil {
		return nil, err
	}
	end, err := e.evalNumber(node.RangeEnd, id, "range end")
	if err != nil {
		return nil, err
	}
	step := 1.0
	if node.RangeStep != nil {
		if step, err = e.evalNumber(node.RangeStep, id, "range step"); err != nil {
			return nil, err
		}
	}
	if step == 0 {
		return nil, newError(node, diagnostics.ErrE004, "invalid loop range: step is zero")
	}

	var out []value.Value
	if step > 0 {
		for v := start; v <= end; v += step {
			out = append(out, &value.Number{Value: v})
			if len(out) > maxLoopIterations {
				return nil, newError(node, diagnostics.ErrE004, "loop exceeds %d iterations", maxLoopIterations)
			}
		}
	} else {
		for v := start; v >= end; v += step {
			out = append(out, &value.Number{Value: v})
			if len(out) > maxLoopIterations {
				return nil, newError(node, diagnostics.ErrE004, "loop exceeds %d iterations", maxLoopIterations)
			}
		}
	}
	return out, nil
}

func (e *Expander) evalNumber(expr *ast.Node, id scope.ID, label string) (float64, error) {
	v, err := eval.Evaluate(expr, e.arena, id)
	if err != nil {
		return 0, err
	}
	n, ok := v.(*value.Number)
	if !ok {
		return 0, newError(expr, diagnostics.ErrE003, "%s must be a number, got %s", label, v.Type())
	}
	return n.Value, nil
}

func newError(node *ast.Node, code diagnostics.Code, format string, args ...interface{}) *diagnostics.Diagnostic {
	if node == nil {
		return diagnostics.NewErrorAt(code, 0, 0, format, args...)
	}
	return diagnostics.NewErrorAt(code, node.Span.Start.Line, node.Span.Start.Column, format, args...)
}

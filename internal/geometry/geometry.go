// Package geometry turns normalized trees into ordered geometry nodes.
// It is the stage that actually instantiates user modules: call-site
// arguments are bound to declared parameters (positional first, then
// named, declared defaults filling the gaps), one scope frame per
// instantiation, bounded by a recursion depth limit. Solid models are
// built with the sdfx kernel; node types the kernel cannot express
// still emit, carrying their evaluated arguments without a solid.
package geometry

import (
	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/classify"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/eval"
	"github.com/funvibe/solidscript/internal/expand"
	"github.com/funvibe/solidscript/internal/modproc"
	"github.com/funvibe/solidscript/internal/perf"
	"github.com/funvibe/solidscript/internal/scope"
	"github.com/funvibe/solidscript/internal/value"
)

// Node is one emitted geometry element. The payload is opaque to the
// pipeline; render sinks decide how to interpret it.
type Node struct {
	ID       string
	Type     string
	Payload  *Payload
	Metadata Metadata
}

// Payload carries the kernel solid built for a node plus the evaluated
// arguments it was built from. Solid is nil for node types the kernel
// cannot express.
type Payload struct {
	Solid sdf.SDF3
	Args  map[string]value.Value
}

// Metadata links an emitted node back to its source. Module names the
// innermost module instantiation the node came from, empty for
// top-level statements.
type Metadata struct {
	Originating *ast.Node
	Module      string
}

// Options configures an Emitter. The zero value gets an empty registry
// and the default recursion depth. Mode selects the rewriting applied
// inside module bodies at instantiation; zero leaves loops and
// conditionals as parsed, so they fail emission the same way they would
// at the top level with their stages disabled.
type Options struct {
	Registry          *modproc.Registry
	MaxRecursionDepth int
	Mode              expand.Mode
	Tracker           *perf.Tracker
}

// Emitter walks statement lists and emits geometry nodes in source
// order. Module bodies are expanded at instantiation time with the same
// rewriter the pipeline stages use.
type Emitter struct {
	arena    *scope.Arena
	registry *modproc.Registry
	expander *expand.Expander
	mode     expand.Mode
	maxDepth int
	tracker  *perf.Tracker
	root     scope.ID
	newID    func() string
}

func NewEmitter(arena *scope.Arena, opts Options) *Emitter {
	if opts.Registry == nil {
		opts.Registry = modproc.NewRegistry()
	}
	if opts.MaxRecursionDepth <= 0 {
		opts.MaxRecursionDepth = modproc.DefaultMaxRecursionDepth
	}
	return &Emitter{
		arena:    arena,
		registry: opts.Registry,
		expander: expand.New(arena),
		mode:     opts.Mode,
		maxDepth: opts.MaxRecursionDepth,
		tracker:  opts.Tracker,
		newID:    uuid.NewString,
	}
}

// Emit produces geometry nodes for the given statements, resolving
// variables against the scope rooted at root.
func (e *Emitter) Emit(nodes []*ast.Node, root scope.ID) ([]*Node, error) {
	e.root = root
	return e.emitNodes(nodes, root, "", 0)
}

func (e *Emitter) emitNodes(nodes []*ast.Node, id scope.ID, module string, depth int) ([]*Node, error) {
	out := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		switch {
		case node == nil:
			continue

		case node.Type == ast.TypeModuleDefinition || node.Type == ast.TypeFunction:
			// declarations emit nothing

		case node.Type == ast.TypeAssignment:
			v, err := eval.Evaluate(node.Value, e.arena, id)
			if err != nil {
				return nil, err
			}
			e.arena.Set(id, node.Name, v)

		case node.Type == ast.TypeLet:
			// let bindings are mode-independent; the expander always
			// threads them, so a let that reached emission unexpanded
			// still resolves here.
			expanded, err := e.expander.Process([]*ast.Node{node}, id, e.mode)
			if err != nil {
				return nil, err
			}
			emitted, err := e.emitNodes(expanded, id, module, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, emitted...)

		case node.Type == ast.TypeModuleInstantiation:
			emitted, err := e.instantiate(node, id, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, emitted...)

		case classify.IsShape(node.Type):
			emitted, err := e.emitShape(node, id, module, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, emitted)

		default:
			return nil, newError(node, diagnostics.ErrG001, "unsupported node type: %s", node.Type)
		}
	}
	return out, nil
}

func (e *Emitter) emitShape(node *ast.Node, id scope.ID, module string, depth int) (*Node, error) {
	if e.tracker != nil {
		subject := node.Type
		if module != "" {
			subject = module
		}
		e.tracker.Start("emit "+node.Type, subject)
		defer e.tracker.End("emit " + node.Type)
	}

	solid, args, err := e.buildSolid(node, id, depth)
	if err != nil {
		return nil, err
	}
	return &Node{
		ID:       e.newID(),
		Type:     node.Type,
		Payload:  &Payload{Solid: solid, Args: args},
		Metadata: Metadata{Originating: node, Module: module},
	}, nil
}

// instantiate expands one module call: resolve the definition, bind
// arguments into a fresh frame, substitute the bound values into the
// body, expand it, and emit the result. The frame's parent is the run's
// root scope, so module bodies see globals but not caller locals.
func (e *Emitter) instantiate(node *ast.Node, id scope.ID, depth int) ([]*Node, error) {
	if depth >= e.maxDepth {
		return nil, newError(node, diagnostics.ErrM005, "module recursion depth exceeded (max %d)", e.maxDepth)
	}
	call, err := modproc.ProcessCall(node)
	if err != nil {
		return nil, err
	}
	def, err := e.registry.Resolve(call)
	if err != nil {
		return nil, err
	}

	frame, literals, err := e.bindArguments(def, call, id)
	if err != nil {
		return nil, err
	}
	defer e.arena.Release(frame)

	body := make([]*ast.Node, len(def.Body))
	for i, stmt := range def.Body {
		body[i] = expand.Substitute(stmt, literals)
	}
	expanded, err := e.expander.Process(body, frame, e.mode)
	if err != nil {
		return nil, err
	}
	return e.emitNodes(expanded, frame, def.Name, depth+1)
}

// bindArguments merges a call's arguments into the callee's declared
// parameters. Positional arguments fill parameters in declaration
// order, named arguments bind by name, and declared defaults cover the
// rest; a default may reference parameters declared before it. The
// bound values are returned both as a populated scope frame and as
// literal nodes for substitution into the module body.
func (e *Emitter) bindArguments(def *modproc.Definition, call *modproc.Call, caller scope.ID) (scope.ID, map[string]*ast.Node, error) {
	index := make(map[string]int, len(def.Parameters))
	for i, p := range def.Parameters {
		index[p.Name] = i
	}

	explicit := make([]value.Value, len(def.Parameters))
	positional := 0
	for _, arg := range call.Arguments {
		var slot int
		if arg.Name == "" {
			if positional >= len(def.Parameters) {
				return scope.None, nil, callError(call, "too many arguments in call to %q", def.Name)
			}
			slot = positional
			positional++
		} else {
			i, ok := index[arg.Name]
			if !ok {
				return scope.None, nil, callError(call, "unknown argument %q in call to %q", arg.Name, def.Name)
			}
			slot = i
		}
		if explicit[slot] != nil {
			return scope.None, nil, callError(call, "duplicate argument %q in call to %q", def.Parameters[slot].Name, def.Name)
		}
		v, err := eval.Evaluate(arg.Value, e.arena, caller)
		if err != nil {
			return scope.None, nil, err
		}
		explicit[slot] = v
	}

	frame := e.arena.NewScope("module:"+def.Name, e.root)
	literals := make(map[string]*ast.Node, len(def.Parameters))
	span := callSpan(call)
	for i, p := range def.Parameters {
		v := explicit[i]
		if v == nil {
			if p.Default == nil {
				e.arena.Release(frame)
				return scope.None, nil, callError(call, "missing argument %q in call to %q", p.Name, def.Name)
			}
			dv, err := eval.Evaluate(p.Default, e.arena, frame)
			if err != nil {
				e.arena.Release(frame)
				return scope.None, nil, err
			}
			v = dv
		}
		e.arena.Set(frame, p.Name, v)
		literals[p.Name] = expand.ValueNode(v, span)
	}
	return frame, literals, nil
}

func callSpan(call *modproc.Call) ast.Span {
	if call.Node != nil {
		return call.Node.Span
	}
	return ast.Span{}
}

func callError(call *modproc.Call, format string, args ...interface{}) error {
	return newError(call.Node, diagnostics.ErrM002, format, args...)
}

func newError(node *ast.Node, code diagnostics.Code, format string, args ...interface{}) *diagnostics.Diagnostic {
	if node == nil {
		return diagnostics.NewErrorAt(code, 0, 0, format, args...)
	}
	return diagnostics.NewErrorAt(code, node.Span.Start.Line, node.Span.Start.Column, format, args...)
}

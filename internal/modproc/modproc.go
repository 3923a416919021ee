// Package modproc validates module definitions and instantiations and
// keeps the registry that maps module names to their definitions.
//
// Argument-to-parameter binding does not happen here. A Call carries
// the call site's own argument list verbatim; merging in the callee's
// declared defaults is the instantiating stage's job, using the
// Definition and the Call together.
package modproc

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
)

// DefaultMaxRecursionDepth bounds nested module instantiation.
const DefaultMaxRecursionDepth = 100

// Definition is a validated module definition. Parameters and Body are
// deep copies in declaration order; the original node stays untouched.
type Definition struct {
	Name       string
	Parameters []ast.ParamDecl
	Body       []*ast.Node
	Node       *ast.Node
}

// Call is a validated module instantiation. Arguments keep call order;
// positional arguments have an empty Name.
type Call struct {
	Name      string
	Arguments []ast.Param
	Children  []*ast.Node
	Node      *ast.Node
}

// ProcessDefinition checks a module_definition node and copies its
// declared shape out verbatim. Duplicate parameter names are rejected.
func ProcessDefinition(node *ast.Node) (*Definition, error) {
	if node == nil {
		return nil, diagnostics.NewErrorAt(diagnostics.ErrM001, 0, 0, "malformed module definition: nil node")
	}
	if node.Type != ast.TypeModuleDefinition {
		return nil, newError(node, diagnostics.ErrM001, "malformed module definition: unexpected node type %s", node.Type)
	}
	if node.Name == "" {
		return nil, newError(node, diagnostics.ErrM001, "malformed module definition: missing name")
	}
	if node.Body == nil {
		return nil, newError(node, diagnostics.ErrM001, "malformed module definition %q: missing body", node.Name)
	}

	seen := make(map[string]bool, len(node.Params))
	params := make([]ast.ParamDecl, len(node.Params))
	for i, p := range node.Params {
		if seen[p.Name] {
			return nil, newError(node, diagnostics.ErrM003, "duplicate parameter name %q in module %q", p.Name, node.Name)
		}
		seen[p.Name] = true
		params[i] = ast.ParamDecl{Name: p.Name, Default: p.Default.Clone()}
	}

	return &Definition{
		Name:       node.Name,
		Parameters: params,
		Body:       ast.CloneNodes(node.Body),
		Node:       node,
	}, nil
}

// ProcessCall checks a module_instantiation node and copies its argument
// list out in call order. Resolution against the registry is separate.
func ProcessCall(node *ast.Node) (*Call, error) {
	if node == nil {
		return nil, diagnostics.NewErrorAt(diagnostics.ErrM002, 0, 0, "malformed module call: nil node")
	}
	if node.Type != ast.TypeModuleInstantiation {
		return nil, newError(node, diagnostics.ErrM002, "malformed module call: unexpected node type %s", node.Type)
	}
	if node.Name == "" {
		return nil, newError(node, diagnostics.ErrM002, "malformed module call: missing name")
	}

	args := make([]ast.Param, len(node.Parameters))
	for i, a := range node.Parameters {
		args[i] = ast.Param{Name: a.Name, Value: a.Value.Clone()}
	}

	return &Call{
		Name:      node.Name,
		Arguments: args,
		Children:  ast.CloneNodes(node.Children),
		Node:      node,
	}, nil
}

// Registry maps module names to definitions. Redefining a name replaces
// the earlier definition; the last definition in source order wins.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

func (r *Registry) Register(def *Definition) {
	if _, ok := r.defs[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Resolve returns the definition a call refers to, or a module-not-found
// error carrying the call site's position.
func (r *Registry) Resolve(call *Call) (*Definition, error) {
	if def, ok := r.defs[call.Name]; ok {
		return def, nil
	}
	return nil, newError(call.Node, diagnostics.ErrM004, "module not found: %s", call.Name)
}

// Names returns the registered module names in first-registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.defs)
}

// Processor runs the module stage over a parsed tree: it collects
// definitions into its registry and validates every call against them.
type Processor struct {
	Registry          *Registry
	MaxRecursionDepth int
}

func NewProcessor() *Processor {
	return &Processor{
		Registry:          NewRegistry(),
		MaxRecursionDepth: DefaultMaxRecursionDepth,
	}
}

// CollectDefinitions registers every top-level module definition and
// returns the remaining nodes in their original order.
func (p *Processor) CollectDefinitions(nodes []*ast.Node) ([]*ast.Node, error) {
	rest := make([]*ast.Node, 0, len(nodes))
	for _, node := range nodes {
		if node != nil && node.Type == ast.TypeModuleDefinition {
			def, err := ProcessDefinition(node)
			if err != nil {
				return nil, err
			}
			p.Registry.Register(def)
			continue
		}
		rest = append(rest, node)
	}
	return rest, nil
}

// ValidateCalls walks the whole tree and checks that every module
// instantiation resolves against the registry.
func (p *Processor) ValidateCalls(nodes []*ast.Node) error {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if node.Type == ast.TypeModuleInstantiation {
			call, err := ProcessCall(node)
			if err != nil {
				return err
			}
			if _, err := p.Registry.Resolve(call); err != nil {
				return err
			}
		}
		for _, body := range [][]*ast.Node{node.Children, node.Body, node.ThenBody, node.ElseBody} {
			if err := p.ValidateCalls(body); err != nil {
				return err
			}
		}
	}
	return nil
}

func newError(node *ast.Node, code diagnostics.Code, format string, args ...interface{}) *diagnostics.Diagnostic {
	if node == nil {
		return diagnostics.NewErrorAt(code, 0, 0, format, args...)
	}
	return diagnostics.NewErrorAt(code, node.Span.Start.Line, node.Span.Start.Column, format, args...)
}

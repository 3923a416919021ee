// Package classify categorizes AST nodes into the semantic roles the rest
// of the pipeline dispatches on, and performs the per-node processing
// step: validation, category lookup, parameter extraction and best-effort
// child processing.
package classify

import (
	"runtime"
	"strconv"
	"time"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
)

// Category is the semantic role of a node type. Every type name maps to
// exactly one category; names missing from the membership tables map to
// Unknown, which processing treats as a hard error rather than a silent
// pass-through.
type Category string

const (
	Primitive      Category = "primitive"
	Transformation Category = "transformation"
	CSGOperation   Category = "csg_operation"
	ControlFlow    Category = "control_flow"
	Unknown        Category = "unknown"
)

// categories is the closed membership table. The control-flow rows list
// both the surface keywords and the statement node types the parser
// produces for them, so classification works on raw and rewritten trees
// alike.
var categories = map[string]Category{
	"cube":       Primitive,
	"sphere":     Primitive,
	"cylinder":   Primitive,
	"polyhedron": Primitive,
	"square":     Primitive,
	"circle":     Primitive,
	"polygon":    Primitive,
	"text":       Primitive,

	"translate":  Transformation,
	"rotate":     Transformation,
	"scale":      Transformation,
	"mirror":     Transformation,
	"multmatrix": Transformation,
	"color":      Transformation,

	"union":        CSGOperation,
	"difference":   CSGOperation,
	"intersection": CSGOperation,
	"hull":         CSGOperation,
	"minkowski":    CSGOperation,

	"for":      ControlFlow,
	"if":       ControlFlow,
	"each":     ControlFlow,
	"module":   ControlFlow,
	"function": ControlFlow,

	ast.TypeLet:                 ControlFlow,
	ast.TypeForLoop:             ControlFlow,
	ast.TypeIfStatement:         ControlFlow,
	ast.TypeModuleDefinition:    ControlFlow,
	ast.TypeModuleInstantiation: ControlFlow,
	ast.TypeAssignment:          ControlFlow,
}

// Of returns the category for a node type name. It is total: unmapped
// names return Unknown.
func Of(typeName string) Category {
	if c, ok := categories[typeName]; ok {
		return c
	}
	return Unknown
}

// Classify returns the category of the node's type.
func Classify(node *ast.Node) Category {
	if node == nil {
		return Unknown
	}
	return Of(node.Type)
}

// IsShape reports whether a type name denotes a construct that produces
// geometry directly: a primitive, a transformation or a CSG operation.
// The parser uses this to tell builtin shape statements apart from calls
// to user-defined modules.
func IsShape(typeName string) bool {
	switch Of(typeName) {
	case Primitive, Transformation, CSGOperation:
		return true
	}
	return false
}

// Validate reports whether a node is well-formed enough to classify: a
// non-empty type name and a source span. A node failing validation never
// proceeds to classification.
func Validate(node *ast.Node) bool {
	if node == nil || node.Type == "" {
		return false
	}
	return node.Span.Start.Line > 0
}

// ExtractParameters flattens a node's argument list into a map keyed by
// argument name. Positional arguments are keyed by their zero-based
// position rendered as a string. Values stay unevaluated; binding against
// a scope happens in later stages.
func ExtractParameters(node *ast.Node) map[string]*ast.Node {
	params := make(map[string]*ast.Node, len(node.Parameters))
	for i, p := range node.Parameters {
		key := p.Name
		if key == "" {
			key = strconv.Itoa(i)
		}
		params[key] = p.Value
	}
	return params
}

// SkippedChild records one child dropped during lenient processing.
type SkippedChild struct {
	Index  int
	Type   string
	Reason string
}

// Metadata carries the classifier's own timing and memory samples for a
// node, plus any children skipped under the lenient policy.
type Metadata struct {
	Duration  time.Duration
	HeapDelta int64
	Skipped   []SkippedChild
}

// ProcessedNode is the classifier's output for one node: the original
// node, its category, the flattened parameters and the surviving
// processed children.
type ProcessedNode struct {
	Original   *ast.Node
	Category   Category
	Parameters map[string]*ast.Node
	Children   []*ProcessedNode
	Metadata   Metadata
}

// Classifier runs per-node processing. Lenient selects the child policy:
// when true, a child that fails validation or classification is skipped
// and surfaced in metadata; when false, it aborts the whole node.
type Classifier struct {
	Lenient bool
}

// New returns a Classifier with the lenient child policy enabled.
func New() *Classifier {
	return &Classifier{Lenient: true}
}

// ProcessNode validates, classifies and flattens one node, recursing into
// its children.
func (c *Classifier) ProcessNode(node *ast.Node) (*ProcessedNode, error) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	out, err := c.process(node)
	if err != nil {
		return nil, err
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	out.Metadata.Duration = time.Since(start)
	out.Metadata.HeapDelta = int64(after.HeapAlloc) - int64(before.HeapAlloc)
	return out, nil
}

func (c *Classifier) process(node *ast.Node) (*ProcessedNode, error) {
	if !Validate(node) {
		return nil, validationError(node)
	}
	cat := Classify(node)
	if cat == Unknown {
		return nil, diagnostics.NewErrorAt(diagnostics.ErrP002,
			node.Span.Start.Line, node.Span.Start.Column,
			"unknown node type: %s", node.Type)
	}

	out := &ProcessedNode{
		Original:   node,
		Category:   cat,
		Parameters: ExtractParameters(node),
	}
	for i, child := range node.Children {
		childStart := time.Now()
		processed, err := c.process(child)
		if err != nil {
			if !c.Lenient {
				return nil, err
			}
			out.Metadata.Skipped = append(out.Metadata.Skipped, SkippedChild{
				Index:  i,
				Type:   childTypeName(child),
				Reason: err.Error(),
			})
			continue
		}
		processed.Metadata.Duration = time.Since(childStart)
		out.Children = append(out.Children, processed)
	}
	return out, nil
}

func validationError(node *ast.Node) error {
	if node == nil {
		return diagnostics.NewErrorAt(diagnostics.ErrP001, 0, 0, "node failed validation: nil node")
	}
	line, col := node.Span.Start.Line, node.Span.Start.Column
	if node.Type == "" {
		return diagnostics.NewErrorAt(diagnostics.ErrP001, line, col, "node failed validation: missing type")
	}
	return diagnostics.NewErrorAt(diagnostics.ErrP001, line, col, "node failed validation: missing source span")
}

func childTypeName(node *ast.Node) string {
	if node == nil {
		return ""
	}
	return node.Type
}

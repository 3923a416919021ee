// Package astproc runs nodes through a staged processing pipeline built
// around the classifier: an optional validation stage, the processing
// stage, and an optional optimization stage. Each run records which
// stages actually executed plus wall time and heap delta.
package astproc

import (
	"runtime"
	"time"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/classify"
	"github.com/funvibe/solidscript/internal/diagnostics"
)

// Stage names recorded in Result.StagesExecuted.
const (
	StageValidation   = "validation"
	StageProcessing   = "processing"
	StageOptimization = "optimization"
)

// Config selects the stages a pipeline runs. MaxProcessingTime is a soft
// budget: exceeding it sets Result.OverBudget, it never fails the run.
// Disabling validation skips the dedicated stage for trusted
// re-processing; the classifier still rejects malformed nodes itself.
type Config struct {
	EnableValidation   bool
	EnableOptimization bool
	EnableCaching      bool
	MaxProcessingTime  time.Duration

	// Optimizer replaces the pass-through optimization stage when set.
	// It runs once per processed node while optimization is enabled.
	Optimizer func(*classify.ProcessedNode) *classify.ProcessedNode
}

func DefaultConfig() Config {
	return Config{
		EnableValidation:   true,
		EnableOptimization: true,
		EnableCaching:      true,
		MaxProcessingTime:  30 * time.Second,
	}
}

// Result is the outcome of one pipeline run over a node or a batch.
type Result struct {
	Nodes          []*classify.ProcessedNode
	StagesExecuted []string
	Duration       time.Duration
	HeapDelta      int64
	OverBudget     bool
}

// Pipeline applies the configured stages to nodes. The cache is keyed by
// node identity and consulted only while caching is enabled.
type Pipeline struct {
	config     Config
	classifier *classify.Classifier
	cache      map[*ast.Node]*classify.ProcessedNode
}

func New(config Config) *Pipeline {
	return &Pipeline{
		config:     config,
		classifier: classify.New(),
		cache:      make(map[*ast.Node]*classify.ProcessedNode),
	}
}

func (p *Pipeline) Configuration() Config {
	return p.config
}

// ProcessNode runs a single node through the configured stages.
func (p *Pipeline) ProcessNode(node *ast.Node) (*Result, error) {
	return p.run([]*ast.Node{node}, false)
}

// ProcessNodes runs a batch under one shared outer timer. Each node
// still carries the classifier's own per-node timing. The first failing
// node aborts the whole batch with no partial results.
func (p *Pipeline) ProcessNodes(nodes []*ast.Node) (*Result, error) {
	return p.run(nodes, true)
}

func (p *Pipeline) run(nodes []*ast.Node, batch bool) (*Result, error) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	res := &Result{Nodes: make([]*classify.ProcessedNode, 0, len(nodes))}

	if p.config.EnableValidation {
		res.StagesExecuted = append(res.StagesExecuted, StageValidation)
		for i, node := range nodes {
			if !classify.Validate(node) {
				return nil, validationError(i, node, batch)
			}
		}
	}

	res.StagesExecuted = append(res.StagesExecuted, StageProcessing)
	for i, node := range nodes {
		out, err := p.processOne(node)
		if err != nil {
			if batch {
				return nil, batchError(i, node, err)
			}
			return nil, err
		}
		res.Nodes = append(res.Nodes, out)
	}

	if p.config.EnableOptimization {
		res.StagesExecuted = append(res.StagesExecuted, StageOptimization)
		for i, node := range res.Nodes {
			res.Nodes[i] = p.optimize(node)
		}
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	res.Duration = time.Since(start)
	res.HeapDelta = int64(after.HeapAlloc) - int64(before.HeapAlloc)
	if p.config.MaxProcessingTime > 0 && res.Duration > p.config.MaxProcessingTime {
		res.OverBudget = true
	}
	return res, nil
}

func (p *Pipeline) processOne(node *ast.Node) (*classify.ProcessedNode, error) {
	if p.config.EnableCaching {
		if cached, ok := p.cache[node]; ok {
			return cached, nil
		}
	}
	out, err := p.classifier.ProcessNode(node)
	if err != nil {
		return nil, err
	}
	if p.config.EnableCaching {
		p.cache[node] = out
	}
	return out, nil
}

// optimize is the named optimization stage: the configured hook, or a
// pass-through when none is set.
func (p *Pipeline) optimize(node *classify.ProcessedNode) *classify.ProcessedNode {
	if p.config.Optimizer != nil {
		return p.config.Optimizer(node)
	}
	return node
}

// InvalidateCache drops all cached results.
func (p *Pipeline) InvalidateCache() {
	p.cache = make(map[*ast.Node]*classify.ProcessedNode)
}

func validationError(index int, node *ast.Node, batch bool) error {
	line, col := 0, 0
	if node != nil {
		line, col = node.Span.Start.Line, node.Span.Start.Column
	}
	if batch {
		return diagnostics.NewErrorAt(diagnostics.ErrP001, line, col,
			"validation stage failed: %s at batch index %d", describeNode(node), index)
	}
	return diagnostics.NewErrorAt(diagnostics.ErrP001, line, col,
		"validation stage failed: %s", describeNode(node))
}

func batchError(index int, node *ast.Node, cause error) error {
	line, col := 0, 0
	if node != nil {
		line, col = node.Span.Start.Line, node.Span.Start.Column
	}
	return diagnostics.NewErrorAt(diagnostics.ErrP003, line, col,
		"batch aborted at node %d: %s", index, cause)
}

func describeNode(node *ast.Node) string {
	switch {
	case node == nil:
		return "nil node"
	case node.Type == "":
		return "node with missing type"
	default:
		return node.Type + " node with missing source span"
	}
}

// Package pipeline sequences the processing stages of a run. Each stage
// reads and extends a shared Context; the first failure stops the run,
// since later stages would only re-report consequences of it.
package pipeline

import (
	"context"
	"time"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/astproc"
	"github.com/funvibe/solidscript/internal/config"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/geometry"
	"github.com/funvibe/solidscript/internal/modproc"
	"github.com/funvibe/solidscript/internal/perf"
	"github.com/funvibe/solidscript/internal/scope"
)

// Context carries everything a run accumulates while moving through the
// stages. Stages communicate only through it.
type Context struct {
	Source string
	Config config.Config

	// Shared evaluation state, created once per run.
	Arena     *scope.Arena
	RootScope scope.ID
	Tracker   *perf.Tracker

	// Stage outputs. Statements is rewritten in place by the rewriting
	// stages; Registry and ASTResult are filled by their stages.
	Statements []*ast.Node
	Registry   *modproc.Registry
	ASTResult  *astproc.Result
	Geometry   []*geometry.Node

	// Run record. StagesCompleted and StageTiming cover only stages
	// that finished without error.
	StagesCompleted []string
	StageTiming     map[string]time.Duration

	Err *diagnostics.IntegrationError
}

// NewContext builds the starting context for one run. The tracker is
// created only when performance tracking is enabled; stages treat a nil
// tracker as "don't measure".
func NewContext(source string, cfg config.Config) *Context {
	arena := scope.NewArena()
	ctx := &Context{
		Source:      source,
		Config:      cfg,
		Arena:       arena,
		RootScope:   arena.NewScope("global", scope.None),
		StageTiming: map[string]time.Duration{},
	}
	if cfg.EnablePerformanceTracking {
		ctx.Tracker = perf.NewTracker()
	}
	return ctx
}

// Fail records the run's failure. Only the first failure is kept.
func (c *Context) Fail(err *diagnostics.IntegrationError) {
	if c.Err == nil {
		c.Err = err
	}
}

// Processor is one pipeline stage. Enabled decides whether the stage
// runs for this particular context; a skipped stage leaves no trace in
// the run record.
type Processor interface {
	Stage() diagnostics.Stage
	Enabled(pc *Context) bool
	Process(pc *Context) *Context
}

// Pipeline is an ordered sequence of processors.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the enabled stages in order, timing each one. The run
// stops at the first stage failure and at context cancellation, which is
// checked between stages only; a running stage is never interrupted.
func (p *Pipeline) Run(ctx context.Context, pc *Context) *Context {
	for _, proc := range p.processors {
		if pc.Err != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			pc.Fail(diagnostics.Wrap(proc.Stage(), diagnostics.CategoryInternal, err, map[string]interface{}{
				"reason": "canceled before stage",
			}))
			break
		}
		if !proc.Enabled(pc) {
			continue
		}

		name := string(proc.Stage())
		if pc.Tracker != nil {
			pc.Tracker.Start("stage "+name, "pipeline")
		}
		start := time.Now()
		pc = proc.Process(pc)
		if pc.Tracker != nil {
			pc.Tracker.End("stage " + name)
		}
		if pc.Err != nil {
			break
		}
		pc.StagesCompleted = append(pc.StagesCompleted, name)
		pc.StageTiming[name] = time.Since(start)
	}
	return pc
}

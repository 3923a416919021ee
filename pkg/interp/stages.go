package interp

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/astproc"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/expand"
	"github.com/funvibe/solidscript/internal/geometry"
	"github.com/funvibe/solidscript/internal/modproc"
	"github.com/funvibe/solidscript/internal/parser"
	"github.com/funvibe/solidscript/internal/pipeline"
)

// The optional stages run only when their flag is enabled and the tree
// actually contains the construct. hasAny scans every nested statement
// list so a loop inside a transformation block still triggers the loop
// stage.
func hasAny(nodes []*ast.Node, types ...string) bool {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		for _, t := range types {
			if node.Type == t {
				return true
			}
		}
		if hasAny(node.Children, types...) || hasAny(node.Body, types...) ||
			hasAny(node.ThenBody, types...) || hasAny(node.ElseBody, types...) {
			return true
		}
	}
	return false
}

// rewriteMode maps the stage flags onto the expander's mode, for module
// bodies expanded during geometry emission.
func rewriteMode(pc *pipeline.Context) expand.Mode {
	var mode expand.Mode
	if pc.Config.EnableLoopProcessing {
		mode |= expand.Loops
	}
	if pc.Config.EnableConditionalProcessing {
		mode |= expand.Conditionals
	}
	return mode
}

func fail(pc *pipeline.Context, stage diagnostics.Stage, cause error, context map[string]interface{}) *pipeline.Context {
	pc.Fail(diagnostics.Wrap(stage, diagnostics.CategoryOf(cause), cause, context))
	return pc
}

type parseStage struct{}

func (parseStage) Stage() diagnostics.Stage { return diagnostics.StageParsing }

func (parseStage) Enabled(*pipeline.Context) bool { return true }

func (parseStage) Process(pc *pipeline.Context) *pipeline.Context {
	par := parser.New(pc.Source)
	program := par.ParseProgram()
	if errs := par.Errors(); len(errs) > 0 {
		// The first diagnostic is the cause; the rest usually cascade
		// from it, so only their count travels in the context.
		return fail(pc, diagnostics.StageParsing, errs[0], map[string]interface{}{
			"error_count": len(errs),
		})
	}
	pc.Statements = program
	return pc
}

type astStage struct{}

func (astStage) Stage() diagnostics.Stage { return diagnostics.StageASTProcessing }

func (astStage) Enabled(*pipeline.Context) bool { return true }

func (astStage) Process(pc *pipeline.Context) *pipeline.Context {
	proc := astproc.New(astproc.Config{
		EnableValidation:   pc.Config.EnableValidation,
		EnableOptimization: pc.Config.EnableOptimization,
		EnableCaching:      pc.Config.EnableCaching,
		MaxProcessingTime:  pc.Config.MaxProcessingTime,
	})
	res, err := proc.ProcessNodes(pc.Statements)
	if err != nil {
		return fail(pc, diagnostics.StageASTProcessing, err, map[string]interface{}{
			"statement_count": len(pc.Statements),
		})
	}
	pc.ASTResult = res
	return pc
}

type moduleStage struct{}

func (moduleStage) Stage() diagnostics.Stage { return diagnostics.StageModules }

func (moduleStage) Enabled(pc *pipeline.Context) bool {
	return pc.Config.EnableModuleProcessing &&
		hasAny(pc.Statements, ast.TypeModuleDefinition, ast.TypeModuleInstantiation)
}

func (moduleStage) Process(pc *pipeline.Context) *pipeline.Context {
	proc := modproc.NewProcessor()
	rest, err := proc.CollectDefinitions(pc.Statements)
	if err != nil {
		return fail(pc, diagnostics.StageModules, err, nil)
	}
	if err := proc.ValidateCalls(rest); err != nil {
		return fail(pc, diagnostics.StageModules, err, map[string]interface{}{
			"modules_registered": proc.Registry.Len(),
		})
	}
	pc.Registry = proc.Registry
	pc.Statements = rest
	return pc
}

type loopStage struct{}

func (loopStage) Stage() diagnostics.Stage { return diagnostics.StageLoops }

func (loopStage) Enabled(pc *pipeline.Context) bool {
	return pc.Config.EnableLoopProcessing && hasAny(pc.Statements, ast.TypeForLoop)
}

func (loopStage) Process(pc *pipeline.Context) *pipeline.Context {
	out, err := expand.New(pc.Arena).Process(pc.Statements, pc.RootScope, expand.Loops)
	if err != nil {
		return fail(pc, diagnostics.StageLoops, err, nil)
	}
	pc.Statements = out
	return pc
}

type conditionalStage struct{}

func (conditionalStage) Stage() diagnostics.Stage { return diagnostics.StageConditionals }

func (conditionalStage) Enabled(pc *pipeline.Context) bool {
	return pc.Config.EnableConditionalProcessing && hasAny(pc.Statements, ast.TypeIfStatement)
}

func (conditionalStage) Process(pc *pipeline.Context) *pipeline.Context {
	// A selected branch may contain loops the loop stage never saw,
	// because conditionals pass through it untouched. The loop bit
	// makes them unroll here instead of failing emission.
	mode := expand.Conditionals
	if pc.Config.EnableLoopProcessing {
		mode |= expand.Loops
	}
	out, err := expand.New(pc.Arena).Process(pc.Statements, pc.RootScope, mode)
	if err != nil {
		return fail(pc, diagnostics.StageConditionals, err, nil)
	}
	pc.Statements = out
	return pc
}

type geometryStage struct{}

func (geometryStage) Stage() diagnostics.Stage { return diagnostics.StageGeometry }

func (geometryStage) Enabled(*pipeline.Context) bool { return true }

func (geometryStage) Process(pc *pipeline.Context) *pipeline.Context {
	emitter := geometry.NewEmitter(pc.Arena, geometry.Options{
		Registry:          pc.Registry,
		MaxRecursionDepth: pc.Config.MaxRecursionDepth,
		Mode:              rewriteMode(pc),
		Tracker:           pc.Tracker,
	})
	nodes, err := emitter.Emit(pc.Statements, pc.RootScope)
	if err != nil {
		return fail(pc, diagnostics.StageGeometry, err, map[string]interface{}{
			"statement_count": len(pc.Statements),
		})
	}
	pc.Geometry = nodes
	return pc
}

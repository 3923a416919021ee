package interp

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/funvibe/solidscript/internal/config"
	"github.com/funvibe/solidscript/internal/diagnostics"
)

func newPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p := New(cfg)
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func process(t *testing.T, p *Pipeline, source string) *ProcessingResult {
	t.Helper()
	res, err := p.ProcessCode(context.Background(), source)
	if err != nil {
		t.Fatalf("ProcessCode(%q) failed: %v", source, err)
	}
	return res
}

func integrationError(t *testing.T, p *Pipeline, source string) *diagnostics.IntegrationError {
	t.Helper()
	_, err := p.ProcessCode(context.Background(), source)
	if err == nil {
		t.Fatalf("ProcessCode(%q) unexpectedly succeeded", source)
	}
	var ie *diagnostics.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("error is %T, want *diagnostics.IntegrationError", err)
	}
	return ie
}

func hasStage(stages []string, name string) bool {
	for _, s := range stages {
		if s == name {
			return true
		}
	}
	return false
}

func TestProcessCode_SimpleCube(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, "cube(10);")

	if len(res.GeometryNodes) != 1 {
		t.Fatalf("got %d geometry nodes, want 1", len(res.GeometryNodes))
	}
	if res.GeometryNodes[0].Type != "cube" {
		t.Errorf("node type = %q, want cube", res.GeometryNodes[0].Type)
	}
	if len(res.Summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(res.Summaries))
	}
	if b := res.Summaries[0].Bounds; b == nil || b.Max != [3]float64{10, 10, 10} {
		t.Errorf("summary bounds = %v, want max [10 10 10]", res.Summaries[0].Bounds)
	}

	want := []string{"parsing", "ast_processing", "geometry_generation"}
	if !reflect.DeepEqual(res.Metadata.StagesCompleted, want) {
		t.Errorf("StagesCompleted = %v, want %v", res.Metadata.StagesCompleted, want)
	}
	if len(res.Metadata.StageTiming) != len(want) {
		t.Errorf("StageTiming has %d entries, want %d", len(res.Metadata.StageTiming), len(want))
	}
	if res.Metadata.ProcessingTime <= 0 {
		t.Error("ProcessingTime not recorded")
	}
	if res.FromCache {
		t.Error("fresh run marked as cached")
	}
}

func TestProcessCode_EmptySource(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, "")

	if len(res.GeometryNodes) != 0 {
		t.Errorf("got %d geometry nodes, want 0", len(res.GeometryNodes))
	}
	want := []string{"parsing", "ast_processing", "geometry_generation"}
	if !reflect.DeepEqual(res.Metadata.StagesCompleted, want) {
		t.Errorf("StagesCompleted = %v, want %v", res.Metadata.StagesCompleted, want)
	}
}

func TestProcessCode_ModuleDefinitionAndCall(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, `
module box(w, h) {
    cube([w, h, 1]);
}
box(2, 3);
sphere(1);
`)

	if len(res.GeometryNodes) != 2 {
		t.Fatalf("got %d geometry nodes, want 2", len(res.GeometryNodes))
	}
	if res.Summaries[0].Module != "box" {
		t.Errorf("first summary module = %q, want box", res.Summaries[0].Module)
	}
	if res.Summaries[1].Type != "sphere" {
		t.Errorf("second summary type = %q, want sphere", res.Summaries[1].Type)
	}
	if !hasStage(res.Metadata.StagesCompleted, "module_processing") {
		t.Errorf("module_processing missing from %v", res.Metadata.StagesCompleted)
	}
	if hasStage(res.Metadata.StagesCompleted, "loop_processing") {
		t.Error("loop_processing ran without loops in the source")
	}
}

func TestProcessCode_LoopExpansion(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, "for (i = [0:2]) cube(i + 1);")

	if len(res.GeometryNodes) != 3 {
		t.Fatalf("got %d geometry nodes, want 3", len(res.GeometryNodes))
	}
	if !hasStage(res.Metadata.StagesCompleted, "loop_processing") {
		t.Errorf("loop_processing missing from %v", res.Metadata.StagesCompleted)
	}
}

func TestProcessCode_ConditionalSelectsBranch(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, `
x = 5;
if (x > 3) {
    cube(1);
} else {
    sphere(1);
}
`)

	if len(res.GeometryNodes) != 1 {
		t.Fatalf("got %d geometry nodes, want 1", len(res.GeometryNodes))
	}
	if res.GeometryNodes[0].Type != "cube" {
		t.Errorf("selected branch emitted %q, want cube", res.GeometryNodes[0].Type)
	}
	if !hasStage(res.Metadata.StagesCompleted, "conditional_processing") {
		t.Errorf("conditional_processing missing from %v", res.Metadata.StagesCompleted)
	}
}

func TestProcessCode_LoopInsideConditional(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, `
flag = true;
if (flag) {
    for (i = [0:1]) cube(i + 1);
}
`)

	if len(res.GeometryNodes) != 2 {
		t.Fatalf("got %d geometry nodes, want 2", len(res.GeometryNodes))
	}
	for _, stage := range []string{"loop_processing", "conditional_processing"} {
		if !hasStage(res.Metadata.StagesCompleted, stage) {
			t.Errorf("%s missing from %v", stage, res.Metadata.StagesCompleted)
		}
	}
}

func TestProcessCode_LetWithoutControlFlow(t *testing.T) {
	// No for or if in the source, so neither rewriting stage runs; the
	// let must still bind at emission.
	p := newPipeline(t, config.Default())
	res := process(t, p, "let (r = 3) { sphere(r); }")

	if len(res.GeometryNodes) != 1 {
		t.Fatalf("got %d geometry nodes, want 1", len(res.GeometryNodes))
	}
	want := []string{"parsing", "ast_processing", "geometry_generation"}
	if !reflect.DeepEqual(res.Metadata.StagesCompleted, want) {
		t.Errorf("StagesCompleted = %v, want %v", res.Metadata.StagesCompleted, want)
	}
}

func TestProcessCode_TransformFoldsChildren(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, "translate([1, 2, 3]) cube(1);")

	if len(res.GeometryNodes) != 1 {
		t.Fatalf("got %d geometry nodes, want 1", len(res.GeometryNodes))
	}
	if b := res.Summaries[0].Bounds; b == nil || b.Min != [3]float64{1, 2, 3} {
		t.Errorf("summary bounds = %v, want min [1 2 3]", res.Summaries[0].Bounds)
	}
}

func TestProcessCode_SyntaxError(t *testing.T) {
	p := newPipeline(t, config.Default())
	ie := integrationError(t, p, "cube(1")

	if ie.Stage != diagnostics.StageParsing {
		t.Errorf("stage = %s, want parsing", ie.Stage)
	}
	if ie.Category != diagnostics.CategorySyntax {
		t.Errorf("category = %s, want syntax_error", ie.Category)
	}
	if n, ok := ie.Context["error_count"].(int); !ok || n < 1 {
		t.Errorf("Context[error_count] = %v", ie.Context["error_count"])
	}
	if src, ok := ie.Context["source"].(string); !ok || src != "cube(1" {
		t.Errorf("Context[source] = %v, want the failing source", ie.Context["source"])
	}
	if len(ie.Suggestions) == 0 {
		t.Error("no recovery suggestions attached")
	}
}

func TestProcessCode_ModuleNotFoundAtModuleStage(t *testing.T) {
	p := newPipeline(t, config.Default())
	ie := integrationError(t, p, "gear(12);")

	if ie.Stage != diagnostics.StageModules {
		t.Errorf("stage = %s, want module_processing", ie.Stage)
	}
	if ie.Category != diagnostics.CategoryModule {
		t.Errorf("category = %s, want module_error", ie.Category)
	}
}

func TestProcessCode_ModuleNotFoundAtGeometryStage(t *testing.T) {
	// With the module stage disabled the unresolved call survives to
	// emission. The stage tag moves; the category stays a module error.
	cfg := config.Default()
	cfg.EnableModuleProcessing = false
	p := newPipeline(t, cfg)
	ie := integrationError(t, p, "gear(12);")

	if ie.Stage != diagnostics.StageGeometry {
		t.Errorf("stage = %s, want geometry_generation", ie.Stage)
	}
	if ie.Category != diagnostics.CategoryModule {
		t.Errorf("category = %s, want module_error", ie.Category)
	}
}

func TestProcessCode_DisabledLoopStageFailsEmission(t *testing.T) {
	cfg := config.Default()
	cfg.EnableLoopProcessing = false
	p := newPipeline(t, cfg)
	ie := integrationError(t, p, "for (i = [0:2]) cube(1);")

	if ie.Stage != diagnostics.StageGeometry {
		t.Errorf("stage = %s, want geometry_generation", ie.Stage)
	}
	if ie.Category != diagnostics.CategoryGeneration {
		t.Errorf("category = %s, want generation_error", ie.Category)
	}
}

func TestProcessCode_UndefinedConditionVariable(t *testing.T) {
	p := newPipeline(t, config.Default())
	ie := integrationError(t, p, "if (missing > 1) { cube(1); }")

	if ie.Stage != diagnostics.StageConditionals {
		t.Errorf("stage = %s, want conditional_processing", ie.Stage)
	}
	if ie.Category != diagnostics.CategoryProcessing {
		t.Errorf("category = %s, want processing_error", ie.Category)
	}
}

func TestProcessCode_BeforeInitialize(t *testing.T) {
	p := New(config.Default())
	_, err := p.ProcessCode(context.Background(), "cube(1);")

	var ie *diagnostics.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("error is %T, want *diagnostics.IntegrationError", err)
	}
	if ie.Stage != diagnostics.StageConfiguration {
		t.Errorf("stage = %s, want configuration", ie.Stage)
	}
	if ie.Category != diagnostics.CategoryConfiguration {
		t.Errorf("category = %s, want configuration_error", ie.Category)
	}
}

func TestProcessCode_AfterClose(t *testing.T) {
	p := newPipeline(t, config.Default())
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := p.ProcessCode(context.Background(), "cube(1);"); err == nil {
		t.Error("ProcessCode succeeded on a closed pipeline")
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	p := New(config.Default())
	if err := p.Initialize(); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := p.Initialize(); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
}

func TestInitialize_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRecursionDepth = 0
	p := New(cfg)

	err := p.Initialize()
	var ie *diagnostics.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("error is %T, want *diagnostics.IntegrationError", err)
	}
	if ie.Category != diagnostics.CategoryConfiguration {
		t.Errorf("category = %s, want configuration_error", ie.Category)
	}
}

func TestProcessCode_Cancellation(t *testing.T) {
	p := newPipeline(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessCode(ctx, "cube(1);")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled in the chain", err)
	}
	var ie *diagnostics.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("error is %T, want *diagnostics.IntegrationError", err)
	}
	if ie.Category != diagnostics.CategoryInternal {
		t.Errorf("category = %s, want internal_error", ie.Category)
	}
}

func TestProcessCode_Metrics(t *testing.T) {
	p := newPipeline(t, config.Default())
	res := process(t, p, "cube(1); sphere(2);")

	if res.Metrics == nil {
		t.Fatal("no metrics with tracking enabled")
	}
	if res.Metrics.TotalOperations == 0 {
		t.Error("metrics recorded no operations")
	}

	cfg := config.Default()
	cfg.EnablePerformanceTracking = false
	quiet := newPipeline(t, cfg)
	if res := process(t, quiet, "cube(1);"); res.Metrics != nil {
		t.Error("metrics present with tracking disabled")
	}
}

func TestProcessCode_CacheReplay(t *testing.T) {
	cfg := config.Default()
	cfg.CachePath = ":memory:"
	p := newPipeline(t, cfg)

	first := process(t, p, "cube(4);")
	if first.FromCache {
		t.Fatal("first run marked as cached")
	}
	if len(first.GeometryNodes) != 1 {
		t.Fatalf("first run emitted %d nodes, want 1", len(first.GeometryNodes))
	}

	second := process(t, p, "cube(4);")
	if !second.FromCache {
		t.Fatal("second run not served from cache")
	}
	if len(second.GeometryNodes) != 0 {
		t.Error("cached replay carries geometry nodes")
	}
	if len(second.Summaries) != 1 || second.Summaries[0].Type != "cube" {
		t.Errorf("cached summaries = %v, want one cube", second.Summaries)
	}
	if !reflect.DeepEqual(second.Metadata.StagesCompleted, first.Metadata.StagesCompleted) {
		t.Errorf("cached stages = %v, want %v",
			second.Metadata.StagesCompleted, first.Metadata.StagesCompleted)
	}
}

func TestProcessCode_CacheKeyedByConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	cfg := config.Default()
	cfg.CachePath = path
	p := newPipeline(t, cfg)
	process(t, p, "cube(4);")
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Same source under an output-affecting option change must miss.
	changed := config.Default()
	changed.CachePath = path
	changed.EnableLoopProcessing = false
	q := newPipeline(t, changed)
	if res := process(t, q, "cube(4);"); res.FromCache {
		t.Error("config change did not invalidate the cached result")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The original configuration still hits its persisted entry.
	r := newPipeline(t, cfg)
	if res := process(t, r, "cube(4);"); !res.FromCache {
		t.Error("persisted entry not replayed for the original config")
	}
}

func TestProcessCode_CachingDisabledWithoutPath(t *testing.T) {
	p := newPipeline(t, config.Default())
	process(t, p, "cube(4);")
	if res := process(t, p, "cube(4);"); res.FromCache {
		t.Error("result cache active without a cache path")
	}
}

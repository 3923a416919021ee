// Package interp is the embedding surface of the solidscript pipeline.
// It wires the stages together, owns the result cache, and turns stage
// failures into the single IntegrationError callers see.
package interp

import (
	"context"
	"runtime"
	"time"

	"github.com/funvibe/solidscript/internal/cache"
	"github.com/funvibe/solidscript/internal/config"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/geometry"
	"github.com/funvibe/solidscript/internal/perf"
	"github.com/funvibe/solidscript/internal/pipeline"
	"github.com/funvibe/solidscript/internal/render"
)

// Metadata describes one completed run. StagesCompleted lists stages in
// execution order; skipped stages are absent, not recorded as empty.
type Metadata struct {
	ProcessingTime  time.Duration
	MemoryUsage     int64
	StagesCompleted []string
	StageTiming     map[string]time.Duration
}

// ProcessingResult is the outcome of a successful run. Summaries are
// always present; GeometryNodes only for fresh runs, since solids are
// not serializable and cached replays carry summaries alone.
type ProcessingResult struct {
	GeometryNodes []*geometry.Node
	Summaries     []render.Summary
	Metadata      Metadata
	Metrics       *perf.Metrics
	FromCache     bool
}

// Pipeline processes source code through the staged run. It is not safe
// for concurrent use; embedders wanting parallel runs create one
// Pipeline per goroutine.
type Pipeline struct {
	config      config.Config
	store       *cache.Store
	initialized bool
}

// New builds a pipeline with the given configuration. Initialize must be
// called before the first ProcessCode.
func New(cfg config.Config) *Pipeline {
	return &Pipeline{config: cfg}
}

// Initialize validates the configuration and opens the result cache when
// one is configured. Calling it again is a no-op.
func (p *Pipeline) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := p.config.Validate(); err != nil {
		return diagnostics.Wrap(
			diagnostics.StageConfiguration,
			diagnostics.CategoryConfiguration,
			diagnostics.NewErrorAt(diagnostics.ErrC002, 0, 0, "invalid configuration: %s", err),
			nil,
		)
	}
	// The result cache stores summaries, not solids, so it is opt-in
	// via an explicit path. Use ":memory:" for a per-process cache.
	if p.config.EnableCaching && p.config.CachePath != "" {
		store, err := cache.Open(p.config.CachePath)
		if err != nil {
			return diagnostics.Wrap(
				diagnostics.StageConfiguration,
				diagnostics.CategoryConfiguration,
				diagnostics.NewErrorAt(diagnostics.ErrC002, 0, 0, "opening result cache %s: %s", p.config.CachePath, err),
				map[string]interface{}{"cache_path": p.config.CachePath},
			)
		}
		p.store = store
	}
	p.initialized = true
	return nil
}

// Configuration returns the pipeline's configuration.
func (p *Pipeline) Configuration() config.Config {
	return p.config
}

// Close releases the result cache. The pipeline must be re-initialized
// before further use.
func (p *Pipeline) Close() error {
	p.initialized = false
	if p.store == nil {
		return nil
	}
	store := p.store
	p.store = nil
	return store.Close()
}

// ProcessCode runs source through the pipeline and returns the geometry
// it produces. Cancellation is honored between stages; a stage that has
// started always runs to completion. On failure the returned error is a
// *diagnostics.IntegrationError tagged with the failing stage.
func (p *Pipeline) ProcessCode(ctx context.Context, source string) (*ProcessingResult, error) {
	if !p.initialized {
		return nil, diagnostics.Wrap(
			diagnostics.StageConfiguration,
			diagnostics.CategoryConfiguration,
			diagnostics.NewErrorAt(diagnostics.ErrC001, 0, 0, "ProcessCode called before Initialize"),
			map[string]interface{}{"source": source},
		)
	}

	key := cache.Key(source, p.config.Fingerprint())
	if p.store != nil {
		if entry, ok, err := p.store.Get(ctx, key); err == nil && ok {
			return replayResult(entry), nil
		}
		// A failed lookup is not a run failure; process fresh.
	}

	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	pc := pipeline.New(
		parseStage{},
		astStage{},
		moduleStage{},
		loopStage{},
		conditionalStage{},
		geometryStage{},
	).Run(ctx, pipeline.NewContext(source, p.config))
	if pc.Err != nil {
		// Every failure context carries the source; stages add only
		// their own detail.
		pc.Err.Context["source"] = source
		return nil, pc.Err
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	res := &ProcessingResult{
		GeometryNodes: pc.Geometry,
		Summaries:     render.SummarizeAll(pc.Geometry),
		Metadata: Metadata{
			ProcessingTime:  time.Since(start),
			MemoryUsage:     int64(after.HeapAlloc) - int64(before.HeapAlloc),
			StagesCompleted: pc.StagesCompleted,
			StageTiming:     pc.StageTiming,
		},
	}
	if pc.Tracker != nil {
		m := pc.Tracker.Metrics()
		res.Metrics = &m
	}

	if p.store != nil {
		// Best effort: a full cache or unwritable path never fails a
		// run that already produced its geometry.
		_ = p.store.Put(ctx, &cache.Entry{
			Key:       key,
			Summaries: res.Summaries,
			Stages:    stageRecords(res.Metadata),
		})
	}
	return res, nil
}

func replayResult(entry *cache.Entry) *ProcessingResult {
	meta := Metadata{StageTiming: make(map[string]time.Duration, len(entry.Stages))}
	for _, s := range entry.Stages {
		meta.StagesCompleted = append(meta.StagesCompleted, s.Name)
		meta.StageTiming[s.Name] = s.Duration
	}
	return &ProcessingResult{
		Summaries: entry.Summaries,
		Metadata:  meta,
		FromCache: true,
	}
}

func stageRecords(meta Metadata) []cache.StageRecord {
	records := make([]cache.StageRecord, 0, len(meta.StagesCompleted))
	for _, name := range meta.StagesCompleted {
		records = append(records, cache.StageRecord{Name: name, Duration: meta.StageTiming[name]})
	}
	return records
}

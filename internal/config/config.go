// Package config defines the pipeline configuration.
//
// A Config is constructed once per pipeline instance and passed into
// each stage call; no stage reads ambient or global configuration.
// Options can be loaded from a solidscript.yaml file, with omitted
// keys keeping their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the structural limits.
const (
	DefaultMaxProcessingTime = 30 * time.Second
	DefaultMaxRecursionDepth = 100
)

// Config controls which pipeline stages run and their structural
// limits. Treat values as immutable once the pipeline is initialized.
type Config struct {
	// EnableModuleProcessing runs the module collection stage when the
	// source defines or instantiates modules.
	EnableModuleProcessing bool

	// EnableLoopProcessing unrolls for loops before geometry emission.
	EnableLoopProcessing bool

	// EnableConditionalProcessing rewrites if/else statements to their
	// selected branch before geometry emission.
	EnableConditionalProcessing bool

	// EnablePerformanceTracking records per-operation timing and memory
	// metrics during geometry emission.
	EnablePerformanceTracking bool

	// EnableValidation runs node validation ahead of classification.
	// Turning it off accelerates re-processing of trusted trees.
	EnableValidation bool

	// EnableOptimization runs the optimization stage of the AST
	// pipeline. The stage is a named placeholder.
	EnableOptimization bool

	// EnableCaching turns on the processed-node cache and, together
	// with CachePath, result replay for unchanged sources.
	EnableCaching bool

	// MaxProcessingTime is the soft AST-pipeline budget. Exceeding it
	// flags the result as over budget; it does not abort processing.
	MaxProcessingTime time.Duration

	// MaxRecursionDepth bounds module instantiation depth.
	MaxRecursionDepth int

	// CachePath locates the result cache database. Empty disables the
	// result cache; ":memory:" keeps one for the life of the pipeline
	// instance.
	CachePath string
}

// Default returns the stock configuration: every stage enabled, a 30s
// processing budget and module recursion bounded at 100.
func Default() Config {
	return Config{
		EnableModuleProcessing:      true,
		EnableLoopProcessing:        true,
		EnableConditionalProcessing: true,
		EnablePerformanceTracking:   true,
		EnableValidation:            true,
		EnableOptimization:          true,
		EnableCaching:               true,
		MaxProcessingTime:           DefaultMaxProcessingTime,
		MaxRecursionDepth:           DefaultMaxRecursionDepth,
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.MaxProcessingTime < 0 {
		return fmt.Errorf("max_processing_time_ms must not be negative, got %d", c.MaxProcessingTime.Milliseconds())
	}
	if c.MaxRecursionDepth < 1 {
		return fmt.Errorf("max_recursion_depth must be at least 1, got %d", c.MaxRecursionDepth)
	}
	return nil
}

// Fingerprint encodes every option that can change what a run emits.
// Cache keys include it, so flipping any of these options invalidates
// prior results. Options that only affect instrumentation or the cache
// itself are left out.
func (c Config) Fingerprint() string {
	return fmt.Sprintf("mod=%t,loop=%t,cond=%t,valid=%t,opt=%t,depth=%d",
		c.EnableModuleProcessing,
		c.EnableLoopProcessing,
		c.EnableConditionalProcessing,
		c.EnableValidation,
		c.EnableOptimization,
		c.MaxRecursionDepth)
}

// wireConfig is the YAML schema of solidscript.yaml. The processing
// budget is an integer millisecond count on the wire.
type wireConfig struct {
	EnableModuleProcessing      bool   `yaml:"enable_module_processing"`
	EnableLoopProcessing        bool   `yaml:"enable_loop_processing"`
	EnableConditionalProcessing bool   `yaml:"enable_conditional_processing"`
	EnablePerformanceTracking   bool   `yaml:"enable_performance_tracking"`
	EnableValidation            bool   `yaml:"enable_validation"`
	EnableOptimization          bool   `yaml:"enable_optimization"`
	EnableCaching               bool   `yaml:"enable_caching"`
	MaxProcessingTimeMS         int64  `yaml:"max_processing_time_ms"`
	MaxRecursionDepth           int    `yaml:"max_recursion_depth"`
	CachePath                   string `yaml:"cache_path"`
}

func fromConfig(c Config) wireConfig {
	return wireConfig{
		EnableModuleProcessing:      c.EnableModuleProcessing,
		EnableLoopProcessing:        c.EnableLoopProcessing,
		EnableConditionalProcessing: c.EnableConditionalProcessing,
		EnablePerformanceTracking:   c.EnablePerformanceTracking,
		EnableValidation:            c.EnableValidation,
		EnableOptimization:          c.EnableOptimization,
		EnableCaching:               c.EnableCaching,
		MaxProcessingTimeMS:         c.MaxProcessingTime.Milliseconds(),
		MaxRecursionDepth:           c.MaxRecursionDepth,
		CachePath:                   c.CachePath,
	}
}

func (w wireConfig) toConfig() Config {
	return Config{
		EnableModuleProcessing:      w.EnableModuleProcessing,
		EnableLoopProcessing:        w.EnableLoopProcessing,
		EnableConditionalProcessing: w.EnableConditionalProcessing,
		EnablePerformanceTracking:   w.EnablePerformanceTracking,
		EnableValidation:            w.EnableValidation,
		EnableOptimization:          w.EnableOptimization,
		EnableCaching:               w.EnableCaching,
		MaxProcessingTime:           time.Duration(w.MaxProcessingTimeMS) * time.Millisecond,
		MaxRecursionDepth:           w.MaxRecursionDepth,
		CachePath:                   w.CachePath,
	}
}

// Load reads and parses a solidscript.yaml file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses solidscript.yaml content. Keys absent from the document
// keep their defaults. The path argument is used only for error
// messages.
func Parse(data []byte, path string) (Config, error) {
	wire := fromConfig(Default())
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg := wire.toConfig()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find searches for solidscript.yaml starting at dir and walking up to
// parent directories. Returns the path if found, or an empty string
// (and no error) if no config exists on the way to the root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"solidscript.yaml", "solidscript.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.EnableModuleProcessing || !cfg.EnableLoopProcessing || !cfg.EnableConditionalProcessing {
		t.Error("stage processing should default to enabled")
	}
	if !cfg.EnablePerformanceTracking || !cfg.EnableValidation || !cfg.EnableOptimization || !cfg.EnableCaching {
		t.Error("tracking, validation, optimization and caching should default to enabled")
	}
	if cfg.MaxProcessingTime != 30*time.Second {
		t.Errorf("MaxProcessingTime = %v, want 30s", cfg.MaxProcessingTime)
	}
	if cfg.MaxRecursionDepth != 100 {
		t.Errorf("MaxRecursionDepth = %d, want 100", cfg.MaxRecursionDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestParse_OverridesAndDefaults(t *testing.T) {
	yaml := `
enable_caching: false
enable_loop_processing: false
max_processing_time_ms: 5000
max_recursion_depth: 12
cache_path: /tmp/solidscript-cache.db
`
	cfg, err := Parse([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EnableCaching {
		t.Error("enable_caching: false was not applied")
	}
	if cfg.EnableLoopProcessing {
		t.Error("enable_loop_processing: false was not applied")
	}
	if cfg.MaxProcessingTime != 5*time.Second {
		t.Errorf("MaxProcessingTime = %v, want 5s", cfg.MaxProcessingTime)
	}
	if cfg.MaxRecursionDepth != 12 {
		t.Errorf("MaxRecursionDepth = %d, want 12", cfg.MaxRecursionDepth)
	}
	if cfg.CachePath != "/tmp/solidscript-cache.db" {
		t.Errorf("CachePath = %q", cfg.CachePath)
	}
	// Keys absent from the document keep their defaults.
	if !cfg.EnableModuleProcessing || !cfg.EnableConditionalProcessing || !cfg.EnableValidation {
		t.Error("omitted keys should keep their defaults")
	}
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	cfg, err := Parse(nil, "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty document = %+v, want defaults", cfg)
	}
}

func TestParse_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero depth", "max_recursion_depth: 0", "max_recursion_depth"},
		{"negative budget", "max_processing_time_ms: -1", "max_processing_time_ms"},
		{"malformed yaml", "enable_caching: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solidscript.yaml")
	if err := os.WriteFile(path, []byte("max_recursion_depth: 7\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxRecursionDepth != 7 {
		t.Errorf("MaxRecursionDepth = %d, want 7", cfg.MaxRecursionDepth)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := filepath.Join(root, "solidscript.yaml")
	if err := os.WriteFile(want, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := Find(nested)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
}

func TestFind_NoConfig(t *testing.T) {
	got, err := Find(t.TempDir())
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got != "" {
		t.Errorf("Find = %q, want empty for no config", got)
	}
}

func TestFingerprint(t *testing.T) {
	base := Default()

	same := Default()
	if base.Fingerprint() != same.Fingerprint() {
		t.Error("identical configs should share a fingerprint")
	}

	for name, mutate := range map[string]func(*Config){
		"module processing": func(c *Config) { c.EnableModuleProcessing = false },
		"loop processing":   func(c *Config) { c.EnableLoopProcessing = false },
		"conditionals":      func(c *Config) { c.EnableConditionalProcessing = false },
		"validation":        func(c *Config) { c.EnableValidation = false },
		"optimization":      func(c *Config) { c.EnableOptimization = false },
		"recursion depth":   func(c *Config) { c.MaxRecursionDepth = 5 },
	} {
		changed := Default()
		mutate(&changed)
		if changed.Fingerprint() == base.Fingerprint() {
			t.Errorf("changing %s should change the fingerprint", name)
		}
	}

	// Cache and instrumentation toggles do not change what a run
	// emits, so they stay out of the fingerprint.
	cacheOff := Default()
	cacheOff.EnableCaching = false
	cacheOff.EnablePerformanceTracking = false
	cacheOff.CachePath = "elsewhere.db"
	if cacheOff.Fingerprint() != base.Fingerprint() {
		t.Error("cache and tracking options must not affect the fingerprint")
	}
}

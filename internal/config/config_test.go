package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got: %v", err)
	}
}

func TestValidateRejectsUnknownRunner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runner = "serverless"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown runner")
	}
}

func TestValidateRequiresWorkerAddrsForDistributed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runner = "distributed"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when distributed.workerAddrs is empty")
	}
	cfg.Distributed.WorkerAddrs = []string{"127.0.0.1:9000"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error once workerAddrs is set, got: %v", err)
	}
}

func TestValidateRejectsNonPositiveCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources.CapCPU = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a zero capCPU")
	}

	cfg = DefaultConfig()
	cfg.Resources.CapMemoryBytes = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a negative capMemoryBytes")
	}

	cfg = DefaultConfig()
	cfg.Optimizer.FixedPointMaxIters = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for fixedPointMaxIters < 1")
	}
}

func TestLoadReadsYAMLFileAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("runner: local\nresources:\n  capCPU: 16\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Resources.CapCPU != 16 {
		t.Errorf("CapCPU = %v, want 16 (from config file)", cfg.Resources.CapCPU)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "json")
	}
}

func TestLoadRejectsMissingExplicitConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error when an explicit --config path does not exist")
	}
}

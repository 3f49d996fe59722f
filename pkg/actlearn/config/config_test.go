package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.BayesianExplorer.Gamma = 1.5
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected invalid gamma rejected, got %v", err)
	}

	cfg = Default()
	cfg.BayesianExplorer.StartPu = 0
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected zero start_pu rejected, got %v", err)
	}

	cfg = Default()
	cfg.CdPrecision = 0
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected zero cd_precision rejected, got %v", err)
	}

	cfg = Default()
	cfg.IRALe.Runs = 0
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected zero runs rejected, got %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
seed: 42
bayesian_explorer:
  gamma: 0.8
  plan_depth: 5
irale:
  runs: 2
  use_bayesian_explorer: false
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Seed)
	}
	if cfg.BayesianExplorer.Gamma != 0.8 {
		t.Errorf("expected gamma 0.8, got %f", cfg.BayesianExplorer.Gamma)
	}
	if cfg.BayesianExplorer.PlanDepth != 5 {
		t.Errorf("expected plan_depth 5, got %d", cfg.BayesianExplorer.PlanDepth)
	}
	if cfg.IRALe.Runs != 2 || cfg.IRALe.UseBayesianExplorer {
		t.Errorf("expected driver overrides applied")
	}

	// Untouched keys keep their defaults.
	if cfg.BayesianExplorer.StartPu != Default().BayesianExplorer.StartPu {
		t.Errorf("expected untouched keys to keep defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

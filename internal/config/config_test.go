package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Provider != "mock" || cfg.VectorBackend != "chromem" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.ValidateFindings {
		t.Fatalf("validation stage must default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must pass validation: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VIGIL_VALIDATE", "false")
	t.Setenv("VIGIL_MAX_WORKERS", "8")
	t.Setenv("VIGIL_REVIEW_EXCLUDE", "vendor/**, third_party/**")
	cfg := Load()
	if cfg.ValidateFindings {
		t.Fatalf("VIGIL_VALIDATE=false not applied")
	}
	if cfg.MaxWorkers != 8 {
		t.Fatalf("MaxWorkers = %d", cfg.MaxWorkers)
	}
	if len(cfg.ReviewExclude) != 2 || cfg.ReviewExclude[0] != "vendor/**" {
		t.Fatalf("exclude list not parsed: %v", cfg.ReviewExclude)
	}
}

func TestValidateRejections(t *testing.T) {
	base := Load()

	cfg := base
	cfg.MaxWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero workers must be rejected")
	}

	cfg = base
	cfg.VectorBackend = "pgvector"
	cfg.PostgresURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("pgvector without a postgres URL must be rejected")
	}

	cfg = base
	cfg.VectorBackend = "faiss"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown backend must be rejected")
	}
}

package concurrency

import "testing"

func TestLoadConfigRespectsEnvironmentOverrides(t *testing.T) {
	t.Setenv("DAEDALUS_MAX_CONCURRENT", "42")
	t.Setenv("DAEDALUS_SEARCH_WORKERS", "7")
	t.Setenv("DAEDALUS_SEARCH_ENGINE", "ITERATIVE")

	cfg := LoadConfig()

	if cfg.MaxConcurrent != 42 {
		t.Fatalf("expected MaxConcurrent 42, got %d", cfg.MaxConcurrent)
	}
	if cfg.SearchWorkers != 7 {
		t.Fatalf("expected SearchWorkers 7, got %d", cfg.SearchWorkers)
	}
	if cfg.DefaultEngine != EngineModeIterative {
		t.Fatalf("expected iterative engine mode, got %s", cfg.DefaultEngine)
	}
	if cfg.Source != ConfigSourceEnvVar {
		t.Fatalf("expected env var source, got %s", cfg.Source)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.MaxConcurrent < 1 {
		t.Fatalf("expected positive MaxConcurrent, got %d", cfg.MaxConcurrent)
	}
	if cfg.SearchWorkers < 1 {
		t.Fatalf("expected positive SearchWorkers, got %d", cfg.SearchWorkers)
	}
	if cfg.SearchWorkers != cfg.EffectiveCPUs {
		t.Fatalf("expected SearchWorkers to default to hardware parallelism %d, got %d", cfg.EffectiveCPUs, cfg.SearchWorkers)
	}
	if cfg.DefaultEngine != EngineModeRecursive {
		t.Fatalf("expected recursive default engine, got %s", cfg.DefaultEngine)
	}
}

func TestLoadConfigMultiplier(t *testing.T) {
	t.Setenv("DAEDALUS_CONCURRENCY_MULTIPLIER", "3")
	cfg := LoadConfig()
	if cfg.MaxConcurrent != cfg.EffectiveCPUs*3 {
		t.Fatalf("expected MaxConcurrent %d, got %d", cfg.EffectiveCPUs*3, cfg.MaxConcurrent)
	}
}

func TestLoadConfigRejectsBogusEngine(t *testing.T) {
	t.Setenv("DAEDALUS_SEARCH_ENGINE", "quantum")
	cfg := LoadConfig()
	if cfg.DefaultEngine != EngineModeRecursive {
		t.Fatalf("expected fallback to recursive, got %s", cfg.DefaultEngine)
	}
}

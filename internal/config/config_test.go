package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BatchLimit != 3 || cfg.ForecastHorizon != 6 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PassMin <= cfg.ReviewMin {
		t.Fatalf("pass threshold must exceed review threshold: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INSIGHT_BATCH_LIMIT", "5")
	t.Setenv("INSIGHT_GEO", "DE")
	t.Setenv("INSIGHT_PASS_MIN", "0.8")

	cfg := DefaultConfig()
	if cfg.BatchLimit != 5 {
		t.Errorf("batch limit override ignored: %d", cfg.BatchLimit)
	}
	if cfg.Geo != "DE" {
		t.Errorf("geo override ignored: %q", cfg.Geo)
	}
	if cfg.PassMin != 0.8 {
		t.Errorf("pass_min override ignored: %v", cfg.PassMin)
	}
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv("INSIGHT_BATCH_LIMIT", "not-a-number")
	cfg := DefaultConfig()
	if cfg.BatchLimit != 3 {
		t.Fatalf("garbage env value should keep the default, got %d", cfg.BatchLimit)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "db_path: /tmp/custom.db\nbatch_limit: 4\nforecast_horizon: 12\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/custom.db" || cfg.BatchLimit != 4 || cfg.ForecastHorizon != 12 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	// Fields absent from the file keep their defaults.
	if cfg.PassMin != 0.65 {
		t.Fatalf("default pass_min lost: %v", cfg.PassMin)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("batch_limit: 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INSIGHT_BATCH_LIMIT", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BatchLimit != 7 {
		t.Fatalf("environment should win over file, got %d", cfg.BatchLimit)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pass_min: 0.2\nreview_min: 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for inverted thresholds")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package config_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hearingcap/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "hearingcap")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "hearings.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.Inspector.TimeoutSeconds != 15 {
		t.Fatalf("expected 15s inspector timeout, got %d", cfg.Inspector.TimeoutSeconds)
	}
	if cfg.Converter.TimeoutSeconds != 1800 {
		t.Fatalf("expected 1800s converter timeout, got %d", cfg.Converter.TimeoutSeconds)
	}
	if cfg.Lifecycle.StatusMapping["published"] != "complete" {
		t.Fatalf("unexpected default mapping: %v", cfg.Lifecycle.StatusMapping)
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `[paths]
data_dir = "~/hc"
audio_dir = "~/hc/audio"

[converter]
format = " MP3 "
quality = "HIGH"

[lifecycle.status_mapping]
Analyzed = "New"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "hc") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Converter.Format != "mp3" || cfg.Converter.Quality != "high" {
		t.Fatalf("expected normalized converter settings, got %q/%q", cfg.Converter.Format, cfg.Converter.Quality)
	}
	if cfg.Lifecycle.StatusMapping["analyzed"] != "new" {
		t.Fatalf("expected analyzed override, got %v", cfg.Lifecycle.StatusMapping)
	}
	if cfg.Lifecycle.StatusMapping["captured"] != "processing" {
		t.Fatalf("expected unspecified stages to keep defaults, got %v", cfg.Lifecycle.StatusMapping)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestPostgresRequiresDSN(t *testing.T) {
	t.Setenv("HEARINGCAP_DATABASE_URL", "")
	cfg := config.Default()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Fatalf("expected dsn validation error, got %v", err)
	}

	cfg.Store.DSN = "postgres://localhost/hearings"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Converter.Format = "ogg" }, "converter.format"},
		{"quality", func(c *config.Config) { c.Converter.Quality = "ultra" }, "converter.quality"},
		{"threshold", func(c *config.Config) { c.Workflow.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"nan threshold", func(c *config.Config) { c.Workflow.ConfidenceThreshold = math.NaN() }, "confidence_threshold"},
		{"workers", func(c *config.Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"settle", func(c *config.Config) { c.Inspector.SettleSeconds = 20 }, "settle_seconds"},
		{"driver", func(c *config.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	target := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Batch.DefaultConcurrency != 3 {
		t.Errorf("DefaultConcurrency = %d, want 3", cfg.Batch.DefaultConcurrency)
	}
	if len(cfg.Insights.FrontendFrameworks) == 0 {
		t.Error("FrontendFrameworks should have defaults")
	}
	if len(cfg.Insights.BackendFrameworks) == 0 {
		t.Error("BackendFrameworks should have defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Batch.DefaultConcurrency != 3 {
		t.Errorf("expected defaults when no config file, got concurrency %d", cfg.Batch.DefaultConcurrency)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "batch": {"defaultConcurrency": 5, "maxConcurrency": 10},
  "insights": {"frontendFrameworks": ["react", "solid"]}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Batch.DefaultConcurrency != 5 {
		t.Errorf("DefaultConcurrency = %d, want 5", cfg.Batch.DefaultConcurrency)
	}
	if len(cfg.Insights.FrontendFrameworks) != 2 {
		t.Errorf("FrontendFrameworks = %v, want 2 entries", cfg.Insights.FrontendFrameworks)
	}
	// Unspecified values keep defaults.
	if cfg.Cache.AnalysisTtlSeconds != 3600 {
		t.Errorf("AnalysisTtlSeconds = %d, want default 3600", cfg.Cache.AnalysisTtlSeconds)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Batch.DefaultConcurrency = 7
	cfg.Batch.MaxConcurrency = 20
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Batch.DefaultConcurrency != 7 {
		t.Errorf("DefaultConcurrency = %d, want 7", loaded.Batch.DefaultConcurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Batch.DefaultConcurrency = 0 }, true},
		{"max below default", func(c *Config) { c.Batch.MaxConcurrency = 1 }, true},
		{"bad file size", func(c *Config) { c.Analysis.MaxFileSizeBytes = 0 }, true},
		{"negative ttl", func(c *Config) { c.Cache.BatchTtlSeconds = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/bankline-go/internal/storage"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL == "" {
		t.Error("default base URL should be set")
	}
	if cfg.Output.Format != "table" {
		t.Errorf("Output.Format = %q, want table", cfg.Output.Format)
	}
	if cfg.Store.Backend != storage.BackendFile {
		t.Errorf("Store.Backend = %q, want file", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate: %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	want := filepath.Join(".bankline", "config.yaml")
	if len(path) < len(want) || path[len(path)-len(want):] != want {
		t.Errorf("DefaultConfigPath() = %q, should end with %q", path, want)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Timeout != "30s" {
		t.Errorf("Timeout = %q, want 30s", cfg.Server.Timeout)
	}
	if cfg.Store.Path != storage.DefaultPath(storage.BackendFile) {
		t.Errorf("Store.Path = %q, want derived default", cfg.Store.Path)
	}
}

func TestLoad_Layering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  base_url: http://file.example
  timeout: 5s
store:
  backend: badger
output:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BANKLINE_OUTPUT_FORMAT", "yaml")

	cfg, err := Load(path, map[string]any{"server.base_url": "http://flag.example"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "http://flag.example" {
		t.Errorf("BaseURL = %q, flag should win", cfg.Server.BaseURL)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, env should beat file", cfg.Output.Format)
	}
	if cfg.Server.Timeout != "5s" || cfg.TimeoutDuration().Seconds() != 5 {
		t.Errorf("Timeout = %q, file should beat defaults", cfg.Server.Timeout)
	}
	if cfg.Store.Path != storage.DefaultPath(storage.BackendBadger) {
		t.Errorf("Store.Path = %q, want badger default", cfg.Store.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, default should survive", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), map[string]any{"store.backend": "s3"})
	if err == nil {
		t.Error("Load() should reject an unknown backend")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.BaseURL = "https://bank.example/api"
	cfg.Server.RateLimit = 2.5
	cfg.Store.Watch = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL || loaded.Server.RateLimit != 2.5 || !loaded.Store.Watch {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CLIConfig)
	}{
		{"empty base url", func(c *CLIConfig) { c.Server.BaseURL = "" }},
		{"bad timeout", func(c *CLIConfig) { c.Server.Timeout = "soon" }},
		{"negative rate", func(c *CLIConfig) { c.Server.RateLimit = -1 }},
		{"bad output", func(c *CLIConfig) { c.Output.Format = "xml" }},
		{"bad level", func(c *CLIConfig) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

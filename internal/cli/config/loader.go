package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/bankline-go/internal/infra/confloader"
	"github.com/yndnr/bankline-go/internal/storage"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(storage.DefaultDir(), "config.yaml")
}

// Load reads defaults, the file at path (optional) and BANKLINE_*
// variables, then applies overrides (flattened "section.key" values, e.g.
// from command-line flags). An empty path means DefaultConfigPath.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithDefaults(defaults()),
	)

	cfg := &CLIConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = storage.DefaultPath(cfg.Store.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML with mode 0600.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// defaults flattens Default() for the loader. The store path is left to
// be derived from the chosen backend.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"server.base_url":   d.Server.BaseURL,
		"server.timeout":    d.Server.Timeout,
		"server.user_agent": d.Server.UserAgent,
		"server.rate_limit": d.Server.RateLimit,
		"server.burst":      d.Server.Burst,
		"server.ca_file":    d.Server.CAFile,
		"store.backend":     d.Store.Backend,
		"store.watch":       d.Store.Watch,
		"log.level":         d.Log.Level,
		"log.format":        d.Log.Format,
		"output.format":     d.Output.Format,
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/yndnr/bankline-go/internal/storage"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

// CLIConfig is the configuration for bankline.
type CLIConfig struct {
	Server ServerConfig   `koanf:"server" json:"server" yaml:"server"`
	Store  storage.Config `koanf:"store" json:"store" yaml:"store"`
	Log    logger.Config  `koanf:"log" json:"log" yaml:"log"`
	Output OutputConfig   `koanf:"output" json:"output" yaml:"output"`
}

// ServerConfig describes the bank API endpoint.
type ServerConfig struct {
	BaseURL   string  `koanf:"base_url" json:"base_url" yaml:"base_url"`
	Timeout   string  `koanf:"timeout" json:"timeout" yaml:"timeout"`
	UserAgent string  `koanf:"user_agent" json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int     `koanf:"burst" json:"burst" yaml:"burst"`
	CAFile    string  `koanf:"ca_file" json:"ca_file,omitempty" yaml:"ca_file,omitempty"` // extra PEM roots trusted besides the system pool
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	Format string `koanf:"format" json:"format" yaml:"format"` // table, json, yaml
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "30s",
			Burst:   1,
		},
		Store: storage.DefaultConfig(),
		Log: logger.Config{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{Format: "table"},
	}
}

// TimeoutDuration parses Server.Timeout.
func (c *CLIConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate reports the first invalid setting.
func (c *CLIConfig) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Server.Timeout != "" {
		if _, err := time.ParseDuration(c.Server.Timeout); err != nil {
			return fmt.Errorf("server.timeout: %w", err)
		}
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}

	switch c.Store.Backend {
	case "", storage.BackendFile, storage.BackendBadger, storage.BackendMemory:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}

	switch c.Output.Format {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

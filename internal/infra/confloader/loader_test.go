package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		BaseURL string `koanf:"base_url"`
		Timeout string `koanf:"timeout"`
	} `koanf:"server"`
	Store struct {
		Backend string `koanf:"backend"`
		Watch   bool   `koanf:"watch"`
	} `koanf:"store"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "https://bank.example"
store:
  watch: true
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := l.GetString("server.base_url"); got != "https://bank.example" {
		t.Errorf("server.base_url = %q", got)
	}
}

func TestLoader_LoadFile_Missing(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file should be skipped, got: %v", err)
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_LoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	if err := NewLoader().LoadFile(path); err == nil {
		t.Error("LoadFile() should fail on malformed YAML")
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("BANKLINE_SERVER_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("BANKLINE_STORE_BACKEND", "badger")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("server.base_url"); got != "http://127.0.0.1:8080" {
		t.Errorf("server.base_url = %q", got)
	}
	if got := l.GetString("store.backend"); got != "badger" {
		t.Errorf("store.backend = %q", got)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_TIMEOUT", "5s")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("server.timeout"); got != "5s" {
		t.Errorf("server.timeout = %q, want 5s", got)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "http://from-file"
  timeout: "3s"
`)
	t.Setenv("BANKLINE_SERVER_BASE_URL", "http://from-env")

	l := NewLoader(
		WithConfigFile(path),
		WithDefaults(map[string]any{
			"server.base_url": "http://default",
			"server.timeout":  "30s",
			"store.backend":   "file",
		}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "http://from-env" {
		t.Errorf("BaseURL = %q, env should override file", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != "3s" {
		t.Errorf("Timeout = %q, file should override defaults", cfg.Server.Timeout)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("Backend = %q, default should survive", cfg.Store.Backend)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_LoadMap_Overrides(t *testing.T) {
	l := NewLoader(WithDefaults(map[string]any{"store.backend": "file"}))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := l.LoadMap(map[string]any{"store.backend": "memory"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if len(l.All()) == 0 {
		t.Error("All() should not be empty")
	}
}

func TestLoader_EnvKey(t *testing.T) {
	l := NewLoader()
	cases := map[string]string{
		"BANKLINE_SERVER_BASE_URL":  "server.base_url",
		"BANKLINE_LOG_LEVEL":        "log.level",
		"BANKLINE_OUTPUT_FORMAT":    "output.format",
		"BANKLINE_VERBOSE":          "verbose",
		"BANKLINE_SERVER_RATE_LIMIT": "server.rate_limit",
	}
	for in, want := range cases {
		if got := l.envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

package command

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.configPath()+"\n", stdout)
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+h.configPath())

	info, err := os.Stat(h.configPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(h.configPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url:")

	_, _, err = h.run("", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = h.run("", "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "base_url: "+h.url)
	assert.Contains(t, stdout, "backend: file")

	stdout, _, err = h.run("", "-o", "json", "config", "show")
	require.NoError(t, err)

	var got struct {
		Server struct {
			BaseURL string `json:"base_url"`
		} `json:"server"`
		Log map[string]any `json:"log"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, h.url, got.Server.BaseURL)
	assert.Equal(t, "error", got.Log["level"])
}

func TestConfig_FileAndEnvLayering(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.configPath(), []byte("output:\n  format: yaml\n"), 0o600))

	stdout, _, err := h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "phase: anonymous", "file selects yaml")

	t.Setenv("BANKLINE_OUTPUT_FORMAT", "json")
	stdout, _, err = h.run("", "status")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(stdout), "{"), "env beats file: %s", stdout)

	stdout, _, err = h.run("", "-o", "table", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "KEY", "flag beats env")
}

func TestConfig_Invalid(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "-o", "xml", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Zero(t, h.bank.TotalHits())
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "-o", "json", "version")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.NotEmpty(t, got["version"])
	assert.NotEmpty(t, got["go_version"])
	assert.NoFileExists(t, h.tokenPath(), "version does not open the store")
}

func TestConfig_MissingCAFile(t *testing.T) {
	h := newHarness(t)
	missing := filepath.Join(h.dir, "missing-ca.pem")
	require.NoError(t, os.WriteFile(h.configPath(), []byte("server:\n  ca_file: "+missing+"\n"), 0o600))

	_, _, err := h.run("", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-ca.pem")
	assert.Empty(t, h.storedToken())
}

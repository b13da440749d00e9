package command

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/bankline-go/internal/bankfake"
)

// harness runs the App against an in-process bank with a file-backed
// credential store in a temp dir.
type harness struct {
	t    *testing.T
	bank *bankfake.Server
	url  string
	dir  string
}

func newHarness(t *testing.T, opts ...bankfake.Option) *harness {
	t.Helper()

	opts = append([]bankfake.Option{
		bankfake.WithUser(bankfake.User{
			Username: "alice",
			Password: "secret",
			FullName: "Alice Smith",
			Email:    "alice@example.com",
		}),
		bankfake.WithIssuedTokens("tok-123"),
	}, opts...)

	bank := bankfake.New(opts...)
	srv := httptest.NewServer(bank)
	t.Cleanup(srv.Close)

	return &harness{t: t, bank: bank, url: srv.URL, dir: t.TempDir()}
}

func (h *harness) configPath() string { return filepath.Join(h.dir, "config.yaml") }
func (h *harness) tokenPath() string  { return filepath.Join(h.dir, "token") }

// run executes one bankline invocation and returns stdout and stderr.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()

	app := App()
	var stdout, stderr bytes.Buffer
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := []string{
		"bankline",
		"--config", h.configPath(),
		"--server", h.url,
		"--backend", "file",
		"--store-path", h.tokenPath(),
		"--log-level", "error",
	}
	argv = append(argv, args...)

	err := app.RunContext(context.Background(), argv)
	return stdout.String(), stderr.String(), err
}

// storedToken returns the credential file content, or "" when absent.
func (h *harness) storedToken() string {
	h.t.Helper()
	data, err := os.ReadFile(h.tokenPath())
	if os.IsNotExist(err) {
		return ""
	}
	if err != nil {
		h.t.Fatalf("read token: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func (h *harness) login() {
	h.t.Helper()
	if _, _, err := h.run("secret\n", "login", "-u", "alice", "--password-stdin"); err != nil {
		h.t.Fatalf("login: %v", err)
	}
}

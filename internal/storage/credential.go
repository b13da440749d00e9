package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yndnr/bankline-go/internal/storage/badgerstore"
	"github.com/yndnr/bankline-go/internal/storage/filestore"
	"github.com/yndnr/bankline-go/internal/storage/memory"
)

// Backend names accepted in Config.Backend.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// CredentialStore is a single durable slot for the session token.
type CredentialStore interface {
	// Save overwrites the stored token. Idempotent.
	Save(ctx context.Context, token string) error

	// Load returns the last saved token. ok is false when nothing is stored.
	Load(ctx context.Context) (token string, ok bool, err error)

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Watchable is implemented by stores that can report changes made
// outside this process. stop ends the watch and is safe to call twice.
type Watchable interface {
	Watch(onChange func()) (stop func() error, err error)
}

// Config selects and configures a backend.
type Config struct {
	Backend string `koanf:"backend" json:"backend" yaml:"backend"`
	Path    string `koanf:"path" json:"path" yaml:"path"`
	Watch   bool   `koanf:"watch" json:"watch" yaml:"watch"`
}

// DefaultConfig returns the file backend under the default directory.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		Path:    DefaultPath(BackendFile),
	}
}

// DefaultDir returns ~/.bankline, falling back to the working directory
// when the home directory cannot be determined.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bankline"
	}
	return filepath.Join(home, ".bankline")
}

// DefaultPath returns the default location for a backend.
func DefaultPath(backend string) string {
	switch backend {
	case BackendBadger:
		return filepath.Join(DefaultDir(), "session.db")
	case BackendMemory:
		return ""
	default:
		return filepath.Join(DefaultDir(), "token")
	}
}

// Open creates the store described by cfg.
func Open(cfg Config, logger *slog.Logger) (CredentialStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath(backend)
	}

	switch backend {
	case BackendFile:
		return filestore.New(path, filestore.WithLogger(logger))
	case BackendBadger:
		return badgerstore.Open(badgerstore.Config{Dir: path}, logger)
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// Compile-time interface checks.
var (
	_ CredentialStore = (*filestore.Store)(nil)
	_ CredentialStore = (*badgerstore.Store)(nil)
	_ CredentialStore = (*memory.Store)(nil)
	_ Watchable       = (*filestore.Store)(nil)
)

// Package filestore keeps the session token in a single file.
//
// Writes go to a temp file in the same directory which is then renamed over
// the target, so readers never observe a partial token.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yndnr/bankline-go/internal/infra/fswatch"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Store is a file-backed credential store.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store at path, creating the parent directory if needed.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve path: %w", err)
	}

	s := &Store{
		path:   abs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(abs), dirMode); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	return s, nil
}

// Path returns the absolute token file path.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the token file.
func (s *Store) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := tmp.Chmod(fileMode); err != nil {
		cleanup()
		return fmt.Errorf("filestore: chmod: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		cleanup()
		return fmt.Errorf("filestore: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("filestore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: rename: %w", err)
	}

	s.logger.Debug("token saved", "path", s.path)
	return nil
}

// Load reads the token file. A missing or blank file reports absent.
func (s *Store) Load(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filestore: read: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Clear removes the token file.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: remove: %w", err)
	}

	s.logger.Debug("token cleared", "path", s.path)
	return nil
}

// Close is a no-op; the file store holds no open handles.
func (s *Store) Close() error {
	return nil
}

// Watch calls onChange whenever the token file is written, replaced or
// removed by anyone, including this process. Callers compare contents to
// filter their own writes.
func (s *Store) Watch(onChange func()) (func() error, error) {
	w, err := fswatch.New(fswatch.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("filestore: watch: %w", err)
	}
	if err := w.Watch(s.path); err != nil {
		w.Stop()
		return nil, fmt.Errorf("filestore: watch: %w", err)
	}

	w.OnChange(func(ev fswatch.Event) {
		s.logger.Debug("token file changed", "op", ev.Op.String())
		onChange()
	})
	w.StartAsync()

	return w.Stop, nil
}

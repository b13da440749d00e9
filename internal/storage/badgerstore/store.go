// Package badgerstore keeps the session token in a badger/v3 database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
)

// tokenKey is the only key the store writes.
var tokenKey = []byte("session/token")

// Config configures the badger store.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory runs badger without touching disk (tests only).
	InMemory bool
}

// Store implements the credential store on badger.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the database.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badgerstore: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(true).
		WithLogger(&badgerLogger{logger: logger}).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(1 << 20).
		WithMemTableSize(8 << 20).
		WithBlockCacheSize(1 << 20)
	if cfg.InMemory {
		opts.Dir, opts.ValueDir = "", ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open db: %w", err)
	}

	logger.Debug("badger store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &Store{db: db, logger: logger}, nil
}

// Save overwrites the token.
func (s *Store) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tokenKey, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: save: %w", err)
	}
	return nil
}

// Load returns the stored token.
func (s *Store) Load(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badgerstore: load: %w", err)
	}
	if len(value) == 0 {
		return "", false, nil
	}
	return string(value), true, nil
}

// Clear deletes the token. Deleting a missing key is not an error in badger.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tokenKey)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: clear: %w", err)
	}
	return nil
}

// Close runs one value-log GC pass and closes the database.
func (s *Store) Close() error {
	if err := s.db.RunValueLogGC(0.5); err != nil &&
		!errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		s.logger.Debug("badger gc skipped", "error", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badgerstore: close db: %w", err)
	}
	return nil
}

// badgerLogger adapts slog.Logger to badger's Logger interface. Badger is
// chatty at info, so everything below warning is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

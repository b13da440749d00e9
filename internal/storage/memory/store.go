package memory

import (
	"context"
	"sync"
)

// Store keeps the token in memory.
type Store struct {
	mu     sync.RWMutex
	token  string
	stored bool

	// Failure injection for tests.
	saveErr  error
	clearErr error
}

// Option configures the Store.
type Option func(*Store)

// WithToken pre-populates the store.
func WithToken(token string) Option {
	return func(s *Store) {
		s.token = token
		s.stored = true
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites the stored token.
func (s *Store) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = token
	s.stored = true
	return nil
}

// Load returns the stored token.
func (s *Store) Load(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.stored, nil
}

// Clear removes the token.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clearErr != nil {
		return s.clearErr
	}
	s.token = ""
	s.stored = false
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// FailSave makes subsequent Save calls return err. nil restores normal behavior.
func (s *Store) FailSave(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// FailClear makes subsequent Clear calls return err. nil restores normal behavior.
func (s *Store) FailClear(err error) {
	s.mu.Lock()
	s.clearErr = err
	s.mu.Unlock()
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/storage"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
	"github.com/yndnr/bankline-go/internal/telemetry/metric"
)

// Manager is the single mutator of session state.
type Manager struct {
	id      string
	store   storage.CredentialStore
	api     *apiclient.Client
	log     logger.Logger
	metrics *metric.Registry
	watch   bool
	now     func() time.Time

	// ctx is cancelled by Close; background work runs under it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	initOnce  sync.Once
	stopWatch func() error

	// storeMu orders token changes with writes to the credential store.
	// It is acquired before mu and never held across network I/O.
	storeMu sync.Mutex

	mu           sync.Mutex
	state        domain.SessionState
	gen          uint64
	signouts     uint64 // bumped by Logout, external changes and Close
	closed       bool
	resolved     chan struct{}
	resolvedDone bool
	subs         map[int]chan domain.SessionState
	nextSub      int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics records transitions, stale drops and store failures.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithStoreWatch follows changes other processes make to the credential
// store, when the backend supports it.
func WithStoreWatch(enabled bool) Option {
	return func(m *Manager) {
		m.watch = enabled
	}
}

// WithClock overrides time.Now for ChangedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Manager in the Unresolved phase and installs it as the
// API client's token source. Call Init to read the credential store.
func New(store storage.CredentialStore, api *apiclient.Client, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		id:       ulid.Make().String(),
		store:    store,
		api:      api,
		log:      logger.Default(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		resolved: make(chan struct{}),
		subs:     make(map[int]chan domain.SessionState),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "session", "instance", m.id)
	m.state = domain.SessionState{Phase: domain.PhaseUnresolved, ChangedAt: m.now()}

	api.SetTokenSource(m)
	return m
}

// ID identifies this Manager instance in logs.
func (m *Manager) ID() string {
	return m.id
}

// ============================================================================
// Resolution
// ============================================================================

// Init reads the credential store and starts resolving the session. With
// no stored token the Manager becomes Anonymous without any network call;
// otherwise it becomes Authenticating and confirms the token in the
// background. Only the first call has any effect.
func (m *Manager) Init(ctx context.Context) error {
	if m.isClosed() {
		return ErrClosed
	}
	m.initOnce.Do(func() {
		m.resolve(ctx)
		m.startWatch()
	})
	return nil
}

func (m *Manager) resolve(ctx context.Context) {
	m.storeMu.Lock()
	tok, ok, err := m.store.Load(ctx)
	if err != nil {
		m.metrics.ObserveStoreError("load")
		m.log.Warn("credential store read failed, starting anonymous", "error", err)
		ok = false
	}

	m.mu.Lock()
	if m.state.Phase != domain.PhaseUnresolved {
		// A login raced ahead of Init and already decided the state.
		m.mu.Unlock()
		m.storeMu.Unlock()
		return
	}
	if !ok {
		m.commitLocked(domain.SessionState{Phase: domain.PhaseAnonymous, Resolved: true}, "no stored credential")
		m.mu.Unlock()
		m.storeMu.Unlock()
		return
	}

	m.gen++
	gen := m.gen
	m.commitLocked(domain.SessionState{
		Phase: domain.PhaseAuthenticating,
		Token: domain.SessionToken(tok),
	}, "stored credential found")
	m.mu.Unlock()
	m.storeMu.Unlock()

	m.goBackground(func(ctx context.Context) {
		ctx, _ = apiclient.EnsureRequestID(ctx)
		m.fetchProfile(ctx, gen, tok)
	})
}

// WaitResolved calls Init if needed and blocks until startup resolution
// has finished or ctx is done.
func (m *Manager) WaitResolved(ctx context.Context) (domain.SessionState, error) {
	if err := m.Init(ctx); err != nil {
		return m.State(), err
	}
	select {
	case <-m.resolved:
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

// ============================================================================
// Readers
// ============================================================================

// State returns a snapshot of the current session.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Profile returns the confirmed profile. It fails with ErrNotResolved
// during startup and ErrNotAuthenticated when no session is confirmed.
func (m *Manager) Profile() (*domain.UserProfile, error) {
	s := m.State()
	switch {
	case !s.Resolved:
		return nil, domain.ErrNotResolved
	case !s.IsAuthenticated():
		return nil, domain.ErrNotAuthenticated
	default:
		return s.Profile, nil
	}
}

// Token implements apiclient.TokenSource.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.state.Token), m.state.HasToken()
}

// Subscribe returns a channel that receives the current state immediately
// and then every committed change. A slow reader only ever sees the latest
// state. The returned func unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

// ============================================================================
// Teardown
// ============================================================================

// Close stops background work and closes subscriber channels. In-flight
// results are discarded; the credential store is left as is and remains
// owned by the caller.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	m.signouts++
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	stop := m.stopWatch
	m.mu.Unlock()

	var err error
	if stop != nil {
		err = stop()
	}
	m.cancel()
	m.wg.Wait()

	m.log.Debug("session manager closed")
	return err
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// goBackground runs fn under the Manager's context unless it is closed.
func (m *Manager) goBackground(fn func(ctx context.Context)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
}

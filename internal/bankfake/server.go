package bankfake

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/yndnr/bankline-go/pkg/token"
)

// User is an account known to the fake server.
type User struct {
	ID       int64
	Username string
	Password string
	FullName string
	Email    string
	Extra    map[string]any
}

// Fault describes a scripted failure for one route.
type Fault struct {
	// Status and Message form the {"error": Message} response.
	Status  int
	Message string

	// Drop closes the connection without a response.
	Drop bool

	// Delay is applied before responding.
	Delay time.Duration

	// Times limits how many requests fail. Zero means every request.
	Times int
}

// Hold parks matching requests until Release is called.
type Hold struct {
	arrived     chan struct{}
	release     chan struct{}
	arriveOnce  sync.Once
	releaseOnce sync.Once
}

// Arrived is closed once the first held request reaches the server.
func (h *Hold) Arrived() <-chan struct{} { return h.arrived }

// Release lets held requests proceed. Safe to call more than once.
func (h *Hold) Release() {
	h.releaseOnce.Do(func() { close(h.release) })
}

// Server is the fake bank API.
type Server struct {
	router *mux.Router
	logger *slog.Logger

	mu       sync.Mutex
	users    map[string]*User // by username
	nextID   int64
	sessions map[string]int64 // token hash -> user ID
	preset   []string
	faults   map[string]*Fault
	holds    map[string]*Hold
	hits     map[string]int
}

// Option configures the Server.
type Option func(*Server)

// WithUser registers an account at construction. It panics if the
// password cannot be hashed; use AddUser for untrusted input.
func WithUser(u User) Option {
	return func(s *Server) {
		if _, err := s.addUserLocked(u); err != nil {
			panic("bankfake: " + err.Error())
		}
	}
}

// WithIssuedTokens makes the next logins return these tokens in order
// before falling back to random ones.
func WithIssuedTokens(tokens ...string) Option {
	return func(s *Server) {
		s.preset = append(s.preset, tokens...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a fake server.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		users:    make(map[string]*User),
		sessions: make(map[string]int64),
		faults:   make(map[string]*Fault),
		holds:    make(map[string]*Hold),
		hits:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers an account and returns it with its assigned ID.
func (s *Server) AddUser(u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.addUserLocked(u)
	if err != nil {
		return User{}, err
	}
	return *stored, nil
}

func (s *Server) addUserLocked(u User) (*User, error) {
	hash, err := token.HashPassword(u.Password, token.MinPasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", u.Username, err)
	}
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	stored := u
	stored.Password = hash
	s.users[u.Username] = &stored
	return &stored, nil
}

// SeedSession makes tok a valid bearer token for username, as if issued
// by an earlier login. It reports false for an unknown user.
func (s *Server) SeedSession(username, tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return false
	}
	s.sessions[token.Hash(tok)] = u.ID
	return true
}

// Revoke invalidates tok server-side.
func (s *Server) Revoke(tok string) {
	s.mu.Lock()
	delete(s.sessions, token.Hash(tok))
	s.mu.Unlock()
}

// SessionActive reports whether tok is currently valid.
func (s *Server) SessionActive(tok string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token.Hash(tok)]
	return ok
}

// ActiveSessions returns the number of valid tokens.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Fail scripts a failure for method and path.
func (s *Server) Fail(method, path string, f Fault) {
	s.mu.Lock()
	s.faults[routeKey(method, path)] = &f
	s.mu.Unlock()
}

// ClearFaults removes all scripted failures.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	s.faults = make(map[string]*Fault)
	s.mu.Unlock()
}

// Hold parks subsequent requests to method and path until the returned
// Hold is released. Faults apply after the hold lifts.
func (s *Server) Hold(method, path string) *Hold {
	h := &Hold{
		arrived: make(chan struct{}),
		release: make(chan struct{}),
	}
	s.mu.Lock()
	s.holds[routeKey(method, path)] = h
	s.mu.Unlock()
	return h
}

// Hits returns how many requests reached method and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, path)]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// Routes lists every route that has been hit, sorted.
func (s *Server) Routes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.hits))
	for k := range s.hits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) nextToken() (string, error) {
	if len(s.preset) > 0 {
		tok := s.preset[0]
		s.preset = s.preset[1:]
		return tok, nil
	}
	return token.Generate()
}

// takeFault returns the fault for key, consuming one use.
func (s *Server) takeFault(key string) *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.faults[key]
	if !ok {
		return nil
	}
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.faults, key)
		}
	}
	copied := *f
	return &copied
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

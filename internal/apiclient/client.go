package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/bankline-go/internal/telemetry/logger"
	"github.com/yndnr/bankline-go/internal/telemetry/metric"
)

const (
	// DefaultTimeout bounds a single request when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "bankline/1.0"

	// HeaderRequestID carries the per-request ULID.
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// TokenSource supplies the current session token. ok is false when the
// request should go out unauthenticated.
type TokenSource interface {
	Token() (token string, ok bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() (string, bool)

// Token implements TokenSource.
func (f TokenSourceFunc) Token() (string, bool) { return f() }

type noToken struct{}

func (noToken) Token() (string, bool) { return "", false }

// Client talks to the bank API.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	metrics   *metric.Registry
	logger    logger.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTLSConfig sets the TLS configuration used for https base URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		if cfg == nil {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = cfg
		c.http.Transport = tr
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit enables a client-side token bucket. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenSource sets the initial token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// New creates a client for baseURL. A missing scheme defaults to http.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, errors.New("apiclient: base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		logger:    logger.Default(),
		tokens:    noToken{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource replaces the token source. nil means unauthenticated.
func (c *Client) SetTokenSource(ts TokenSource) {
	if ts == nil {
		ts = noToken{}
	}
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request. body is JSON-encoded when non-nil (a json.RawMessage
// is sent as is). out, when non-nil, receives the decoded 2xx body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, reqID := EnsureRequestID(ctx)
	log := c.logger.With("request_id", reqID, "method", method, "path", path)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit: %w", ErrTransport, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), bodyReader)
	if err != nil {
		return fmt.Errorf("apiclient: create request: %w", err)
	}
	c.addHeaders(req, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		log.Debug("request failed", "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, resp.StatusCode, elapsed)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	log.Debug("request completed", "status", resp.StatusCode, "elapsed", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %w", ErrDecode, ErrEmptyBody)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// EnsureRequestID returns ctx carrying a request ID and the ID itself. An
// ID already in ctx is kept so that several calls made for one operation
// share it; otherwise a new ULID is minted.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return logger.WithRequestID(ctx, id), id
}

// WithToken returns a client sharing c's transport, limiter and metrics
// that always authenticates with tok, whatever c's token source says.
func (c *Client) WithToken(tok string) *Client {
	return c.clone(WithTokenSource(TokenSourceFunc(func() (string, bool) {
		return tok, tok != ""
	})))
}

func (c *Client) clone(opts ...Option) *Client {
	cp := &Client{
		baseURL:   c.baseURL,
		http:      c.http,
		userAgent: c.userAgent,
		limiter:   c.limiter,
		metrics:   c.metrics,
		logger:    c.logger,
		tokens:    c.tokenSource(),
	}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// addHeaders adds authentication and common headers.
func (c *Client) addHeaders(req *http.Request, reqID string) {
	if token, ok := c.tokenSource().Token(); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, reqID)
}

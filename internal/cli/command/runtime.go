package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/cli/config"
	"github.com/yndnr/bankline-go/internal/cli/prompt"
	"github.com/yndnr/bankline-go/internal/infra/buildinfo"
	"github.com/yndnr/bankline-go/internal/infra/tlsroots"
	"github.com/yndnr/bankline-go/internal/session"
	"github.com/yndnr/bankline-go/internal/storage"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
	"github.com/yndnr/bankline-go/internal/telemetry/metric"
)

// Runtime holds what commands share within one process. The credential
// store, API client and Manager are opened on first use so commands such
// as `config path` never touch the store.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	// Overrides are the flag values layered over the file on reload.
	Overrides map[string]any
	Log        logger.Logger
	Metrics    *metric.Registry

	In  io.Reader
	Out io.Writer
	Err io.Writer

	mu     sync.Mutex
	prompt *prompt.Prompter
	store  storage.CredentialStore
	api    *apiclient.Client
	mgr    *session.Manager
}

// NewRuntime builds the logger and metrics registry for cfg.
func NewRuntime(cfg *config.CLIConfig, configPath string, in io.Reader, out, errOut io.Writer) (*Runtime, error) {
	logCfg := cfg.Log
	logCfg.Output = errOut

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	return &Runtime{
		Config:     cfg,
		ConfigPath: configPath,
		Log:        log,
		Metrics:    metric.NewRegistry(),
		In:         in,
		Out:        out,
		Err:        errOut,
	}, nil
}

// Prompter returns the process-wide prompter on In. The shell reads its
// lines through the same buffer.
func (r *Runtime) Prompter() *prompt.Prompter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompt == nil {
		r.prompt = prompt.New(r.In, r.Err)
	}
	return r.prompt
}

// Client returns the bank API client.
func (r *Runtime) Client() (*apiclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientLocked()
}

func (r *Runtime) clientLocked() (*apiclient.Client, error) {
	if r.api != nil {
		return r.api, nil
	}

	ua := r.Config.Server.UserAgent
	if ua == "" {
		ua = buildinfo.UserAgent()
	}
	opts := []apiclient.Option{
		apiclient.WithTimeout(r.Config.TimeoutDuration()),
		apiclient.WithUserAgent(ua),
		apiclient.WithMetrics(r.Metrics),
		apiclient.WithLogger(r.Log),
	}
	if r.Config.Server.RateLimit > 0 {
		opts = append(opts, apiclient.WithRateLimit(r.Config.Server.RateLimit, r.Config.Server.Burst))
	}
	if r.Config.Server.CAFile != "" {
		pool, err := tlsroots.NewPool()
		if err != nil {
			return nil, err
		}
		if err := pool.AddCertFile(r.Config.Server.CAFile); err != nil {
			return nil, err
		}
		r.Log.Debug("custom CA roots loaded", "file", r.Config.Server.CAFile, "certs", pool.Added())
		opts = append(opts, apiclient.WithTLSConfig(pool.TLSConfig()))
	}

	api, err := apiclient.New(r.Config.Server.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	r.api = api
	return api, nil
}

// Session opens the credential store, creates the Manager and starts
// resolution. Later calls return the same Manager.
func (r *Runtime) Session(ctx context.Context) (*session.Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mgr != nil {
		return r.mgr, nil
	}

	api, err := r.clientLocked()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(r.Config.Store, r.Log.Slog())
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	mgr := session.New(store, api,
		session.WithLogger(r.Log),
		session.WithMetrics(r.Metrics),
		session.WithStoreWatch(r.Config.Store.Watch),
	)
	if err := mgr.Init(ctx); err != nil {
		_ = mgr.Close()
		_ = store.Close()
		return nil, err
	}

	r.store = store
	r.mgr = mgr
	return mgr, nil
}

// Resolved returns the Manager after its startup check has finished.
func (r *Runtime) Resolved(ctx context.Context) (*session.Manager, error) {
	mgr, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := mgr.WaitResolved(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Close stops the Manager and closes the store.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.mgr != nil {
		errs = append(errs, r.mgr.Close())
		r.mgr = nil
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
		r.store = nil
	}
	return errors.Join(errs...)
}

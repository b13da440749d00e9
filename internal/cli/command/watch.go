package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/cli/config"
	"github.com/yndnr/bankline-go/internal/cli/output"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/infra/fswatch"
	"github.com/yndnr/bankline-go/internal/infra/shutdown"
	"github.com/yndnr/bankline-go/internal/session"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

const shutdownTimeout = 5 * time.Second

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Follow the session",
		Subcommands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Print every session state change until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address (e.g., 127.0.0.1:9464)",
					},
				},
				Action: sessionWatch,
			},
		},
	}
}

func sessionWatch(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	mgr, err := rt.Session(c.Context)
	if err != nil {
		return err
	}
	f, err := formatter(c, rt)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(rt.Log.Slog()))

	if addr := c.String("metrics-addr"); addr != "" {
		srv, bound, err := serveMetrics(rt, mgr, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.Err, "Serving metrics on http://%s/metrics\n", bound)
		h.OnShutdown("metrics", srv.Shutdown)
	}

	if stop := watchConfig(rt); stop != nil {
		h.OnShutdown("config-watch", func(context.Context) error { return stop() })
	}

	states, unsubscribe := mgr.Subscribe()
	h.OnShutdown("subscription", func(context.Context) error {
		unsubscribe()
		return nil
	})

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for s := range states {
			if err := printState(rt.Out, f, s); err != nil {
				rt.Log.Warn("print state", "error", err)
			}
		}
		// Manager closed or unsubscribed.
		h.Trigger()
	}()

	err = h.Wait(c.Context)
	<-printed
	return err
}

// stateLine is one line of watch output.
type stateLine struct {
	Time       time.Time `json:"time" yaml:"time"`
	Phase      string    `json:"phase" yaml:"phase"`
	Resolved   bool      `json:"resolved" yaml:"resolved"`
	User       string    `json:"user,omitempty" yaml:"user,omitempty"`
	Generation uint64    `json:"generation" yaml:"generation"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func printState(w io.Writer, f output.Formatter, s domain.SessionState) error {
	line := stateLine{
		Time:       s.ChangedAt,
		Phase:      s.Phase.String(),
		Resolved:   s.Resolved,
		User:       s.Profile.DisplayName(),
		Generation: s.Generation,
		Reason:     s.Reason,
	}

	switch f.(type) {
	case *output.JSONFormatter:
		// One object per line so the stream can be piped to jq.
		return json.NewEncoder(w).Encode(line)
	case *output.YAMLFormatter:
		fmt.Fprintln(w, "---")
		return f.Format(w, line)
	}

	_, err := fmt.Fprintf(w, "%s  %-22s gen=%-4d user=%s reason=%s\n",
		line.Time.Local().Format(time.RFC3339), line.Phase, line.Generation,
		output.FormatValue(line.User), output.FormatValue(line.Reason))
	return err
}

// serveMetrics starts the /metrics and /healthz listener.
func serveMetrics(rt *Runtime, mgr *session.Manager, addr string) (*http.Server, string, error) {
	r := mux.NewRouter()
	r.Handle("/metrics", rt.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s := mgr.State()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"phase":    s.Phase.String(),
			"resolved": s.Resolved,
		})
	}).Methods(http.MethodGet)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener: %w", err)
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, ln.Addr().String(), nil
}

// watchConfig reapplies the log level whenever the config file changes.
// It returns nil when the file's directory does not exist.
func watchConfig(rt *Runtime) func() error {
	if _, err := os.Stat(filepath.Dir(rt.ConfigPath)); err != nil {
		rt.Log.Debug("config directory missing, hot reload disabled", "path", rt.ConfigPath)
		return nil
	}

	w, err := fswatch.New(fswatch.WithLogger(rt.Log.Slog()))
	if err != nil {
		rt.Log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		_ = w.Stop()
		rt.Log.Warn("config watcher unavailable", "error", err)
		return nil
	}

	w.OnChange(func(ev fswatch.Event) {
		if ev.Op != fswatch.OpChanged {
			return
		}
		rt.reloadConfig()
	})
	w.StartAsync()
	return w.Stop
}

// reloadConfig re-reads the config file and applies the settings that can
// change at runtime. Only the log level is live.
func (r *Runtime) reloadConfig() {
	cfg, err := config.Load(r.ConfigPath, r.Overrides)
	if err != nil {
		r.Log.Warn("config reload failed, keeping current settings", "error", err)
		return
	}
	if cfg.Log.Level == logger.GetLevel() {
		return
	}
	logger.SetLevel(cfg.Log.Level)
	r.Log.Info("log level changed", "level", cfg.Log.Level)
}

// Package main runs the in-process fake bank as a standalone server.
//
// It serves the same endpoints bankline talks to (POST/DELETE /sessions,
// GET /users/me, POST /users) under a path prefix, which makes it handy
// for trying the CLI without a real bank:
//
//	bankline-fakebank -addr 127.0.0.1:8080 -user 'alice:secret:Alice Smith'
//	bankline --server http://127.0.0.1:8080/api login -u alice
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yndnr/bankline-go/internal/bankfake"
	"github.com/yndnr/bankline-go/internal/infra/buildinfo"
	"github.com/yndnr/bankline-go/internal/infra/shutdown"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

type userFlags []string

func (u *userFlags) String() string     { return strings.Join(*u, ",") }
func (u *userFlags) Set(v string) error { *u = append(*u, v); return nil }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr        = flag.String("addr", "127.0.0.1:8080", "Listen address")
		prefix      = flag.String("prefix", "/api", "Path prefix for the API")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat   = flag.String("log-format", "text", "Log format: text, json")
		showVersion = flag.Bool("version", false, "Show version information")
		users       userFlags
	)
	flag.Var(&users, "user", "Seed a user as username:password[:full name[:email]] (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bankline-fakebank %s\n", buildinfo.String())
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	bank := bankfake.New(bankfake.WithLogger(log.Slog()))
	for _, arg := range users {
		u, err := parseUser(arg)
		if err != nil {
			return err
		}
		if _, err := bank.AddUser(u); err != nil {
			return err
		}
	}

	handler := http.Handler(bank)
	if p := strings.TrimRight(*prefix, "/"); p != "" {
		handler = http.StripPrefix(p, bank)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(log.Slog()))
	h.OnShutdown("http", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})

	go func() {
		log.Info("fake bank listening", "addr", ln.Addr().String(), "prefix", *prefix, "users", len(users))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			h.Trigger()
		}
	}()

	if err := h.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("fake bank stopped")
	return nil
}

// parseUser parses username:password[:full name[:email]].
func parseUser(arg string) (bankfake.User, error) {
	parts := strings.SplitN(arg, ":", 4)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return bankfake.User{}, fmt.Errorf("invalid -user %q: want username:password[:full name[:email]]", arg)
	}
	u := bankfake.User{Username: parts[0], Password: parts[1]}
	if len(parts) > 2 {
		u.FullName = parts[2]
	}
	if len(parts) > 3 {
		u.Email = parts[3]
	}
	return u, nil
}

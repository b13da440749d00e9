package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/cli/config"
	"github.com/yndnr/bankline-go/internal/cli/output"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/infra/buildinfo"
	"github.com/yndnr/bankline-go/internal/session"
	"github.com/yndnr/bankline-go/internal/storage"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:                 "bankline",
		Usage:                "Banking API session client",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		Commands:             commands(),
		EnableBashCompletion: true,
		Before:               before,
		After:                after,
		Action:               shellAction,
		Metadata:             map[string]any{},
	}
	return app
}

func commands() []*cli.Command {
	return []*cli.Command{
		LoginCommand(),
		LogoutCommand(),
		RegisterCommand(),
		WhoamiCommand(),
		StatusCommand(),
		RequestCommand(),
		SessionCommand(),
		ConfigCommand(),
		VersionCommand(),
		ShellCommand(),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			EnvVars: []string{"BANKLINE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Bank API base URL (e.g., https://bank.example.com/api)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Credential store backend: file, badger, memory",
		},
		&cli.StringFlag{
			Name:  "store-path",
			Usage: "Credential store location",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only (same as --backend memory)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigPath string
	Output     string
	Wide       bool
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigPath: c.String("config"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// overrides turns explicitly set flags into config keys. Flags win over
// the environment and the config file.
func overrides(c *cli.Context) map[string]any {
	o := make(map[string]any)
	if c.IsSet("server") {
		o["server.base_url"] = c.String("server")
	}
	if c.IsSet("output") {
		o["output.format"] = c.String("output")
	}
	if c.IsSet("backend") {
		o["store.backend"] = c.String("backend")
	}
	if c.IsSet("store-path") {
		o["store.path"] = c.String("store-path")
	}
	if c.Bool("ephemeral") {
		o["store.backend"] = storage.BackendMemory
		o["store.path"] = ""
	}
	if c.IsSet("log-level") {
		o["log.level"] = c.String("log-level")
	}
	if c.Bool("verbose") {
		o["log.level"] = "debug"
	}
	return o
}

func before(c *cli.Context) error {
	// Nested runs from the shell reuse the parent's runtime.
	if _, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return nil
	}

	flags := ParseGlobalFlags(c)
	o := overrides(c)
	cfg, err := config.Load(flags.ConfigPath, o)
	if err != nil {
		return err
	}

	rt, err := NewRuntime(cfg, flags.ConfigPath, c.App.Reader, c.App.Writer, c.App.ErrWriter)
	if err != nil {
		return err
	}
	rt.Overrides = o
	c.App.Metadata[runtimeKey] = rt
	c.App.Metadata[ownerKey] = true
	c.Context = logger.WithLogger(c.Context, rt.Log)
	return nil
}

const ownerKey = "runtime.owner"

func after(c *cli.Context) error {
	rt, ok := c.App.Metadata[runtimeKey].(*Runtime)
	if !ok {
		return nil
	}
	if owner, _ := c.App.Metadata[ownerKey].(bool); !owner {
		return nil
	}
	delete(c.App.Metadata, runtimeKey)
	return rt.Close()
}

// RuntimeFrom retrieves the runtime installed by App's Before hook.
func RuntimeFrom(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("runtime not initialized")
}

// formatter picks the output format: the --output flag, then config.
func formatter(c *cli.Context, rt *Runtime) (output.Formatter, error) {
	name := rt.Config.Output.Format
	if c.IsSet("output") {
		name = c.String("output")
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format, c.Bool("wide")), nil
}

func render(c *cli.Context, rt *Runtime, data any) error {
	f, err := formatter(c, rt)
	if err != nil {
		return err
	}
	return f.Format(c.App.Writer, data)
}

// resultError reports a failed Login or Register with its user-facing
// message while keeping the domain error reachable through errors.Is.
type resultError struct {
	res session.Result
}

func (e *resultError) Error() string { return e.res.Message }
func (e *resultError) Unwrap() error { return e.res.Err }

func failed(res session.Result) error {
	return &resultError{res: res}
}

// PrintError prints an error message to w, followed by its BL-* code when
// the message does not already show it.
func PrintError(w io.Writer, err error) {
	msg := err.Error()
	if code := domain.GetErrorCode(err); code != "" && !strings.Contains(msg, code) {
		msg += " (" + code + ")"
	}
	fmt.Fprintf(w, "error: %s\n", msg)
}

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/cli/repl"
	"github.com/yndnr/bankline-go/internal/core/domain"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start interactive mode (the default with no command)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "Skip the start-up banner",
			},
		},
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	if c.Args().Present() {
		return unknownCommand(c)
	}

	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}

	// Start resolving the stored session while the banner prints.
	mgr, err := rt.Session(c.Context)
	if err != nil {
		return err
	}

	history := repl.NewHistory(repl.DefaultHistoryFile())
	if err := history.Load(); err != nil {
		rt.Log.Debug("history unavailable", "error", err)
	}

	r := repl.New(nestedExecutor(c, rt),
		repl.WithIO(rt.Prompter().Reader(), rt.Out),
		repl.WithHistory(history),
		repl.WithBanner(!c.Bool("no-banner")),
		repl.WithPrompt(func() string {
			s := mgr.State()
			if s.Phase == domain.PhaseAuthenticated {
				return s.Profile.DisplayName() + "@" + repl.DefaultPrompt
			}
			return repl.DefaultPrompt
		}),
	)

	runErr := r.Run(c.Context)
	if err := history.Save(); err != nil {
		rt.Log.Debug("history not saved", "error", err)
	}
	return runErr
}

// nestedExecutor runs each shell line as a fresh App sharing rt, so every
// command sees the same session Manager.
func nestedExecutor(c *cli.Context, rt *Runtime) repl.Executor {
	return func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return nil
		}

		app := App()
		app.Reader = rt.In
		app.Writer = rt.Out
		app.ErrWriter = rt.Err
		app.Action = func(c *cli.Context) error {
			if c.Args().Present() {
				return unknownCommand(c)
			}
			return nil
		}
		app.ExitErrHandler = func(*cli.Context, error) {}
		app.Metadata[runtimeKey] = rt

		argv := append([]string{c.App.Name}, args...)
		return app.RunContext(ctx, argv)
	}
}

func unknownCommand(c *cli.Context) error {
	return fmt.Errorf("unknown command %q (see '%s help')", c.Args().First(), c.App.Name)
}

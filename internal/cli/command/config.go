package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bankline-go/internal/cli/config"
	"github.com/yndnr/bankline-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (defaults, file, environment and flags merged)",
				Action: configShow,
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}

	// YAML mirrors the file layout, so it is the default here.
	if !c.IsSet("output") {
		return (&output.YAMLFormatter{}).Format(rt.Out, rt.Config)
	}
	return render(c, rt, rt.Config)
}

func configInit(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(rt.ConfigPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", rt.ConfigPath)
	}

	if err := config.Save(config.Default(), rt.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Wrote %s\n", rt.ConfigPath)
	return nil
}

func configPath(c *cli.Context) error {
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, rt.ConfigPath)
	return nil
}

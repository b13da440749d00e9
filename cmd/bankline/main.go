// Package main provides the entry point for bankline.
//
// bankline signs in to a bank's REST API, keeps the session credential in a
// local store and exposes the session to scripts (single-command mode) and
// to people (interactive mode).
package main

import (
	"os"

	"github.com/yndnr/bankline-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// Package command provides the bankline command set.
//
// Commands are defined with urfave/cli/v2:
//
//   - root.go: App, global flags, config loading
//   - runtime.go: the lazily built store, API client and session Manager
//   - auth.go: login, logout, register, whoami
//   - status.go: status and raw authorized requests
//   - watch.go: session watch (long-running follower, /metrics)
//   - config.go: config show|init|path
//   - version.go: build information
//   - shell.go: interactive mode
//
// Every command of one process shares a single session Manager, so the
// interactive shell behaves like one long-lived client.
package command

package repl

import (
	"sort"
	"strings"
)

// DefaultCommands are the command lines the shell offers for completion.
var DefaultCommands = []string{
	"login", "logout", "register", "whoami", "whoami --refresh",
	"status", "request", "request GET", "request POST", "request PUT",
	"request PATCH", "request DELETE",
	"session", "session watch",
	"config", "config show", "config path", "config init",
	"version", "help", "history", "exit", "quit",
}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over commands, or DefaultCommands when
// none are given.
func NewCompleter(commands ...string) *Completer {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	c := &Completer{commands: append([]string(nil), commands...)}
	sort.Strings(c.commands)
	return c
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// TopLevel returns the distinct first words.
func (c *Completer) TopLevel() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cmd := range c.commands {
		word, _, _ := strings.Cut(cmd, " ")
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}

// Package repl runs bankline interactively.
//
// Each input line is split into arguments and handed to an Executor, which
// runs it as a bankline command against the one session of the process.
// Typing `login` once keeps the shell signed in until `logout` or until the
// bank rejects the session.
//
//   - repl.go: read loop, built-in commands, argument splitting
//   - completer.go: prefix completion for command names
//   - history.go: history kept in ~/.bankline/history
package repl

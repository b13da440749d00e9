// Package logger provides structured logging for bankline.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, handler selection, level control
//   - context.go: context-aware logging with request IDs
//   - redact.go: masking of credentials before they reach the output
//
// Credentials never reach the output: attributes whose key names a secret
// (token, password, authorization, ...) are replaced, and bearer header
// values are masked wherever they appear.
package logger

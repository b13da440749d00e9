// Package fswatch reports changes to individual files.
//
// It watches the parent directory rather than the file itself so that
// atomic replace (write temp + rename) and editor-style saves are seen,
// then filters events down to the registered file paths. It backs the
// credential-file sync and config hot-reload.
package fswatch

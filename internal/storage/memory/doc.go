// Package memory provides a process-local credential store.
//
// Nothing survives a restart. It backs tests and --ephemeral runs.
package memory

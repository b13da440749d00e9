// Package output renders command results for the bankline CLI.
//
// Three formats are supported: an aligned key/value or column table for
// people, and JSON or YAML for scripts. Values that know how to lay
// themselves out implement Tabular; everything else falls back to a
// KEY/VALUE listing of its fields.
//
// Spinner gives interactive commands feedback while a request is in flight.
package output

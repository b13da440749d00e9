// Package storage holds the durable credential slot for bankline.
//
// The store is deliberately dumb: it keeps exactly one opaque token string
// and performs no validation, expiry or encryption. Deciding whether the
// token is still good is the session manager's job.
//
// Backends:
//
//   - file: one file holding the raw token, replaced atomically (default)
//   - badger: a badger/v3 directory with a single key
//   - memory: process-local, for tests and ephemeral runs
//
// Open selects a backend from Config. Backends that can observe changes made
// by other processes also implement Watchable.
package storage

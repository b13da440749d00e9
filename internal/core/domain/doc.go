// Package domain defines the core domain models for bankline.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - SessionToken: the opaque credential issued by the bank API
//   - UserProfile: the server-confirmed identity behind a token
//   - SessionState: the snapshot of the session state machine
//   - Errors: domain error codes surfaced to session consumers
package domain

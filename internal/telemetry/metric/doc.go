// Package metric provides Prometheus metrics for bankline.
//
//   - prometheus.go: the Registry and its /metrics HTTP handler
//
// Metrics include:
//
//   - Session state transitions, labelled by source and target phase
//   - Results dropped by the generation guard
//   - API request counts and latency histograms
//   - Credential store operation failures
//
// A nil *Registry is valid and records nothing, so components can take
// one unconditionally.
package metric

// Package metric provides Prometheus metrics for bankline.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bankline"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Session metrics
	SessionTransitions *prometheus.CounterVec
	StaleResults       prometheus.Counter
	SessionPhase       *prometheus.GaugeVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Credential store metrics
	StoreErrors *prometheus.CounterVec
}

// NewRegistry creates a registry with every bankline metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by source and target phase.",
		}, []string{"from", "to"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_total",
			Help:      "Async results discarded because a later transition superseded them.",
		}),
		SessionPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "phase",
			Help:      "1 for the current session phase, 0 for the others.",
		}, []string{"phase"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and status code (0 when no response).",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Credential store failures by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		r.SessionTransitions,
		r.StaleResults,
		r.SessionPhase,
		r.RequestsTotal,
		r.RequestDuration,
		r.StoreErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveTransition records a phase change and updates the phase gauge.
func (r *Registry) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.SessionTransitions.WithLabelValues(from, to).Inc()
	r.SessionPhase.WithLabelValues(from).Set(0)
	r.SessionPhase.WithLabelValues(to).Set(1)
}

// ObserveStale records a result dropped by the generation guard.
func (r *Registry) ObserveStale() {
	if r == nil {
		return
	}
	r.StaleResults.Inc()
}

// ObserveRequest records one API round trip. status is 0 when the request
// never produced a response.
func (r *Registry) ObserveRequest(method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveStoreError records a failed credential store operation.
func (r *Registry) ObserveStoreError(op string) {
	if r == nil {
		return
	}
	r.StoreErrors.WithLabelValues(op).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Package metrics exposes Prometheus instrumentation for the
// authorization core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the collectors tracked by the service. All counters
// are registered on a private registry so tests can run side by side
// without duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	KeyValidations   *prometheus.CounterVec
	AuthzDecisions   *prometheus.CounterVec
	KeyOperations    *prometheus.CounterVec
	ValidationTiming prometheus.Histogram
}

// New creates a Metrics bundle backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		KeyValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authcore",
				Name:      "api_key_validations_total",
				Help:      "API key validation attempts by result.",
			},
			[]string{"result"},
		),
		AuthzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authcore",
				Name:      "authz_decisions_total",
				Help:      "Authorization decisions by outcome and principal type.",
			},
			[]string{"outcome", "principal"},
		),
		KeyOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authcore",
				Name:      "api_key_operations_total",
				Help:      "API key lifecycle operations by kind.",
			},
			[]string{"operation"},
		),
		ValidationTiming: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "authcore",
				Name:      "api_key_validation_duration_seconds",
				Help:      "Latency of API key validation.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		m.KeyValidations,
		m.AuthzDecisions,
		m.KeyOperations,
		m.ValidationTiming,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveValidation records one validation attempt.
func (m *Metrics) ObserveValidation(result string, seconds float64) {
	m.KeyValidations.WithLabelValues(result).Inc()
	m.ValidationTiming.Observe(seconds)
}

// ObserveDecision records one authorization decision.
func (m *Metrics) ObserveDecision(outcome, principal string) {
	m.AuthzDecisions.WithLabelValues(outcome, principal).Inc()
}

// ObserveKeyOperation records one lifecycle operation.
func (m *Metrics) ObserveKeyOperation(operation string) {
	m.KeyOperations.WithLabelValues(operation).Inc()
}

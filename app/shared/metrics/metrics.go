// Package metrics exposes the operation counters shared by every service.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OperationMetrics records per-operation attempt/success/failure counts and
// durations for a service.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, d time.Duration)
}

type promMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheus registers the operation metrics on the given registerer.
func NewPrometheus(reg prometheus.Registerer) OperationMetrics {
	factory := promauto.With(reg)
	labels := []string{"operation", "service"}
	return &promMetrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_operation_attempts_total",
			Help: "Number of service operations attempted.",
		}, labels),
		successes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_operation_successes_total",
			Help: "Number of service operations that completed without error.",
		}, labels),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_operation_failures_total",
			Help: "Number of service operations that returned an error or panicked.",
		}, labels),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_operation_duration_seconds",
			Help:    "Duration of service operations.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
}

func (m *promMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *promMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(d.Seconds())
}

type noop struct{}

// NewNoop returns metrics that discard everything. Used in tests.
func NewNoop() OperationMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                {}
func (noop) RecordOperationSuccess(context.Context, string, string)                {}
func (noop) RecordOperationFailure(context.Context, string, string)                {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}

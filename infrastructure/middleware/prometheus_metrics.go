// Package middleware provides cross-cutting concerns for the dataflow
// engine, currently its Prometheus metrics adapter.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus, covering node executions, producer ticks, and lifecycle
// health of running graphs.
type PrometheusMetrics struct {
	nodeExecutions   *prometheus.CounterVec
	producerTicks    *prometheus.CounterVec
	cleanupErrors    *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registered
// with reg. Pass prometheus.DefaultRegisterer for the process-global
// registry, or a private registry in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		nodeExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_node_executions_total",
				Help: "Total node executions, by graph, node, and outcome.",
			},
			[]string{"graph", "node", "status"},
		),
		producerTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_producer_ticks_total",
				Help: "Total event-producer ticks, by graph and producer.",
			},
			[]string{"graph", "producer"},
		),
		cleanupErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_producer_cleanup_errors_total",
				Help: "Producer cleanup failures, by graph and producer.",
			},
			[]string{"graph", "producer"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_engine_operations_total",
				Help: "Engine operations not covered by a dedicated counter.",
			},
			[]string{"operation", "graph"},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loom_execution_duration_seconds",
				Help:    "Latency of node executions and producer ticks.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "graph"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loom_engine_state",
				Help: "Current engine state values, such as live producers.",
			},
			[]string{"metric", "graph"},
		),
	}
}

// RecordLatency records an operation's duration in the latency
// histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.executionLatency.WithLabelValues(operation, labels["graph"]).Observe(duration.Seconds())
}

// RecordCounter increments the counter matching the metric name,
// falling back to the generic operation counter for unknown names.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "node_executions_total":
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.nodeExecutions.WithLabelValues(labels["graph"], labels["node"], status).Add(value)
	case "producer_ticks_total":
		pm.producerTicks.WithLabelValues(labels["graph"], labels["producer"]).Add(value)
	case "producer_cleanup_errors_total":
		pm.cleanupErrors.WithLabelValues(labels["graph"], labels["producer"]).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, labels["graph"]).Add(value)
	}
}

// RecordGauge sets a named gauge value.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric, labels["graph"]).Set(value)
}

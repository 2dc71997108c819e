package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCounterRoutesByMetricName(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordCounter("node_executions_total", 1, map[string]string{
		"graph": "g1", "node": "n1", "status": "ok",
	})
	pm.RecordCounter("node_executions_total", 2, map[string]string{
		"graph": "g1", "node": "n1", "status": "error",
	})
	pm.RecordCounter("producer_ticks_total", 3, map[string]string{
		"graph": "g1", "producer": "p1",
	})
	pm.RecordCounter("producer_cleanup_errors_total", 1, map[string]string{
		"graph": "g1", "producer": "p1",
	})
	pm.RecordCounter("something_else", 5, map[string]string{"graph": "g1"})

	assert.InDelta(t, 1.0, testutil.ToFloat64(
		pm.nodeExecutions.WithLabelValues("g1", "n1", "ok")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(
		pm.nodeExecutions.WithLabelValues("g1", "n1", "error")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(
		pm.producerTicks.WithLabelValues("g1", "p1")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		pm.cleanupErrors.WithLabelValues("g1", "p1")), 1e-9)
	assert.InDelta(t, 5.0, testutil.ToFloat64(
		pm.operationCounter.WithLabelValues("something_else", "g1")), 1e-9)
}

func TestRecordCounterDefaultsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordCounter("node_executions_total", 1, map[string]string{
		"graph": "g1", "node": "n1",
	})
	assert.InDelta(t, 1.0, testutil.ToFloat64(
		pm.nodeExecutions.WithLabelValues("g1", "n1", "success")), 1e-9)
}

func TestRecordLatencyAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordLatency("node_execute", 25*time.Millisecond, map[string]string{"graph": "g1"})
	pm.RecordLatency("producer_tick", 5*time.Millisecond, map[string]string{"graph": "g1"})
	pm.RecordGauge("live_producers", 2, map[string]string{"graph": "g1"})

	count, err := testutil.GatherAndCount(reg,
		"loom_execution_duration_seconds", "loom_engine_state")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.InDelta(t, 2.0, testutil.ToFloat64(
		pm.systemGauges.WithLabelValues("live_producers", "g1")), 1e-9)
}

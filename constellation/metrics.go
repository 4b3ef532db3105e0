package constellation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects execution metrics for constellation runs.
//
// Metrics exposed (all namespaced with "astro_"):
//
//  1. inflight_nodes (gauge): nodes currently executing.
//  2. node_duration_ms (histogram): per-attempt node wall time, labeled by
//     constellation_id, star_type, and status (completed/failed).
//  3. node_retries_total (counter): retry attempts, labeled by
//     constellation_id and node_id.
//  4. runs_total (counter): terminal run outcomes, labeled by
//     constellation_id and status.
//  5. loop_iterations_total (counter): eval-cycle re-entries taken, labeled
//     by constellation_id.
//  6. checkpoints_total (counter): run records persisted mid-execution.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := constellation.NewPrometheusMetrics(registry)
//	runner, err := constellation.NewRunner(st, constellation.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// A nil *PrometheusMetrics is valid: all observation methods no-op, so the
// Runner never branches on its presence.
type PrometheusMetrics struct {
	inflightNodes  prometheus.Gauge
	nodeDuration   *prometheus.HistogramVec
	nodeRetries    *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	loopIterations *prometheus.CounterVec
	checkpoints    prometheus.Counter
}

// NewPrometheusMetrics creates and registers the metric set against the
// given registerer. A nil registerer uses the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "astro",
			Name:      "inflight_nodes",
			Help:      "Number of constellation nodes currently executing.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "astro",
			Name:      "node_duration_ms",
			Help:      "Node attempt duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"constellation_id", "star_type", "status"}),
		nodeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro",
			Name:      "node_retries_total",
			Help:      "Retry attempts taken after failed node executions.",
		}, []string{"constellation_id", "node_id"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro",
			Name:      "runs_total",
			Help:      "Terminal run outcomes by status.",
		}, []string{"constellation_id", "status"}),
		loopIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro",
			Name:      "loop_iterations_total",
			Help:      "Eval-cycle loop re-entries taken.",
		}, []string{"constellation_id"}),
		checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "astro",
			Name:      "checkpoints_total",
			Help:      "Run records persisted mid-execution.",
		}),
	}
}

func (m *PrometheusMetrics) nodeStarted() {
	if m == nil {
		return
	}
	m.inflightNodes.Inc()
}

func (m *PrometheusMetrics) nodeFinished(constellationID, starType, status string, durationMS int64) {
	if m == nil {
		return
	}
	m.inflightNodes.Dec()
	m.nodeDuration.WithLabelValues(constellationID, starType, status).Observe(float64(durationMS))
}

func (m *PrometheusMetrics) observeRetry(constellationID, nodeID string) {
	if m == nil {
		return
	}
	m.nodeRetries.WithLabelValues(constellationID, nodeID).Inc()
}

func (m *PrometheusMetrics) observeRunFinished(constellationID string, status RunStatus) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(constellationID, string(status)).Inc()
}

func (m *PrometheusMetrics) observeLoop(constellationID string) {
	if m == nil {
		return
	}
	m.loopIterations.WithLabelValues(constellationID).Inc()
}

func (m *PrometheusMetrics) observeCheckpoint() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}

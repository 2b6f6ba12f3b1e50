package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/atomenv/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing a
// PrometheusCollector never touches the registry.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Environment metrics
	nlBuilds      prometheus.Counter
	nlDuration    prometheus.Histogram
	nlAtoms       prometheus.Gauge
	viewsBuilt    prometheus.Counter
	stageDuration prometheus.Histogram
	stagedViews   prometheus.Counter

	// Distribution metrics
	gatherDuration  *prometheus.HistogramVec
	gatheredViews   *prometheus.CounterVec
	scratchOps      *prometheus.CounterVec
	scratchDuration *prometheus.HistogramVec
	barrierWait     prometheus.Histogram
	rankAssignments *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "atomenv" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "atomenv"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.nlBuilds = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "neighbor_list_builds_total",
			Help:      "Total full neighbor searches.",
		})
		p.nlDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "neighbor_list_build_seconds",
			Help:      "Duration of full neighbor searches in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs .. ~26s
		})
		p.nlAtoms = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "neighbor_list_atoms",
			Help:      "Atom count of the most recent neighbor search.",
		})
		p.viewsBuilt = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "views_built_total",
			Help:      "Total pairwise views rebuilt.",
		})
		p.stageDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "stage_seconds",
			Help:      "Duration of staging passes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		})
		p.stagedViews = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "environment",
			Name:      "staged_views_total",
			Help:      "Total views passed to feature generators.",
		})

		p.gatherDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "gather_seconds",
			Help:      "Duration of gather calls in seconds by mode (distributed, local).",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"mode"})
		p.gatheredViews = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "gathered_views_total",
			Help:      "Total views returned by gather calls by mode.",
		}, []string{"mode"})
		p.scratchOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "scratch_operations_total",
			Help:      "Total scratch store operations by op and result.",
		}, []string{"op", "result"})
		p.scratchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "scratch_operation_seconds",
			Help:      "Latency of scratch store operations in seconds by op.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"})
		p.barrierWait = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "barrier_wait_seconds",
			Help:      "Time spent blocked in group barriers in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		})
		p.rankAssignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "rank_assignments_total",
			Help:      "Total atoms assigned to ranks by the load balancer.",
		}, []string{"rank", "species"})

		p.reg.MustRegister(
			p.nlBuilds,
			p.nlDuration,
			p.nlAtoms,
			p.viewsBuilt,
			p.stageDuration,
			p.stagedViews,
			p.gatherDuration,
			p.gatheredViews,
			p.scratchOps,
			p.scratchDuration,
			p.barrierWait,
			p.rankAssignments,
		)
	})
}

// RecordNeighborListBuild records one full neighbor search.
func (p *PrometheusCollector) RecordNeighborListBuild(atoms int, duration float64) {
	p.ensureRegistered()
	p.nlBuilds.Inc()
	p.nlDuration.Observe(duration)
	p.nlAtoms.Set(float64(atoms))
}

// RecordViewsBuilt adds count to the rebuilt views counter.
func (p *PrometheusCollector) RecordViewsBuilt(count int) {
	p.ensureRegistered()
	p.viewsBuilt.Add(float64(count))
}

// RecordStage records one staging pass.
func (p *PrometheusCollector) RecordStage(views int, duration float64) {
	p.ensureRegistered()
	p.stageDuration.Observe(duration)
	p.stagedViews.Add(float64(views))
}

// RecordGather records one gather call.
func (p *PrometheusCollector) RecordGather(views int, duration float64, distributed bool) {
	p.ensureRegistered()
	mode := "local"
	if distributed {
		mode = "distributed"
	}
	p.gatherDuration.WithLabelValues(mode).Observe(duration)
	p.gatheredViews.WithLabelValues(mode).Add(float64(views))
}

// RecordScratchOperation records one scratch store operation.
func (p *PrometheusCollector) RecordScratchOperation(operation string, duration float64, success bool) {
	p.ensureRegistered()
	result := "success"
	if !success {
		result = "failure"
	}
	p.scratchOps.WithLabelValues(operation, result).Inc()
	p.scratchDuration.WithLabelValues(operation).Observe(duration)
}

// RecordBarrierWait observes time spent in a barrier.
func (p *PrometheusCollector) RecordBarrierWait(duration float64) {
	p.ensureRegistered()
	p.barrierWait.Observe(duration)
}

// RecordRankAssignment counts one atom assigned to rank.
func (p *PrometheusCollector) RecordRankAssignment(rank int, species types.Species) {
	p.ensureRegistered()
	p.rankAssignments.WithLabelValues(strconv.Itoa(rank), strconv.Itoa(int(species))).Inc()
}

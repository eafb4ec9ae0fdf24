// Package metrics provides Prometheus-backed operational metrics for the
// preparation pipeline and the search engine.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	labelStrategy = "strategy"
	labelStage    = "stage"
	labelArtifact = "artifact"
)

// Metrics tracks operational counters for one rootcause process.
type Metrics struct {
	searchesRun      atomic.Uint64
	searchesFailed   atomic.Uint64
	candidatesFound  atomic.Uint64

	logger *zap.Logger

	promSearchesTotal       prometheus.Counter
	promSearchesFailedTotal prometheus.Counter
	promSearchLatency       prometheus.Histogram
	promCandidatesByStrategy *prometheus.CounterVec
	promPreparationStageLatency *prometheus.HistogramVec
	promCacheHits           *prometheus.CounterVec
	promCacheMisses         *prometheus.CounterVec

	statsMu       sync.RWMutex
	strategyCounts map[string]uint64

	registry *prometheus.Registry
}

// New creates a metrics tracker with its own Prometheus registry under the
// "rootcause" namespace. Each Metrics instance owns a private registry
// rather than registering into prometheus.DefaultRegisterer, so that
// multiple instances (as in tests) never collide on metric descriptors.
func New(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		logger:         logger,
		strategyCounts: make(map[string]uint64),
		registry:       registry,

		promSearchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rootcause",
			Name:      "searches_total",
			Help:      "Total number of search(error_line_id) invocations.",
		}),
		promSearchesFailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rootcause",
			Name:      "searches_failed_total",
			Help:      "Total number of search invocations that returned an error.",
		}),
		promSearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rootcause",
			Name:      "search_latency_seconds",
			Help:      "Wall-clock latency of a full search(error_line_id) call.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		promCandidatesByStrategy: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootcause",
			Name:      "candidates_found_total",
			Help:      "Candidates added to the root-cause set, labeled by strategy name.",
		}, []string{labelStrategy}),
		promPreparationStageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rootcause",
			Name:      "preparation_stage_latency_seconds",
			Help:      "Latency of each preparation pipeline stage, labeled by stage name.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{labelStage}),
		promCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootcause",
			Name:      "sidecar_cache_hits_total",
			Help:      "Sidecar artifact cache hits, labeled by artifact kind.",
		}, []string{labelArtifact}),
		promCacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootcause",
			Name:      "sidecar_cache_misses_total",
			Help:      "Sidecar artifact cache misses, labeled by artifact kind.",
		}, []string{labelArtifact}),
	}

	return m
}

// RecordSearch records the outcome and latency of one search invocation.
func (m *Metrics) RecordSearch(success bool, latency time.Duration) {
	m.searchesRun.Add(1)
	m.promSearchesTotal.Inc()
	m.promSearchLatency.Observe(latency.Seconds())
	if !success {
		m.searchesFailed.Add(1)
		m.promSearchesFailedTotal.Inc()
	}
}

// RecordCandidate records one candidate added to a RootCauseSet by the
// named strategy.
func (m *Metrics) RecordCandidate(strategyName string) {
	m.candidatesFound.Add(1)

	m.statsMu.Lock()
	m.strategyCounts[strategyName]++
	m.statsMu.Unlock()

	m.promCandidatesByStrategy.WithLabelValues(strategyName).Inc()
}

// RecordPreparationStage records the latency of one preparation pipeline
// stage (e.g. "normalize", "template_assign", "persist").
func (m *Metrics) RecordPreparationStage(stage string, latency time.Duration) {
	m.promPreparationStageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RecordSidecarCacheHit records that a sidecar artifact (e.g.
// "pre_clustering", "post_clustering", "drain_state") was found on disk and
// reused instead of recomputed.
func (m *Metrics) RecordSidecarCacheHit(artifact string) {
	m.promCacheHits.WithLabelValues(artifact).Inc()
}

// RecordSidecarCacheMiss records that a sidecar artifact had to be computed.
func (m *Metrics) RecordSidecarCacheMiss(artifact string) {
	m.promCacheMisses.WithLabelValues(artifact).Inc()
}

// Stats is a point-in-time snapshot of in-process counters, independent of
// the Prometheus registry, for logging or programmatic inspection.
type Stats struct {
	SearchesRun     uint64
	SearchesFailed  uint64
	CandidatesFound uint64
	ByStrategy      map[string]uint64
}

// GetStats returns a snapshot of current counters.
func (m *Metrics) GetStats() Stats {
	m.statsMu.RLock()
	byStrategy := make(map[string]uint64, len(m.strategyCounts))
	for k, v := range m.strategyCounts {
		byStrategy[k] = v
	}
	m.statsMu.RUnlock()

	return Stats{
		SearchesRun:     m.searchesRun.Load(),
		SearchesFailed:  m.searchesFailed.Load(),
		CandidatesFound: m.candidatesFound.Load(),
		ByStrategy:      byStrategy,
	}
}

// LogStats logs the current counters as structured fields.
func (m *Metrics) LogStats() {
	stats := m.GetStats()
	m.logger.Info("rootcause metrics",
		zap.Uint64("searches_run", stats.SearchesRun),
		zap.Uint64("searches_failed", stats.SearchesFailed),
		zap.Uint64("candidates_found", stats.CandidatesFound),
		zap.Any("candidates_by_strategy", stats.ByStrategy),
	)
}

// Registry returns this instance's Prometheus registry, used by
// internal/health to serve /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

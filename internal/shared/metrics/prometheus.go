package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mutation metrics
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_mutations_total",
			Help: "Total number of optimistic mutations by entity type and outcome",
		},
		[]string{"entity", "outcome"},
	)

	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rollbacks_total",
			Help: "Total number of cache rollbacks after a failed mutation",
		},
		[]string{"entity"},
	)

	// Poll metrics
	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_poll_cycles_total",
			Help: "Total number of completed poll cycles",
		},
		[]string{"entity"},
	)

	pollErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_poll_errors_total",
			Help: "Total number of failed poll cycles",
		},
		[]string{"entity"},
	)

	cacheEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_cache_entities",
			Help: "Number of entities currently held per cache store",
		},
		[]string{"entity"},
	)

	// Search metrics
	searchEnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_search_enrichments_total",
			Help: "Total number of remote search enrichment attempts",
		},
		[]string{"outcome"},
	)

	// Backend metrics
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_backend_request_duration_seconds",
			Help:    "Hospital backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// --- Engine metric helpers ---

// RecordMutation records a completed mutation
func RecordMutation(entity, outcome string) {
	mutationsTotal.WithLabelValues(entity, outcome).Inc()
}

// RecordRollback records a cache rollback
func RecordRollback(entity string) {
	rollbacksTotal.WithLabelValues(entity).Inc()
}

// RecordPoll records a poll cycle
func RecordPoll(entity string, err error) {
	pollCyclesTotal.WithLabelValues(entity).Inc()
	if err != nil {
		pollErrorsTotal.WithLabelValues(entity).Inc()
	}
}

// SetCacheSize records the entity count of a cache store
func SetCacheSize(entity string, n int) {
	cacheEntities.WithLabelValues(entity).Set(float64(n))
}

// RecordEnrichment records a remote search enrichment attempt
func RecordEnrichment(outcome string) {
	searchEnrichmentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBackendRequest records a backend request duration
func ObserveBackendRequest(endpoint string, duration time.Duration) {
	backendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

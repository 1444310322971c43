// Package metrics holds the Prometheus collectors of the resolver and the
// dependency graph. Collectors register with the default registry and are
// exposed by the app's health server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bundler"

var (
	// resolutions counts resolver decisions.
	// Labels: outcome (found, missing, unsupported, fetch_error)
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Total uncached resolutions by outcome",
	}, []string{"outcome"})

	// resolutionCacheHits counts queries answered from the result cache.
	resolutionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "cache_hits_total",
		Help:      "Total resolutions served from cache",
	})

	// remoteFetches counts remote module downloads.
	// Labels: status (downloaded, reused, error)
	remoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "remote_fetches_total",
		Help:      "Remote module fetches by status",
	}, []string{"status"})

	// nodesCreated counts dependency nodes added to any graph.
	nodesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "nodes_created_total",
		Help:      "Total dependency nodes created",
	})

	// seedDuration measures complete seed calls.
	// Labels: status (success, error)
	seedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "seed_duration_seconds",
		Help:      "Time to seed the dependency graph",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"status"})

	// diagnosticsTotal counts diagnostics by category.
	diagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "diagnostics_total",
		Help:      "Diagnostics reported by category",
	}, []string{"category"})
)

// RecordResolution records an uncached resolver outcome.
func RecordResolution(outcome string) {
	resolutions.WithLabelValues(outcome).Inc()
}

// RecordCacheHit records a resolution served from cache.
func RecordCacheHit() {
	resolutionCacheHits.Inc()
}

// RecordRemoteFetch records a remote fetch attempt.
func RecordRemoteFetch(status string) {
	remoteFetches.WithLabelValues(status).Inc()
}

// RecordNodeCreated records a new dependency node.
func RecordNodeCreated() {
	nodesCreated.Inc()
}

// RecordSeed records a seed call that started at start.
func RecordSeed(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	seedDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// RecordDiagnostic records a diagnostic of the given category.
func RecordDiagnostic(category string) {
	diagnosticsTotal.WithLabelValues(category).Inc()
}

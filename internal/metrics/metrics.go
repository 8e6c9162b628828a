package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_catalog_requests_total",
			Help: "Total number of catalog lookups by outcome",
		},
		[]string{"result"}, // result: "found", "not_found", "upstream_error", "parse_error", "rejected"
	)

	CatalogRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookshelf_catalog_request_duration_seconds",
			Help:    "Catalog lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Registry and collection metrics
	RegistryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_registry_lookups_total",
			Help: "Registry get-or-create calls by outcome",
		},
		[]string{"result"}, // result: "hit", "created", "race"
	)

	EntryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_entry_mutations_total",
			Help: "Collection entry mutations by partition and operation",
		},
		[]string{"partition", "operation"},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCatalogRequest records one catalog lookup.
func RecordCatalogRequest(result string, duration time.Duration) {
	CatalogRequests.WithLabelValues(result).Inc()
	if duration > 0 {
		CatalogRequestDuration.Observe(duration.Seconds())
	}
}

// RegisterDBStats exposes connection pool gauges read from stats on every
// scrape.
func RegisterDBStats(stats func() sql.DBStats) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bookshelf_db_open_connections",
		Help: "Number of established database connections",
	}, func() float64 { return float64(stats().OpenConnections) })
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bookshelf_db_in_use_connections",
		Help: "Number of database connections currently in use",
	}, func() float64 { return float64(stats().InUse) })
}

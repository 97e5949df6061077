package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the collectors of an inference run on a private
// Prometheus registry
type Registry struct {
	registry *prometheus.Registry

	QueriesTotal    *prometheus.CounterVec
	OperationsTotal *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	LedgerHits      prometheus.Counter
	QueryErrors     prometheus.Counter
}

// NewRegistry creates a registry with all collectors registered
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	factory := promauto.With(r.registry)

	r.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bayesnet_queries_total",
			Help: "Total number of queries answered",
		},
		[]string{"algorithm"},
	)

	r.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bayesnet_operations_total",
			Help: "Arithmetic operations performed while answering queries",
		},
		[]string{"algorithm", "kind"},
	)

	r.QueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bayesnet_query_duration_seconds",
			Help:    "Query evaluation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"algorithm"},
	)

	r.LedgerHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "bayesnet_ledger_hits_total",
		Help: "Queries answered from the run ledger without evaluation",
	})

	r.QueryErrors = factory.NewCounter(prometheus.CounterOpts{
		Name: "bayesnet_query_errors_total",
		Help: "Queries that failed to evaluate",
	})

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordQuery records one evaluated query
func (r *Registry) RecordQuery(algorithm string, sums, multiplies int, duration time.Duration) {
	r.QueriesTotal.WithLabelValues(algorithm).Inc()
	r.OperationsTotal.WithLabelValues(algorithm, "sum").Add(float64(sums))
	r.OperationsTotal.WithLabelValues(algorithm, "multiply").Add(float64(multiplies))
	r.QueryDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordLedgerHit records a query answered from the ledger
func (r *Registry) RecordLedgerHit() {
	r.LedgerHits.Inc()
}

// RecordError records a failed query
func (r *Registry) RecordError() {
	r.QueryErrors.Inc()
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// for pickup by a node exporter textfile collector
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "travel_score"

// Metrics holds the Prometheus counters and histograms for one resolution run.
// Each Metrics owns its registry so several runs (or tests) can coexist in one
// process.
type Metrics struct {
	Registry *prometheus.Registry

	RowsProcessed prometheus.Counter
	RowsResolved  *prometheus.CounterVec // labels: source={store,resolver}
	RowsSkipped   prometheus.Counter

	StoreLookups *prometheus.CounterVec // labels: result={hit,miss}
	StoreAppends prometheus.Counter

	ResolverRequests *prometheus.CounterVec   // labels: provider, outcome={success,no_match,error}
	ResolverDuration *prometheus.HistogramVec // labels: provider

	RunDuration prometheus.Gauge
}

// NewMetrics creates all run metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Total input rows processed.",
		}),
		RowsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_resolved_total",
			Help:      "Input rows resolved to coordinates, by source.",
		}, []string{"source"}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Input rows dropped because resolution failed.",
		}),
		StoreLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_lookups_total",
			Help:      "City database lookups by result.",
		}, []string{"result"}),
		StoreAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_appends_total",
			Help:      "Records appended to the city database.",
		}),
		ResolverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ResolverDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last resolution run.",
		}),
	}

	m.Registry.MustRegister(
		m.RowsProcessed,
		m.RowsResolved,
		m.RowsSkipped,
		m.StoreLookups,
		m.StoreAppends,
		m.ResolverRequests,
		m.ResolverDuration,
		m.RunDuration,
	)

	return m
}

// WriteTextfile dumps the registry in Prometheus text format, for pickup by a
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// geocoding and query engine.
type Metrics struct {
	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: backend={amap,offline}, outcome={success,empty,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Query metrics.
	NearestQueryDuration prometheus.Histogram
	NearestQueries       *prometheus.CounterVec // labels: outcome={ok,unresolved}

	// Dataset metrics.
	ActiveRecords  prometheus.Gauge
	RecordsStaged  prometheus.Counter
	Swaps          *prometheus.CounterVec // labels: outcome={committed,rejected}
	UpdateDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.GeocodeRequests,
		m.GeocodeCache,
		m.NearestQueryDuration,
		m.NearestQueries,
		m.ActiveRecords,
		m.RecordsStaged,
		m.Swaps,
		m.UpdateDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterpoint",
			Name:      "geocode_requests_total",
			Help:      "Geocoding backend lookups by backend and outcome.",
		}, []string{"backend", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterpoint",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		NearestQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterpoint",
			Name:      "nearest_query_duration_seconds",
			Help:      "Duration of a nearest-records query, including place resolution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		NearestQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterpoint",
			Name:      "nearest_queries_total",
			Help:      "Nearest-records queries by outcome.",
		}, []string{"outcome"}),
		ActiveRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waterpoint",
			Name:      "active_records",
			Help:      "Record count of the active dataset generation.",
		}),
		RecordsStaged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterpoint",
			Name:      "records_staged_total",
			Help:      "Total records written into staging across all updates.",
		}),
		Swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterpoint",
			Name:      "dataset_swaps_total",
			Help:      "Staging-to-active swap attempts by outcome.",
		}, []string{"outcome"}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterpoint",
			Name:      "update_duration_seconds",
			Help:      "Duration of a complete bulk update (ingest, geocode, swap).",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}
}

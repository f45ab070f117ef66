package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the refresh service.
type Metrics struct {
	// Refresh run metrics.
	RunsTotal          *prometheus.CounterVec // labels: outcome={completed,timed_out,cancelled,skipped}
	RunDuration        prometheus.Histogram
	RunInProgress      prometheus.Gauge
	LastCompletedUnix  prometheus.Gauge
	EntityResults      *prometheus.CounterVec // labels: result={success,no_valid_data,fetch_failed,classifier_error,store_error,panic}
	EntitiesUnfinished prometheus.Counter

	// Upstream fetch metrics.
	FetchAttempts *prometheus.CounterVec // labels: outcome={success,retry,failed}
	FetchDuration prometheus.Histogram

	// Store and publishing metrics.
	StoreCache    *prometheus.CounterVec // labels: result={hit,miss}
	PublishErrors prometheus.Counter
}

// NewMetrics creates and registers all refresh metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the metrics and registers them with reg. One-shot
// commands pass a private registry so nothing is exported.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunInProgress,
		m.LastCompletedUnix,
		m.EntityResults,
		m.EntitiesUnfinished,
		m.FetchAttempts,
		m.FetchDuration,
		m.StoreCache,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "refresh_runs_total",
			Help:      "Refresh runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "refresh_run_duration_seconds",
			Help:      "Wall-clock duration of a refresh run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 180, 240, 300, 600},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "refresh_in_progress",
			Help:      "1 while a refresh run holds the run lock, 0 otherwise.",
		}),
		LastCompletedUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "refresh_last_completed_timestamp_seconds",
			Help:      "Unix time the last refresh run finished.",
		}),
		EntityResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "refresh_entity_results_total",
			Help:      "Per-location refresh results.",
		}, []string{"result"}),
		EntitiesUnfinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "refresh_entities_unprocessed_total",
			Help:      "Locations not reached before a run timed out.",
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "power_fetch_attempts_total",
			Help:      "NASA POWER request attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "power_fetch_duration_seconds",
			Help:      "NASA POWER request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		StoreCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "store_cache_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "snapshot_publish_errors_total",
			Help:      "Snapshot update messages that could not be published.",
		}),
	}
}

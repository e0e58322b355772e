package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the permission layer.
type Metrics struct {
	// Access decisions
	AccessChecksTotal   *prometheus.CounterVec
	AccessCheckDuration *prometheus.HistogramVec

	// Grant lifecycle
	GrantMutationsTotal *prometheus.CounterVec

	// Propagation to the external file-authorization system
	PropagationRunsTotal    *prometheus.CounterVec
	PropagationCallsTotal   *prometheus.CounterVec
	PropagationSkippedTotal prometheus.Counter
	PropagationDuration     prometheus.Histogram

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database pool
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers the permission-layer metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_access_checks_total",
				Help: "Total number of access resolutions",
			},
			[]string{"resource", "outcome"},
		),
		AccessCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coral_access_check_duration_seconds",
				Help:    "Access resolution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		GrantMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_grant_mutations_total",
				Help: "Total number of grant replace/revoke operations",
			},
			[]string{"resource", "operation"},
		),
		PropagationRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_propagation_runs_total",
				Help: "Total number of propagation runs",
			},
			[]string{"status"},
		),
		PropagationCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_propagation_calls_total",
				Help: "Total number of calls to the external file-authorization system",
			},
			[]string{"operation", "status"},
		),
		PropagationSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coral_propagation_skipped_total",
				Help: "Files skipped because the update would not expand access",
			},
		),
		PropagationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coral_propagation_duration_seconds",
				Help:    "End-to-end propagation run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_cache_hits_total",
				Help: "Record cache hits",
			},
			[]string{"record"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coral_cache_misses_total",
				Help: "Record cache misses",
			},
			[]string{"record"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coral_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coral_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.AccessChecksTotal,
		m.AccessCheckDuration,
		m.GrantMutationsTotal,
		m.PropagationRunsTotal,
		m.PropagationCallsTotal,
		m.PropagationSkippedTotal,
		m.PropagationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

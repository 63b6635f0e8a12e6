// Package metrics defines the Prometheus collectors for the probe engine.
//
// Naming follows Prometheus conventions: an uptime_ prefix, _total for
// counters and _seconds for duration histograms.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProbesTotal counts probe outcomes by monitor kind and result status.
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uptime_probes_total",
			Help: "Total probes executed by kind and status.",
		},
		[]string{"kind", "status"},
	)

	// ProbeDurationSeconds is the wall time of a single probe by kind.
	ProbeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uptime_probe_duration_seconds",
			Help:    "Duration of probes in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// TransitionsTotal counts detected state changes by direction (to_down, to_up).
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uptime_transitions_total",
			Help: "Total status transitions detected.",
		},
		[]string{"direction"},
	)

	// NotificationsTotal counts deliveries by channel and outcome.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uptime_notifications_total",
			Help: "Total notification deliveries by channel and status.",
		},
		[]string{"channel", "status"},
	)

	// PersistenceErrorsTotal counts failed Datastore writes by operation.
	PersistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uptime_persistence_errors_total",
			Help: "Total failed datastore writes by operation.",
		},
		[]string{"op"},
	)

	// CycleDurationSeconds is the time one probe cycle took to settle.
	CycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uptime_cycle_duration_seconds",
			Help:    "Duration of a full probe cycle in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AggregationsTotal counts nightly aggregation runs by result (done, skipped, failed).
	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uptime_aggregations_total",
			Help: "Total daily aggregation runs by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		ProbesTotal,
		ProbeDurationSeconds,
		TransitionsTotal,
		NotificationsTotal,
		PersistenceErrorsTotal,
		CycleDurationSeconds,
		AggregationsTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// LifecycleEvents counts account lifecycle transitions (register|verify|reset_request|reset) by result.
	LifecycleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_lifecycle_events_total",
			Help: "Total number of account lifecycle transitions",
		},
		[]string{"event", "result"},
	)

	// RoleChecks counts role gate evaluations (allow|deny).
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_role_checks_total",
			Help: "Total number of role checks",
		},
		[]string{"result"},
	)

	// MaintenanceRuns counts maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounts_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ResultLabel maps an error to the success|failure label used across counters.
func ResultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

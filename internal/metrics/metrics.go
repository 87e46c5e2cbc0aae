// Package metrics registers the prometheus collectors for the enforcement
// gate and the integrity auditor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PolicyViolations counts writes and elevations rejected by the gate
	PolicyViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricore_policy_violations_total",
			Help: "Writes rejected by the access policy, by resource class",
		},
		[]string{"resource"},
	)

	// IntegrityRuns counts completed auditor runs by derived status
	IntegrityRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricore_integrity_runs_total",
			Help: "Integrity auditor runs by final status",
		},
		[]string{"status"},
	)

	// IntegrityIssues counts findings by check and severity
	IntegrityIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricore_integrity_issues_total",
			Help: "Integrity issues discovered, by check and severity",
		},
		[]string{"check", "severity"},
	)

	// IntegrityRunDuration observes full-run wall time
	IntegrityRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nutricore_integrity_run_duration_seconds",
			Help:    "Wall time of one full integrity auditor run",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestDuration observes request latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutricore_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Package metrics provides Prometheus metrics for V-Momentum-Pro.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "momentum"
)

// Alert engine metrics
var (
	// RunsTotal counts alert engine runs by terminal status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "runs_total",
			Help:      "Total alert engine runs",
		},
		[]string{"status"},
	)

	// RunDuration tracks end-to-end run latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "run_duration_seconds",
			Help:      "Alert run latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// RulesEvaluatedTotal counts rule evaluations (after the dedup gate).
	RulesEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "rules_evaluated_total",
			Help:      "Total rule evaluations performed",
		},
	)

	// AlertsTriggeredTotal counts triggered alerts by rule type and severity.
	AlertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "triggered_total",
			Help:      "Total triggered alerts",
		},
		[]string{"type", "severity"},
	)

	// RulesEnabled tracks the number of currently enabled rules.
	RulesEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "rules_enabled",
			Help:      "Number of enabled alert rules at last run",
		},
	)
)

// Notification metrics
var (
	// EmailsSentTotal counts successfully delivered alert emails.
	EmailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_sent_total",
			Help:      "Total alert emails delivered",
		},
	)

	// EmailsFailedTotal counts failed alert email deliveries.
	EmailsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_failed_total",
			Help:      "Total alert email delivery failures",
		},
	)

	// NotificationsRateLimited counts notifications dropped by the rate limiter.
	NotificationsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "rate_limited_total",
			Help:      "Total notifications dropped due to rate limiting",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

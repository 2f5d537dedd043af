package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "formbridge",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// SubmissionsReceivedTotal counts accepted public form submissions.
var SubmissionsReceivedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "formbridge",
		Subsystem: "intake",
		Name:      "submissions_received_total",
		Help:      "Form submissions accepted and stored.",
	},
)

// SubmissionsRejectedTotal counts rejected public form submissions by reason.
var SubmissionsRejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "formbridge",
		Subsystem: "intake",
		Name:      "submissions_rejected_total",
		Help:      "Form submissions rejected before persistence.",
	},
	[]string{"reason"},
)

// NotificationsSentTotal counts outbound notifications by channel and outcome.
var NotificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "formbridge",
		Subsystem: "notify",
		Name:      "notifications_sent_total",
		Help:      "Outbound notifications attempted, by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

// NewMetricsRegistry creates a Prometheus registry with default and custom collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		SubmissionsReceivedTotal,
		SubmissionsRejectedTotal,
		NotificationsSentTotal,
	)
	return reg
}

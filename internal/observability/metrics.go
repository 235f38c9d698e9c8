package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moderation_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// moderation decisions by content type and terminal status
	DecisionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_decisions_total",
			Help: "Total moderation decisions by content type and status",
		},
		[]string{"content_type", "status"},
	)

	// classifier failures recovered by the fail-open path
	ClassifierErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_classifier_errors_total",
			Help: "Total classifier errors recovered by the decision engine",
		},
		[]string{"classifier"},
	)

	// review queue additions per priority
	QueueAddCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_queue_adds_total",
			Help: "Total items enqueued for human review",
		},
		[]string{"priority"},
	)

	// moderator resolutions per decision
	QueueResolveCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_queue_resolutions_total",
			Help: "Total queue items resolved by moderators",
		},
		[]string{"decision"},
	)

	// audit ledger write failures (best-effort path)
	AuditWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_audit_write_errors_total",
			Help: "Total audit ledger write failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		DecisionCount,
		ClassifierErrorCount,
		QueueAddCount,
		QueueResolveCount,
		AuditWriteErrors,
	)
}

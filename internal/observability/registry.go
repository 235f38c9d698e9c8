package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Handlers and the decision engine record through this instead of touching
// the global Prometheus collectors directly.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Decision engine metrics
	IncrementDecisions(contentType, status string)
	IncrementClassifierErrors(classifier string)

	// Review queue metrics
	IncrementQueueAdds(priority string)
	IncrementQueueResolutions(decision string)

	// Audit ledger metrics
	IncrementAuditWriteErrors()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementDecisions(contentType, status string) {
	DecisionCount.WithLabelValues(contentType, status).Inc()
}

func (r *PrometheusRegistry) IncrementClassifierErrors(classifier string) {
	ClassifierErrorCount.WithLabelValues(classifier).Inc()
}

func (r *PrometheusRegistry) IncrementQueueAdds(priority string) {
	QueueAddCount.WithLabelValues(priority).Inc()
}

func (r *PrometheusRegistry) IncrementQueueResolutions(decision string) {
	QueueResolveCount.WithLabelValues(decision).Inc()
}

func (r *PrometheusRegistry) IncrementAuditWriteErrors() {
	AuditWriteErrors.Inc()
}

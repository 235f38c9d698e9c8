package observability

import "time"

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing
type MockMetricsRegistry struct{}

// HTTP request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Decision engine metrics
func (m *MockMetricsRegistry) IncrementDecisions(contentType, status string) {}
func (m *MockMetricsRegistry) IncrementClassifierErrors(classifier string)   {}

// Review queue metrics
func (m *MockMetricsRegistry) IncrementQueueAdds(priority string)        {}
func (m *MockMetricsRegistry) IncrementQueueResolutions(decision string) {}

// Audit ledger metrics
func (m *MockMetricsRegistry) IncrementAuditWriteErrors() {}

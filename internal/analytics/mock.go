package analytics

import (
	"context"
	"sync"
	"time"
)

// MockAnalytics records calls in memory for tests.
type MockAnalytics struct {
	mu          sync.Mutex
	Decisions   []MockDecision
	Resolutions []MockResolution
}

// MockDecision captures one RecordDecision call.
type MockDecision struct {
	ContentType    string
	EntityID       string
	Status         string
	FlagTypes      string
	RequiresReview bool
}

// MockResolution captures one RecordResolution call.
type MockResolution struct {
	EntityType  string
	EntityID    string
	Decision    string
	ModeratorID string
}

func (m *MockAnalytics) RecordDecision(ctx context.Context, contentType, entityID, requestID, status string, confidence float64, flagTypes string, requiresReview bool, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions = append(m.Decisions, MockDecision{
		ContentType:    contentType,
		EntityID:       entityID,
		Status:         status,
		FlagTypes:      flagTypes,
		RequiresReview: requiresReview,
	})
	return nil
}

func (m *MockAnalytics) RecordResolution(ctx context.Context, entityType, entityID, decision, moderatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resolutions = append(m.Resolutions, MockResolution{
		EntityType:  entityType,
		EntityID:    entityID,
		Decision:    decision,
		ModeratorID: moderatorID,
	})
	return nil
}

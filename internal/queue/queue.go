// Package queue manages the human-review queue for flagged content.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/analytics"
	"github.com/samujjwal/stayhub/internal/db"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/observability"
)

// ErrItemNotFound is returned when resolving an entity that has no queue
// item. This is a caller programming error, not a transient condition.
var ErrItemNotFound = errors.New("queue item not found")

// ErrInvalidDecision is returned when a resolution decision is neither
// APPROVED nor REJECTED.
var ErrInvalidDecision = errors.New("resolution decision must be APPROVED or REJECTED")

// Store is the persistence surface the queue needs from Postgres.
type Store interface {
	InsertQueueItem(ctx context.Context, item *models.QueueItem) error
	ListQueueItems(ctx context.Context, f db.QueueFilter, limit int) ([]models.QueueItem, error)
	FindLatestQueueItem(ctx context.Context, entityType, entityID string) (models.QueueItem, error)
	UpdateQueueItemResolution(ctx context.Context, id int, status models.Status, moderatorID string, resolvedAt time.Time, notes *string) error
	CountQueueByStatus(ctx context.Context) (map[models.Status]int, error)
	CountPendingByPriority(ctx context.Context) (map[models.Priority]int, error)
}

// Ledger is the audit surface the queue writes resolution records to.
type Ledger interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// ReviewQueue persists items requiring human attention and exposes
// query/resolve operations for moderators. Items are never deleted;
// resolved items remain queryable for audit.
type ReviewQueue struct {
	store     Store
	ledger    Ledger
	analytics analytics.AnalyticsService
	metrics   observability.MetricsRegistry
	logger    *zap.Logger
	pageSize  int
}

// NewReviewQueue constructs a queue service. analyticsSvc may be nil.
func NewReviewQueue(store Store, ledger Ledger, analyticsSvc analytics.AnalyticsService, metrics observability.MetricsRegistry, logger *zap.Logger, pageSize int) *ReviewQueue {
	return &ReviewQueue{
		store:     store,
		ledger:    ledger,
		analytics: analyticsSvc,
		metrics:   metrics,
		logger:    logger,
		pageSize:  pageSize,
	}
}

// Enqueue creates a new pending item with a snapshot of the flags that
// triggered it.
func (q *ReviewQueue) Enqueue(ctx context.Context, entityType, entityID string, flags []models.ModerationFlag, priority models.Priority) (*models.QueueItem, error) {
	item := &models.QueueItem{
		EntityType: entityType,
		EntityID:   entityID,
		Flags:      flags,
		Priority:   priority,
		Status:     models.StatusPending,
	}
	if err := q.store.InsertQueueItem(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue %s %s: %w", entityType, entityID, err)
	}

	q.metrics.IncrementQueueAdds(string(priority))

	rec := models.AuditRecord{
		Action:     models.ActionQueueAdd,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: map[string]any{
			"queue_item_id": item.ID,
			"priority":      priority,
			"flag_count":    len(flags),
		},
	}
	if err := q.ledger.Append(ctx, rec); err != nil {
		q.logger.Error("audit queue add", zap.Int("queue_item_id", item.ID), zap.Error(err))
	}
	return item, nil
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status     models.Status
	Priority   models.Priority
	EntityType string
}

// List returns matching items newest first, capped at the configured page size.
func (q *ReviewQueue) List(ctx context.Context, f Filter) ([]models.QueueItem, error) {
	items, err := q.store.ListQueueItems(ctx, db.QueueFilter{
		Status:     f.Status,
		Priority:   f.Priority,
		EntityType: f.EntityType,
	}, q.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	return items, nil
}

// Resolve applies a moderator decision to the most recent queue item for the
// entity and writes exactly one companion audit record. Resolving an already
// resolved item applies the new decision in place.
func (q *ReviewQueue) Resolve(ctx context.Context, entityType, entityID string, decision models.Status, moderatorID string, notes *string) (*models.QueueItem, error) {
	if decision != models.StatusApproved && decision != models.StatusRejected {
		return nil, ErrInvalidDecision
	}

	item, err := q.store.FindLatestQueueItem(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("find queue item for %s %s: %w", entityType, entityID, err)
	}

	now := time.Now().UTC()
	if err := q.store.UpdateQueueItemResolution(ctx, item.ID, decision, moderatorID, now, notes); err != nil {
		return nil, err
	}

	item.Status = decision
	item.ResolvedBy = &moderatorID
	item.ResolvedAt = &now
	item.Notes = notes

	q.metrics.IncrementQueueResolutions(string(decision))

	action := models.ActionContentApproved
	if decision == models.StatusRejected {
		action = models.ActionContentRejected
	}
	meta := map[string]any{"queue_item_id": item.ID}
	if notes != nil {
		meta["notes"] = *notes
	}
	rec := models.AuditRecord{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     moderatorID,
		Metadata:   meta,
	}
	if err := q.ledger.Append(ctx, rec); err != nil {
		q.logger.Error("audit resolution", zap.Int("queue_item_id", item.ID), zap.Error(err))
	}

	if q.analytics != nil {
		err := q.analytics.RecordResolution(ctx, entityType, entityID, string(decision), moderatorID)
		if err != nil && !errors.Is(err, analytics.ErrUnavailable) {
			q.logger.Warn("record resolution event", zap.Error(err))
		}
	}

	return &item, nil
}

// Stats returns queue totals for moderator dashboards.
func (q *ReviewQueue) Stats(ctx context.Context) (*models.QueueStats, error) {
	byStatus, err := q.store.CountQueueByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	byPriority, err := q.store.CountPendingByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &models.QueueStats{
		Pending:           byStatus[models.StatusPending],
		Approved:          byStatus[models.StatusApproved],
		Rejected:          byStatus[models.StatusRejected],
		PendingByPriority: byPriority,
	}, nil
}

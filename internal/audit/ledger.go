// Package audit maintains the append-only ledger of moderation decisions
// and human resolutions.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/samujjwal/stayhub/internal/models"
)

// Risk thresholds over the recent-violation count.
const (
	riskHighThreshold   = 3
	riskMediumThreshold = 1
)

// Store is the persistence surface the ledger needs from Postgres.
type Store interface {
	InsertAuditRecord(ctx context.Context, rec models.AuditRecord) error
	QueryAuditByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error)
}

// Ledger is the append-only moderation history. Records are idempotent by
// append and carry no cross-record invariants, so partial writes under
// cancellation are acceptable.
type Ledger struct {
	store        Store
	historyLimit int
	recentWindow time.Duration
}

// NewLedger constructs a ledger. historyLimit caps UserHistory results;
// recentWindow bounds what counts as a recent violation.
func NewLedger(store Store, historyLimit int, recentWindow time.Duration) *Ledger {
	return &Ledger{store: store, historyLimit: historyLimit, recentWindow: recentWindow}
}

// Append writes one record to the ledger.
func (l *Ledger) Append(ctx context.Context, rec models.AuditRecord) error {
	if err := l.store.InsertAuditRecord(ctx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// UserHistory returns the user's most recent moderation records and the
// violation-risk level derived from them.
func (l *Ledger) UserHistory(ctx context.Context, userID string) (*models.UserModerationHistory, error) {
	records, err := l.store.QueryAuditByUser(ctx, userID, l.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("user history for %s: %w", userID, err)
	}

	history := &models.UserModerationHistory{
		UserID:  userID,
		Records: records,
	}

	cutoff := time.Now().Add(-l.recentWindow)
	for _, rec := range records {
		if rec.Action != models.ActionContentRejected {
			continue
		}
		history.TotalViolations++
		if rec.CreatedAt.After(cutoff) {
			history.RecentViolations++
		}
	}

	switch {
	case history.RecentViolations > riskHighThreshold:
		history.RiskLevel = models.RiskHigh
	case history.RecentViolations > riskMediumThreshold:
		history.RiskLevel = models.RiskMedium
	default:
		history.RiskLevel = models.RiskLow
	}

	return history, nil
}

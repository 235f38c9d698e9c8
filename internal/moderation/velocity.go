package moderation

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/db"
)

// ErrNilRedisStore is returned when a RedisStore pointer is nil or uninitialized.
var ErrNilRedisStore = errors.New("redis store is nil")

// VelocityTracker counts recent reviews per reviewer within a trailing window.
type VelocityTracker interface {
	// Record increments the reviewer's counter and returns the new count.
	Record(reviewerID string) (int64, error)
	// Count returns the current counter value without incrementing.
	// Absence reads as zero.
	Count(reviewerID string) int64
}

// ReviewVelocity tracks review bursts in Redis. Redis being down or slow is
// never an error for callers; counts fail open to zero so an unavailable
// cache cannot flag or block reviews.
type ReviewVelocity struct {
	store  *db.RedisStore
	window time.Duration
	logger *zap.Logger
}

// NewReviewVelocity builds a velocity tracker over the given Redis store.
func NewReviewVelocity(store *db.RedisStore, window time.Duration, logger *zap.Logger) *ReviewVelocity {
	return &ReviewVelocity{store: store, window: window, logger: logger}
}

// Record increments the reviewer's trailing-window counter.
func (v *ReviewVelocity) Record(reviewerID string) (int64, error) {
	if v.store == nil || v.store.Client == nil {
		return 0, ErrNilRedisStore
	}
	count, err := v.store.IncrementReviewCount(reviewerID, v.window)
	if err != nil {
		v.logger.Error("redis review velocity increment", zap.Error(err))
		return 0, err
	}
	return count, nil
}

// Count returns the reviewer's current count, failing open to zero.
func (v *ReviewVelocity) Count(reviewerID string) int64 {
	if v.store == nil || v.store.Client == nil {
		return 0
	}
	count, err := v.store.GetReviewCount(reviewerID)
	if err != nil {
		v.logger.Error("redis review velocity read", zap.Error(err))
		return 0
	}
	return count
}

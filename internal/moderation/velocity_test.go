package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/db"
)

// setupTestRedis spins up an in-memory Redis and wraps it in a RedisStore.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *db.RedisStore) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	store := &db.RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	return s, store
}

func TestReviewVelocityRecordAndCount(t *testing.T) {
	_, store := setupTestRedis(t)
	v := NewReviewVelocity(store, time.Hour, zap.NewNop())

	assert.Equal(t, int64(0), v.Count("reviewer-1"))

	for i := 1; i <= 3; i++ {
		count, err := v.Record("reviewer-1")
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}
	assert.Equal(t, int64(3), v.Count("reviewer-1"))
	assert.Equal(t, int64(0), v.Count("reviewer-2"))
}

func TestReviewVelocityWindowExpiry(t *testing.T) {
	mr, store := setupTestRedis(t)
	v := NewReviewVelocity(store, time.Minute, zap.NewNop())

	_, err := v.Record("reviewer-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, int64(0), v.Count("reviewer-1"))
}

func TestReviewVelocityFailsOpenWhenRedisDown(t *testing.T) {
	mr, store := setupTestRedis(t)
	v := NewReviewVelocity(store, time.Hour, zap.NewNop())

	mr.Close()

	// Reads fail open to zero; an unavailable cache must never flag reviews.
	assert.Equal(t, int64(0), v.Count("reviewer-1"))

	_, err := v.Record("reviewer-1")
	assert.Error(t, err)
}

func TestReviewVelocityNilStore(t *testing.T) {
	v := NewReviewVelocity(nil, time.Hour, zap.NewNop())
	assert.Equal(t, int64(0), v.Count("reviewer-1"))
	_, err := v.Record("reviewer-1")
	assert.ErrorIs(t, err, ErrNilRedisStore)
}

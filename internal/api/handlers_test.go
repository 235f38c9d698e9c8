package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/audit"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/db"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/moderation"
	"github.com/samujjwal/stayhub/internal/observability"
	"github.com/samujjwal/stayhub/internal/queue"
)

// memQueueStore is an in-memory queue.Store.
type memQueueStore struct {
	items  []models.QueueItem
	nextID int
}

func (s *memQueueStore) InsertQueueItem(ctx context.Context, item *models.QueueItem) error {
	s.nextID++
	item.ID = s.nextID
	item.CreatedAt = time.Now().UTC()
	s.items = append(s.items, *item)
	return nil
}

func (s *memQueueStore) ListQueueItems(ctx context.Context, f db.QueueFilter, limit int) ([]models.QueueItem, error) {
	var out []models.QueueItem
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		it := s.items[i]
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.EntityType != "" && it.EntityType != f.EntityType {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *memQueueStore) FindLatestQueueItem(ctx context.Context, entityType, entityID string) (models.QueueItem, error) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].EntityType == entityType && s.items[i].EntityID == entityID {
			return s.items[i], nil
		}
	}
	return models.QueueItem{}, sql.ErrNoRows
}

func (s *memQueueStore) UpdateQueueItemResolution(ctx context.Context, id int, status models.Status, moderatorID string, resolvedAt time.Time, notes *string) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			s.items[i].ResolvedBy = &moderatorID
			s.items[i].ResolvedAt = &resolvedAt
			s.items[i].Notes = notes
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memQueueStore) CountQueueByStatus(ctx context.Context) (map[models.Status]int, error) {
	out := map[models.Status]int{}
	for _, it := range s.items {
		out[it.Status]++
	}
	return out, nil
}

func (s *memQueueStore) CountPendingByPriority(ctx context.Context) (map[models.Priority]int, error) {
	out := map[models.Priority]int{}
	for _, it := range s.items {
		if it.Status == models.StatusPending {
			out[it.Priority]++
		}
	}
	return out, nil
}

// memAuditStore is an in-memory audit.Store.
type memAuditStore struct{ records []models.AuditRecord }

func (s *memAuditStore) InsertAuditRecord(ctx context.Context, rec models.AuditRecord) error {
	rec.ID = len(s.records) + 1
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memAuditStore) QueryAuditByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	var out []models.AuditRecord
	for _, rec := range s.records {
		if rec.UserID == userID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

type cleanImage struct{}

func (cleanImage) ClassifyImage(ctx context.Context, url string) (*moderation.ImageResult, error) {
	return &moderation.ImageResult{Confidence: 0.5}, nil
}

type noVelocity struct{}

func (noVelocity) Record(reviewerID string) (int64, error) { return 1, nil }
func (noVelocity) Count(reviewerID string) int64           { return 0 }

type testEnv struct {
	srv        *httptest.Server
	queueStore *memQueueStore
	auditStore *memAuditStore
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		ServiceName:               "stayhub-moderation",
		ClassifierTimeout:         time.Second,
		ReviewBombThreshold:       5,
		SuspiciousReviewMinLength: 50,
		QueuePageSize:             100,
	}
	logger := zap.NewNop()
	metrics := &observability.MockMetricsRegistry{}

	queueStore := &memQueueStore{}
	auditStore := &memAuditStore{}
	ledger := audit.NewLedger(auditStore, 50, 90*24*time.Hour)
	reviewQueue := queue.NewReviewQueue(queueStore, ledger, nil, metrics, logger, cfg.QueuePageSize)
	classifier := moderation.NewRuleTextClassifier("stayhub.com")

	engine := moderation.NewEngine(classifier, cleanImage{}, noVelocity{},
		reviewQueue, ledger, nil, metrics, logger, cfg)

	s := NewServer(logger, engine, reviewQueue, ledger, classifier, metrics, cfg)
	r := mux.NewRouter()
	s.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, queueStore: queueStore, auditStore: auditStore}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestModerateMessageMasksPhoneNumber(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/moderate/message", ModerateMessageRequest{
		MessageID: "m-1",
		SenderID:  "u-1",
		Text:      "My number is 555-123-4567, see you soon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ModerationResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, "APPROVED", body.Status)
	assert.False(t, body.RequiresHumanReview)
	assert.Equal(t, "My number is [PHONE REMOVED], see you soon", body.MaskedText)
}

func TestModerateMessageRejectsScam(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/moderate/message", ModerateMessageRequest{
		MessageID: "m-2",
		SenderID:  "u-2",
		Text:      "Pay me by western union and I will hold the apartment",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ModerationResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, "REJECTED", body.Status)
	assert.Equal(t, []string{"Message contains prohibited content"}, body.BlockedReasons)
	assert.False(t, body.RequiresHumanReview)
	assert.Empty(t, env.queueStore.items, "messages never reach the queue")
}

func TestModerateListingFlagsSpamAndQueues(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/moderate/listing", ModerateListingRequest{
		ListingID:   "l-1",
		OwnerID:     "u-1",
		Title:       "BUY NOW limited time",
		Description: "100% free cancellation, don't miss out!!!!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ModerationResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, "FLAGGED", body.Status)
	assert.True(t, body.RequiresHumanReview)
	require.Len(t, env.queueStore.items, 1)
	assert.Equal(t, "listing", env.queueStore.items[0].EntityType)
	assert.Equal(t, models.PriorityMedium, env.queueStore.items[0].Priority)
}

func TestModerateListingRejectsBadJSON(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Post(env.srv.URL+"/moderate/listing", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClassifyEndpointReturnsFullDetail(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/api/classify", ClassifyRequest{
		Text: "email me at host@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ClassifyResponse
	decodeBody(t, resp, &body)

	assert.NotNil(t, body.Flags)
	require.Len(t, body.PIIFlags, 1)
	assert.Equal(t, "EMAIL_DETECTED", body.PIIFlags[0].Type)
	assert.Equal(t, "email me at [EMAIL REMOVED]", body.MaskedText)
}

func TestClassifyEndpointCleanText(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/api/classify", ClassifyRequest{
		Text: "Lovely two bedroom flat near the park",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ClassifyResponse
	decodeBody(t, resp, &body)

	assert.Empty(t, body.Flags)
	assert.Empty(t, body.PIIFlags)
	assert.Equal(t, 1.0, body.Confidence)
	assert.Equal(t, "Lovely two bedroom flat near the park", body.MaskedText)
}

func TestResolveQueueItem(t *testing.T) {
	env := newTestServer(t)

	// Flag a listing first so there is an item to resolve.
	resp := postJSON(t, env.srv.URL+"/moderate/listing", ModerateListingRequest{
		ListingID:   "l-9",
		OwnerID:     "u-9",
		Title:       "BUY NOW limited time",
		Description: "100% free cancellation, don't miss out!!!!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	notes := "confirmed spam"
	resp = postJSON(t, env.srv.URL+"/api/queue/listing/l-9/resolve", ResolveRequest{
		Decision:    "REJECTED",
		ModeratorID: "mod-1",
		Notes:       &notes,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item models.QueueItem
	decodeBody(t, resp, &item)

	assert.Equal(t, models.StatusRejected, item.Status)
	require.NotNil(t, item.ResolvedBy)
	assert.Equal(t, "mod-1", *item.ResolvedBy)
}

func TestResolveUnknownEntityReturns404(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/api/queue/listing/missing/resolve", ResolveRequest{
		Decision:    "APPROVED",
		ModeratorID: "mod-1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveMissingFieldsReturns400(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/api/queue/listing/l-1/resolve", ResolveRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListQueueReturnsEmptyArrayNotNull(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.srv.URL + "/api/queue")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []models.QueueItem
	decodeBody(t, resp, &items)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestQueueStats(t *testing.T) {
	env := newTestServer(t)

	resp := postJSON(t, env.srv.URL+"/moderate/listing", ModerateListingRequest{
		ListingID:   "l-1",
		OwnerID:     "u-1",
		Title:       "BUY NOW limited time",
		Description: "100% free cancellation, don't miss out!!!!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(env.srv.URL + "/api/queue/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.QueueStats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.Pending)
}

func TestUserHistoryEndpoint(t *testing.T) {
	env := newTestServer(t)

	// Two rejections for the user, one via a moderator resolution.
	env.auditStore.records = append(env.auditStore.records,
		models.AuditRecord{Action: models.ActionContentRejected, EntityType: "listing", EntityID: "l-1", UserID: "u-5", CreatedAt: time.Now()},
		models.AuditRecord{Action: models.ActionContentRejected, EntityType: "review", EntityID: "r-1", UserID: "u-5", CreatedAt: time.Now()},
	)

	resp, err := http.Get(env.srv.URL + "/api/users/u-5/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history models.UserModerationHistory
	decodeBody(t, resp, &history)

	assert.Equal(t, "u-5", history.UserID)
	assert.Equal(t, 2, history.TotalViolations)
	assert.Equal(t, models.RiskMedium, history.RiskLevel)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body HealthResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "stayhub-moderation", body.Service)
}

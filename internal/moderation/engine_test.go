package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/analytics"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/observability"
)

// stubText returns canned classification results.
type stubText struct {
	res *TextResult
	pii *PIIResult
	err error
}

func (s *stubText) ClassifyText(ctx context.Context, text string) (*TextResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.res != nil {
		return s.res, nil
	}
	return &TextResult{Confidence: 1}, nil
}

func (s *stubText) DetectPII(ctx context.Context, text string) (*PIIResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.pii != nil {
		return s.pii, nil
	}
	return &PIIResult{MaskedText: text}, nil
}

// stubImage maps URLs to canned results.
type stubImage struct {
	results map[string]*ImageResult
	err     error
}

func (s *stubImage) ClassifyImage(ctx context.Context, url string) (*ImageResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if res, ok := s.results[url]; ok {
		return res, nil
	}
	return &ImageResult{Confidence: 0.5}, nil
}

type fakeVelocity struct{ count int64 }

func (f *fakeVelocity) Record(reviewerID string) (int64, error) {
	f.count++
	return f.count, nil
}

func (f *fakeVelocity) Count(reviewerID string) int64 { return f.count }

type enqueued struct {
	entityType string
	entityID   string
	flags      []models.ModerationFlag
	priority   models.Priority
}

type fakeQueue struct{ items []enqueued }

func (f *fakeQueue) Enqueue(ctx context.Context, entityType, entityID string, flags []models.ModerationFlag, priority models.Priority) (*models.QueueItem, error) {
	f.items = append(f.items, enqueued{entityType, entityID, flags, priority})
	return &models.QueueItem{
		ID:         len(f.items),
		EntityType: entityType,
		EntityID:   entityID,
		Flags:      flags,
		Priority:   priority,
		Status:     models.StatusPending,
	}, nil
}

type fakeLedger struct{ records []models.AuditRecord }

func (f *fakeLedger) Append(ctx context.Context, rec models.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		ClassifierTimeout:         time.Second,
		ReviewBombThreshold:       5,
		SuspiciousReviewMinLength: 50,
	}
}

type engineDeps struct {
	text     *stubText
	image    *stubImage
	velocity *fakeVelocity
	queue    *fakeQueue
	ledger   *fakeLedger
	events   *analytics.MockAnalytics
}

func newTestEngine(deps *engineDeps) *Engine {
	if deps.text == nil {
		deps.text = &stubText{}
	}
	if deps.image == nil {
		deps.image = &stubImage{}
	}
	if deps.velocity == nil {
		deps.velocity = &fakeVelocity{}
	}
	if deps.queue == nil {
		deps.queue = &fakeQueue{}
	}
	if deps.ledger == nil {
		deps.ledger = &fakeLedger{}
	}
	if deps.events == nil {
		deps.events = &analytics.MockAnalytics{}
	}
	return NewEngine(deps.text, deps.image, deps.velocity, deps.queue, deps.ledger,
		deps.events, &observability.MockMetricsRegistry{}, zap.NewNop(), testConfig())
}

func flag(typ string, sev models.Severity, conf float64) models.ModerationFlag {
	return models.ModerationFlag{Type: typ, Severity: sev, Confidence: conf, Description: typ + " found"}
}

func TestModerateListingCleanApproves(t *testing.T) {
	deps := &engineDeps{}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{
		EntityID: "l-1", OwnerID: "u-1", Title: "Sunny flat", Description: "Great view",
		PhotoURLs: []string{"https://img/1.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.RequiresHumanReview)
	assert.Empty(t, deps.queue.items)
	assert.Empty(t, deps.ledger.records, "clean content writes no audit record")
}

func TestModerateListingCriticalRejectsWithoutQueueing(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagScam, models.SeverityCritical, 0.7)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-2", OwnerID: "u-2"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, res.Status)
	assert.Equal(t, []string{FlagScam + " found"}, res.BlockedReasons)
	assert.False(t, res.RequiresHumanReview)
	assert.Empty(t, deps.queue.items, "critical rejections skip the review queue")

	require.Len(t, deps.ledger.records, 1)
	assert.Equal(t, models.ActionContentModerated, deps.ledger.records[0].Action)
	assert.Equal(t, "u-2", deps.ledger.records[0].UserID)
}

func TestModerateListingHighFlagQueuesMediumPriority(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagSpam, models.SeverityHigh, 0.8)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-3", OwnerID: "u-3"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, res.Status)
	assert.True(t, res.RequiresHumanReview)
	require.Len(t, deps.queue.items, 1)
	assert.Equal(t, models.PriorityMedium, deps.queue.items[0].priority)
	assert.Equal(t, EntityListing, deps.queue.items[0].entityType)
}

func TestModerateListingMediumFlagPendsLowPriority(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagProfanity, models.SeverityMedium, 0.9)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-4", OwnerID: "u-4"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, res.Status)
	assert.True(t, res.RequiresHumanReview)
	require.Len(t, deps.queue.items, 1)
	assert.Equal(t, models.PriorityLow, deps.queue.items[0].priority)
}

func TestModerateListingManyLowFlagsEscalate(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags: []models.ModerationFlag{
				flag("A", models.SeverityLow, 0.5),
				flag("B", models.SeverityLow, 0.5),
				flag("C", models.SeverityLow, 0.5),
				flag("D", models.SeverityLow, 0.5),
			},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-5", OwnerID: "u-5"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, res.Status)
	require.Len(t, deps.queue.items, 1)
	assert.Equal(t, models.PriorityLow, deps.queue.items[0].priority)
}

func TestModerateListingConfidenceAveragesPerFlaggedSource(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagProfanity, models.SeverityMedium, 0.9)},
			Confidence: 0.8,
		}},
		image: &stubImage{results: map[string]*ImageResult{
			"p1": {Flags: []models.ModerationFlag{flag(FlagImageInaccessible, models.SeverityMedium, 1)}, Confidence: 0.6},
			"p2": {Confidence: 0.5},
		}},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{
		EntityID: "l-6", OwnerID: "u-6", PhotoURLs: []string{"p1", "p2"},
	})
	require.NoError(t, err)

	// The clean photo does not contribute to the denominator.
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.Len(t, res.Flags, 2)
}

func TestModerateListingClassifierFailureFailsOpen(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{err: errors.New("classifier timeout")},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-7", OwnerID: "u-7"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, res.Status)
	assert.True(t, res.RequiresHumanReview)
	assert.Equal(t, 0.0, res.Confidence)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagModerationError, res.Flags[0].Type)
	require.Len(t, deps.queue.items, 1, "fail-open listings still route to the queue")
}

func TestModerateProfileFlaggedButNeverQueued(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagProfanity, models.SeverityMedium, 0.9)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	bio := "some bio"
	res, err := e.ModerateProfile(context.Background(), ProfileContent{EntityID: "p-1", OwnerID: "u-1", Bio: &bio})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, res.Status)
	assert.True(t, res.RequiresHumanReview)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Empty(t, deps.queue.items, "profiles are never enqueued")
	assert.Len(t, deps.ledger.records, 1)
}

func TestModerateProfileCriticalRejects(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagHateSpeech, models.SeverityCritical, 0.85)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	bio := "some bio"
	res, err := e.ModerateProfile(context.Background(), ProfileContent{EntityID: "p-2", OwnerID: "u-2", Bio: &bio})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, res.Status)
	assert.NotEmpty(t, res.BlockedReasons)
}

func TestModerateProfileAbsentFieldsSkipClassifiers(t *testing.T) {
	// The stubs would return flags if called; absent fields must skip them.
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagProfanity, models.SeverityMedium, 0.9)},
			Confidence: 0.8,
		}},
		image: &stubImage{err: errors.New("should not be called")},
	}
	e := newTestEngine(deps)

	res, err := e.ModerateProfile(context.Background(), ProfileContent{EntityID: "p-3", OwnerID: "u-3"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Empty(t, res.Flags)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestModerateMessageCriticalRejects(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{
			res: &TextResult{
				Flags:      []models.ModerationFlag{flag(FlagScam, models.SeverityCritical, 0.7)},
				Confidence: 0.8,
			},
			pii: &PIIResult{MaskedText: "hello"},
		},
	}
	e := newTestEngine(deps)

	res, _, err := e.ModerateMessage(context.Background(), MessageContent{EntityID: "m-1", SenderID: "u-1", Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, res.Status)
	assert.Equal(t, []string{"Message contains prohibited content"}, res.BlockedReasons)
	assert.False(t, res.RequiresHumanReview)
}

func TestModerateMessageNonCriticalFlagsStillApprove(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{
			res: &TextResult{
				Flags:      []models.ModerationFlag{flag(FlagOffPlatformContact, models.SeverityHigh, 0.75)},
				Confidence: 0.8,
			},
			pii: &PIIResult{
				Flags:      []models.ModerationFlag{flag(FlagPhoneDetected, models.SeverityHigh, 0.9)},
				MaskedText: "call me at [PHONE REMOVED]",
			},
		},
	}
	e := newTestEngine(deps)

	res, masked, err := e.ModerateMessage(context.Background(), MessageContent{EntityID: "m-2", SenderID: "u-2", Text: "call me at 555-123-4567"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, res.Status)
	assert.False(t, res.RequiresHumanReview)
	assert.Len(t, res.Flags, 2)
	assert.Equal(t, "call me at [PHONE REMOVED]", masked)
	assert.Empty(t, deps.queue.items, "messages never queue")
}

func TestModerateReviewCleanApproves(t *testing.T) {
	deps := &engineDeps{}
	e := newTestEngine(deps)

	res, err := e.ModerateReview(context.Background(), ReviewContent{
		EntityID: "r-1", ReviewerID: "u-1", Title: "Great stay",
		Content: "Would absolutely come back, the host was lovely and helpful.", Rating: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Equal(t, int64(1), deps.velocity.count, "each review is recorded against the counter")
}

func TestModerateReviewShortOneStarIsSuspicious(t *testing.T) {
	deps := &engineDeps{}
	e := newTestEngine(deps)

	res, err := e.ModerateReview(context.Background(), ReviewContent{
		EntityID: "r-2", ReviewerID: "u-2", Title: "Bad", Content: "terrible", Rating: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, res.Status)
	assert.True(t, res.RequiresHumanReview)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagSuspiciousReview, res.Flags[0].Type)
	assert.Equal(t, models.SeverityLow, res.Flags[0].Severity)
}

func TestModerateReviewBombingFlagsCleanText(t *testing.T) {
	deps := &engineDeps{velocity: &fakeVelocity{count: 5}}
	e := newTestEngine(deps)

	res, err := e.ModerateReview(context.Background(), ReviewContent{
		EntityID: "r-3", ReviewerID: "u-3", Title: "Nice",
		Content: "Clean and quiet apartment, excellent location near the station.", Rating: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, res.Status)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, FlagReviewBombing, res.Flags[0].Type)
	assert.Equal(t, models.SeverityHigh, res.Flags[0].Severity)
}

func TestDecisionsAreReportedToAnalytics(t *testing.T) {
	deps := &engineDeps{
		text: &stubText{res: &TextResult{
			Flags:      []models.ModerationFlag{flag(FlagSpam, models.SeverityHigh, 0.8)},
			Confidence: 0.8,
		}},
	}
	e := newTestEngine(deps)

	_, err := e.ModerateListing(context.Background(), ListingContent{EntityID: "l-8", OwnerID: "u-8"})
	require.NoError(t, err)

	require.Len(t, deps.events.Decisions, 1)
	assert.Equal(t, EntityListing, deps.events.Decisions[0].ContentType)
	assert.Equal(t, string(models.StatusFlagged), deps.events.Decisions[0].Status)
	assert.Equal(t, FlagSpam, deps.events.Decisions[0].FlagTypes)
}

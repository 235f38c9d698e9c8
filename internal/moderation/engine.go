package moderation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/analytics"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/observability"
)

// Entity type tags used in queue items and audit records.
const (
	EntityListing = "listing"
	EntityProfile = "profile"
	EntityMessage = "message"
	EntityReview  = "review"
)

// Flag type tags produced by the engine itself.
const (
	FlagModerationError  = "MODERATION_ERROR"
	FlagSuspiciousReview = "SUSPICIOUS_REVIEW"
	FlagReviewBombing    = "REVIEW_BOMBING"
)

// QueueService is the slice of the review queue the engine needs.
type QueueService interface {
	Enqueue(ctx context.Context, entityType, entityID string, flags []models.ModerationFlag, priority models.Priority) (*models.QueueItem, error)
}

// LedgerService is the slice of the audit ledger the engine needs.
type LedgerService interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// ListingContent is a listing submission to be moderated.
type ListingContent struct {
	EntityID    string
	OwnerID     string
	Title       string
	Description string
	PhotoURLs   []string
}

// ProfileContent is a profile update to be moderated. Absent fields skip
// their classifier entirely; callers must not synthesize empty values.
type ProfileContent struct {
	EntityID string
	OwnerID  string
	Bio      *string
	PhotoURL *string
}

// MessageContent is a direct message to be moderated.
type MessageContent struct {
	EntityID string
	SenderID string
	Text     string
}

// ReviewContent is a review submission to be moderated.
type ReviewContent struct {
	EntityID   string
	ReviewerID string
	Title      string
	Content    string
	Rating     int
}

// Engine aggregates classifier signals into one moderation decision per
// content type. It holds no mutable state of its own; the counter cache and
// the queue/ledger stores are shared, externally-synchronized resources.
type Engine struct {
	text      TextClassifier
	image     ImageClassifier
	velocity  VelocityTracker
	queue     QueueService
	ledger    LedgerService
	analytics analytics.AnalyticsService
	metrics   observability.MetricsRegistry
	logger    *zap.Logger
	cfg       config.Config
}

// NewEngine constructs a decision engine. analytics may be nil.
func NewEngine(text TextClassifier, image ImageClassifier, velocity VelocityTracker,
	queue QueueService, ledger LedgerService, analyticsSvc analytics.AnalyticsService,
	metrics observability.MetricsRegistry, logger *zap.Logger, cfg config.Config) *Engine {
	return &Engine{
		text:      text,
		image:     image,
		velocity:  velocity,
		queue:     queue,
		ledger:    ledger,
		analytics: analyticsSvc,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// ModerateListing evaluates a listing submission. Text runs once over
// title+description, each photo is classified independently. Confidence is
// averaged per source that produced at least one flag; clean sources do not
// contribute to the denominator.
func (e *Engine) ModerateListing(ctx context.Context, content ListingContent) (*models.ModerationResult, error) {
	start := time.Now()
	requestID := uuid.New().String()

	var flags []models.ModerationFlag
	totalConfidence := 0.0
	flagCount := 0

	textRes, err := e.classifyText(ctx, content.Title+" "+content.Description)
	if err != nil {
		return e.failOpen(ctx, EntityListing, content.EntityID, content.OwnerID, requestID, "text", err, start), nil
	}
	if len(textRes.Flags) > 0 {
		flags = append(flags, textRes.Flags...)
		totalConfidence += textRes.Confidence
		flagCount++
	}

	for _, url := range content.PhotoURLs {
		imgRes, err := e.classifyImage(ctx, url)
		if err != nil {
			return e.failOpen(ctx, EntityListing, content.EntityID, content.OwnerID, requestID, "image", err, start), nil
		}
		if len(imgRes.Flags) > 0 {
			flags = append(flags, imgRes.Flags...)
			totalConfidence += imgRes.Confidence
			flagCount++
		}
	}

	result := &models.ModerationResult{Flags: flags, Confidence: 1}
	if flagCount > 0 {
		result.Confidence = totalConfidence / float64(flagCount)
	}

	switch {
	case result.HasSeverity(models.SeverityCritical):
		// Clear-cut violations are blocked outright and skip the queue;
		// moderators only see them via the audit ledger.
		result.Status = models.StatusRejected
		for _, f := range flags {
			result.BlockedReasons = append(result.BlockedReasons, f.Description)
		}
	case result.HasSeverity(models.SeverityHigh) || len(flags) > 3:
		result.Status = models.StatusFlagged
		result.RequiresHumanReview = true
	case len(flags) > 0:
		result.Status = models.StatusPending
		result.RequiresHumanReview = true
	default:
		result.Status = models.StatusApproved
	}

	if result.RequiresHumanReview {
		e.enqueue(ctx, EntityListing, content.EntityID, result)
	}

	e.recordDecision(ctx, EntityListing, content.EntityID, content.OwnerID, requestID, result, time.Since(start))
	return result, nil
}

// ModerateProfile evaluates a profile update. Profiles are flagged for
// visibility and audit only; they are never enqueued for moderator action.
func (e *Engine) ModerateProfile(ctx context.Context, content ProfileContent) (*models.ModerationResult, error) {
	start := time.Now()
	requestID := uuid.New().String()

	var flags []models.ModerationFlag

	if content.Bio != nil {
		textRes, err := e.classifyText(ctx, *content.Bio)
		if err != nil {
			return e.failOpen(ctx, EntityProfile, content.EntityID, content.OwnerID, requestID, "text", err, start), nil
		}
		flags = append(flags, textRes.Flags...)
	}

	if content.PhotoURL != nil {
		imgRes, err := e.classifyImage(ctx, *content.PhotoURL)
		if err != nil {
			return e.failOpen(ctx, EntityProfile, content.EntityID, content.OwnerID, requestID, "image", err, start), nil
		}
		flags = append(flags, imgRes.Flags...)
	}

	result := &models.ModerationResult{Flags: flags, Confidence: 1}
	if len(flags) > 0 {
		result.Confidence = 0.8
	}

	switch {
	case result.HasSeverity(models.SeverityCritical):
		result.Status = models.StatusRejected
		for _, f := range flags {
			result.BlockedReasons = append(result.BlockedReasons, f.Description)
		}
	case len(flags) > 0:
		result.Status = models.StatusFlagged
		result.RequiresHumanReview = true
	default:
		result.Status = models.StatusApproved
	}

	e.recordDecision(ctx, EntityProfile, content.EntityID, content.OwnerID, requestID, result, time.Since(start))
	return result, nil
}

// ModerateMessage evaluates a direct message. Messages favor throughput over
// friction: anything short of a critical violation is approved, and nothing
// is ever routed to human review. The second return value is the PII-masked
// copy of the message for the caller to store.
func (e *Engine) ModerateMessage(ctx context.Context, content MessageContent) (*models.ModerationResult, string, error) {
	start := time.Now()
	requestID := uuid.New().String()

	cctx, cancel := context.WithTimeout(ctx, e.cfg.ClassifierTimeout)
	defer cancel()

	piiRes, err := e.text.DetectPII(cctx, content.Text)
	if err != nil {
		return e.failOpen(ctx, EntityMessage, content.EntityID, content.SenderID, requestID, "text", err, start), content.Text, nil
	}

	textRes, err := e.text.ClassifyText(cctx, content.Text)
	if err != nil {
		return e.failOpen(ctx, EntityMessage, content.EntityID, content.SenderID, requestID, "text", err, start), content.Text, nil
	}

	flags := append(piiRes.Flags, textRes.Flags...)

	result := &models.ModerationResult{Flags: flags, Confidence: 1}
	if len(flags) > 0 {
		result.Confidence = 0.8
	}

	if result.HasSeverity(models.SeverityCritical) {
		result.Status = models.StatusRejected
		result.BlockedReasons = []string{"Message contains prohibited content"}
	} else {
		result.Status = models.StatusApproved
	}

	e.recordDecision(ctx, EntityMessage, content.EntityID, content.SenderID, requestID, result, time.Since(start))
	return result, piiRes.MaskedText, nil
}

// ModerateReview evaluates a review submission. Beyond text rules it applies
// a low-effort negative review heuristic and review-bombing detection via
// the velocity counter.
func (e *Engine) ModerateReview(ctx context.Context, content ReviewContent) (*models.ModerationResult, error) {
	start := time.Now()
	requestID := uuid.New().String()

	textRes, err := e.classifyText(ctx, content.Title+" "+content.Content)
	if err != nil {
		return e.failOpen(ctx, EntityReview, content.EntityID, content.ReviewerID, requestID, "text", err, start), nil
	}
	flags := textRes.Flags

	if content.Rating == 1 && len(content.Content) < e.cfg.SuspiciousReviewMinLength {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagSuspiciousReview,
			Severity:    models.SeverityLow,
			Confidence:  0.6,
			Description: "Short low-rating review",
		})
	}

	if recent := e.velocity.Count(content.ReviewerID); recent >= int64(e.cfg.ReviewBombThreshold) {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagReviewBombing,
			Severity:    models.SeverityHigh,
			Confidence:  0.85,
			Description: "Unusually many reviews from this account in a short window",
			Details:     map[string]any{"recent_reviews": recent},
		})
	}
	if _, err := e.velocity.Record(content.ReviewerID); err != nil {
		// Counter failures never affect the decision.
		e.logger.Warn("record review velocity", zap.Error(err))
	}

	result := &models.ModerationResult{Flags: flags, Confidence: 1}
	if len(flags) > 0 {
		result.Confidence = 0.8
		result.Status = models.StatusFlagged
		result.RequiresHumanReview = true
	} else {
		result.Status = models.StatusApproved
	}

	e.recordDecision(ctx, EntityReview, content.EntityID, content.ReviewerID, requestID, result, time.Since(start))
	return result, nil
}

// classifyText runs the text classifier under the configured timeout.
func (e *Engine) classifyText(ctx context.Context, text string) (*TextResult, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ClassifierTimeout)
	defer cancel()
	return e.text.ClassifyText(cctx, text)
}

// classifyImage runs the image classifier under the configured timeout.
func (e *Engine) classifyImage(ctx context.Context, url string) (*ImageResult, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ClassifierTimeout)
	defer cancel()
	return e.image.ClassifyImage(cctx, url)
}

// enqueue routes a result to the review queue. Queue failures are logged and
// do not affect the returned decision.
func (e *Engine) enqueue(ctx context.Context, entityType, entityID string, result *models.ModerationResult) {
	priority := models.PriorityLow
	if result.HasSeverity(models.SeverityHigh) {
		priority = models.PriorityMedium
	}
	if _, err := e.queue.Enqueue(ctx, entityType, entityID, result.Flags, priority); err != nil {
		e.logger.Error("enqueue for review",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// failOpen degrades a failed classification to manual review. An unavailable
// classifier must never auto-publish or auto-block content.
func (e *Engine) failOpen(ctx context.Context, entityType, entityID, userID, requestID, classifier string, cause error, start time.Time) *models.ModerationResult {
	e.metrics.IncrementClassifierErrors(classifier)
	e.logger.Error("classifier failure, degrading to manual review",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("classifier", classifier),
		zap.Error(cause))

	result := &models.ModerationResult{
		Status:     models.StatusPending,
		Confidence: 0,
		// Messages never require human review, whatever the outcome.
		RequiresHumanReview: entityType != EntityMessage,
		Flags: []models.ModerationFlag{{
			Type:        FlagModerationError,
			Severity:    models.SeverityMedium,
			Confidence:  0,
			Description: "Automated moderation unavailable",
		}},
	}
	if entityType == EntityListing {
		e.enqueue(ctx, entityType, entityID, result)
	}
	e.recordDecision(ctx, entityType, entityID, userID, requestID, result, time.Since(start))
	return result
}

// recordDecision writes the audit record and observability signals for one
// decision. The ledger write is best-effort: a decision is returned to the
// caller even when persistence fails.
func (e *Engine) recordDecision(ctx context.Context, contentType, entityID, userID, requestID string, result *models.ModerationResult, duration time.Duration) {
	e.metrics.IncrementDecisions(contentType, string(result.Status))

	if len(result.Flags) > 0 {
		rec := models.AuditRecord{
			Action:     models.ActionContentModerated,
			EntityType: contentType,
			EntityID:   entityID,
			UserID:     userID,
			Metadata: map[string]any{
				"request_id": requestID,
				"status":     result.Status,
				"confidence": result.Confidence,
				"flags":      result.Flags,
			},
		}
		if err := e.ledger.Append(ctx, rec); err != nil {
			e.metrics.IncrementAuditWriteErrors()
			e.logger.Error("audit append", zap.String("entity_id", entityID), zap.Error(err))
		}
	}

	if e.analytics != nil {
		types := make([]string, 0, len(result.Flags))
		for _, f := range result.Flags {
			types = append(types, f.Type)
		}
		err := e.analytics.RecordDecision(ctx, contentType, entityID, requestID,
			string(result.Status), result.Confidence, strings.Join(types, ","),
			result.RequiresHumanReview, duration)
		if err != nil && !errors.Is(err, analytics.ErrUnavailable) {
			e.logger.Warn("record decision event", zap.Error(err))
		}
	}
}

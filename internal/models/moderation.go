package models

import "time"

// Severity ranks how dangerous a single moderation finding is. The order is
// meaningful: escalation decisions compare severities, never flag types.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// rank maps severities onto an ordinal scale for comparisons.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

// Status is the terminal verdict of a moderation pass.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusPending  Status = "PENDING"
	StatusFlagged  Status = "FLAGGED"
	StatusRejected Status = "REJECTED"
)

// Priority orders pending queue items for moderator triage.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ModerationFlag is a single classifier finding. Flags have no identity of
// their own; they travel inside a ModerationResult or a QueueItem snapshot.
type ModerationFlag struct {
	Type        string         `json:"type"`
	Severity    Severity       `json:"severity"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

// ModerationResult is the engine's verdict for one evaluation. It is owned by
// the caller and never persisted directly; only its derived audit and queue
// records outlive the request.
type ModerationResult struct {
	Status              Status           `json:"status"`
	Confidence          float64          `json:"confidence"`
	Flags               []ModerationFlag `json:"flags"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	BlockedReasons      []string         `json:"blocked_reasons,omitempty"`
}

// HasSeverity reports whether any flag is at or above the given severity.
func (r *ModerationResult) HasSeverity(min Severity) bool {
	for _, f := range r.Flags {
		if f.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// QueueItem is a pending human-review case. Items are created by the decision
// engine, mutated only by a moderator resolution and never deleted.
type QueueItem struct {
	ID         int              `json:"id"`
	EntityType string           `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Flags      []ModerationFlag `json:"flags"`
	Priority   Priority         `json:"priority"`
	Status     Status           `json:"status"`
	ResolvedBy *string          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Audit action tags. Every engine decision that produced at least one flag
// writes exactly one CONTENT_MODERATED record; every moderator resolution
// writes exactly one CONTENT_APPROVED or CONTENT_REJECTED record.
const (
	ActionContentModerated = "CONTENT_MODERATED"
	ActionContentApproved  = "CONTENT_APPROVED"
	ActionContentRejected  = "CONTENT_REJECTED"
	ActionQueueAdd         = "MODERATION_QUEUE_ADD"
)

// AuditRecord is one append-only row in the moderation ledger.
type AuditRecord struct {
	ID         int            `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     string         `json:"user_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RiskLevel is derived from a user's recent violation history.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// UserModerationHistory summarizes a user's moderation record.
type UserModerationHistory struct {
	UserID           string        `json:"user_id"`
	Records          []AuditRecord `json:"records"`
	TotalViolations  int           `json:"total_violations"`
	RecentViolations int           `json:"recent_violations"`
	RiskLevel        RiskLevel     `json:"risk_level"`
}

// QueueStats aggregates the review queue for moderator dashboards.
type QueueStats struct {
	Pending           int              `json:"pending"`
	Approved          int              `json:"approved"`
	Rejected          int              `json:"rejected"`
	PendingByPriority map[Priority]int `json:"pending_by_priority"`
}

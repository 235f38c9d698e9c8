// Package analytics streams moderation decision events to ClickHouse for
// trend reporting. It is a best-effort sink and is never on the decision path.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// AnalyticsService defines the interface for analytics operations.
// Implementations should handle cases where underlying storage is
// unavailable by returning ErrUnavailable.
type AnalyticsService interface {
	// RecordDecision records one moderation decision event.
	RecordDecision(ctx context.Context, contentType, entityID, requestID, status string, confidence float64, flagTypes string, requiresReview bool, duration time.Duration) error
	// RecordResolution records one moderator resolution event.
	RecordResolution(ctx context.Context, entityType, entityID, decision, moderatorID string) error
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the events table exists.
func InitClickHouse(dsn string) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS moderation_events (
       timestamp       DateTime,
       event_type      String,
       request_id      String,
       content_type    String,
       entity_id       String,
       status          String,
       confidence      Float64,
       flag_types      String,
       requires_review UInt8,
       moderator_id    String,
       duration_ms     Float64
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db}, nil
}

// RecordDecision inserts a single decision event row.
func (a *Analytics) RecordDecision(ctx context.Context, contentType, entityID, requestID, status string, confidence float64, flagTypes string, requiresReview bool, duration time.Duration) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	review := uint8(0)
	if requiresReview {
		review = 1
	}
	_, err := a.DB.ExecContext(ctx, `INSERT INTO moderation_events (
            timestamp, event_type, request_id, content_type, entity_id,
            status, confidence, flag_types, requires_review, moderator_id, duration_ms)
            VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UTC(), "decision", requestID, contentType, entityID,
		status, confidence, flagTypes, review, "", float64(duration.Milliseconds()))
	if err != nil {
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

// RecordResolution inserts a single resolution event row.
func (a *Analytics) RecordResolution(ctx context.Context, entityType, entityID, decision, moderatorID string) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	_, err := a.DB.ExecContext(ctx, `INSERT INTO moderation_events (
            timestamp, event_type, request_id, content_type, entity_id,
            status, confidence, flag_types, requires_review, moderator_id, duration_ms)
            VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UTC(), "resolution", "", entityType, entityID,
		decision, 0.0, "", uint8(0), moderatorID, 0.0)
	if err != nil {
		return fmt.Errorf("insert resolution event: %w", err)
	}
	return nil
}

// Close shuts down the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}

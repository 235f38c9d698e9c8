package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS moderation_queue (
    id SERIAL PRIMARY KEY,
    entity_type VARCHAR(50) NOT NULL,
    entity_id VARCHAR(255) NOT NULL,
    flags JSONB NOT NULL DEFAULT '[]',
    priority VARCHAR(20) NOT NULL DEFAULT 'LOW',
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    resolved_by VARCHAR(255),
    resolved_at TIMESTAMP,
    notes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_log (
    id SERIAL PRIMARY KEY,
    action VARCHAR(50) NOT NULL,
    entity_type VARCHAR(50) NOT NULL,
    entity_id VARCHAR(255) NOT NULL,
    user_id VARCHAR(255),
    metadata JSONB,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Moderator dashboards page the queue by status/priority, newest first
CREATE INDEX IF NOT EXISTS idx_queue_status_priority ON moderation_queue (status, priority, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_queue_entity ON moderation_queue (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_user_created ON audit_log (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log (entity_type, entity_id);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertQueueItem stores a new review queue item and sets its generated ID.
func (p *Postgres) InsertQueueItem(ctx context.Context, item *models.QueueItem) error {
	flags, err := json.Marshal(item.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	err = p.DB.QueryRowContext(ctx, `INSERT INTO moderation_queue (
            entity_type, entity_id, flags, priority, status)
            VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		item.EntityType, item.EntityID, flags, item.Priority, item.Status).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

// QueueFilter narrows ListQueueItems results. Zero values mean "any".
type QueueFilter struct {
	Status     models.Status
	Priority   models.Priority
	EntityType string
}

// ListQueueItems returns queue items matching the filter, newest first,
// capped at limit rows.
func (p *Postgres) ListQueueItems(ctx context.Context, f QueueFilter, limit int) ([]models.QueueItem, error) {
	query := `SELECT id, entity_type, entity_id, flags, priority, status,
            resolved_by, resolved_at, notes, created_at FROM moderation_queue WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		query += " AND priority = $" + strconv.Itoa(len(args))
	}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		query += " AND entity_type = $" + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindLatestQueueItem returns the most recently created queue item for the
// entity, or sql.ErrNoRows when none exists.
func (p *Postgres) FindLatestQueueItem(ctx context.Context, entityType, entityID string) (models.QueueItem, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT id, entity_type, entity_id, flags, priority, status,
            resolved_by, resolved_at, notes, created_at FROM moderation_queue
            WHERE entity_type = $1 AND entity_id = $2
            ORDER BY created_at DESC LIMIT 1`, entityType, entityID)
	return scanQueueItem(row)
}

// UpdateQueueItemResolution stamps a moderator decision onto a queue item.
func (p *Postgres) UpdateQueueItemResolution(ctx context.Context, id int, status models.Status, moderatorID string, resolvedAt time.Time, notes *string) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE moderation_queue
            SET status = $1, resolved_by = $2, resolved_at = $3, notes = $4
            WHERE id = $5`,
		status, moderatorID, resolvedAt, notes, id)
	if err != nil {
		return fmt.Errorf("update queue item %d: %w", id, err)
	}
	return nil
}

// CountQueueByStatus returns item counts grouped by status.
func (p *Postgres) CountQueueByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM moderation_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count queue by status: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountPendingByPriority returns pending item counts grouped by priority.
func (p *Postgres) CountPendingByPriority(ctx context.Context) (map[models.Priority]int, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT priority, COUNT(*) FROM moderation_queue
            WHERE status = $1 GROUP BY priority`, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending by priority: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[models.Priority]int)
	for rows.Next() {
		var priority models.Priority
		var n int
		if err := rows.Scan(&priority, &n); err != nil {
			return nil, fmt.Errorf("scan priority count: %w", err)
		}
		counts[priority] = n
	}
	return counts, rows.Err()
}

// InsertAuditRecord appends a record to the audit log.
func (p *Postgres) InsertAuditRecord(ctx context.Context, rec models.AuditRecord) error {
	var metadata any
	if rec.Metadata != nil {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = b
	}
	var userID any
	if rec.UserID != "" {
		userID = rec.UserID
	}
	_, err := p.DB.ExecContext(ctx, `INSERT INTO audit_log (
            action, entity_type, entity_id, user_id, metadata)
            VALUES ($1,$2,$3,$4,$5)`,
		rec.Action, rec.EntityType, rec.EntityID, userID, metadata)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// QueryAuditByUser returns the most recent audit records for a user, capped at limit.
func (p *Postgres) QueryAuditByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, action, entity_type, entity_id, user_id, metadata, created_at
            FROM audit_log WHERE user_id = $1
            ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var user sql.NullString
		var metadata []byte
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.EntityType, &rec.EntityID, &user, &metadata, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if user.Valid {
			rec.UserID = user.String
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (models.QueueItem, error) {
	var item models.QueueItem
	var flags []byte
	var resolvedBy, notes sql.NullString
	var resolvedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.EntityType, &item.EntityID, &flags, &item.Priority,
		&item.Status, &resolvedBy, &resolvedAt, &notes, &item.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return item, err
		}
		return item, fmt.Errorf("scan queue item: %w", err)
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &item.Flags); err != nil {
			return item, fmt.Errorf("unmarshal queue flags: %w", err)
		}
	}
	if resolvedBy.Valid {
		item.ResolvedBy = &resolvedBy.String
	}
	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}
	if notes.Valid {
		item.Notes = &notes.String
	}
	return item, nil
}

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pinwheelhq/atrium/pkg/async"
	"github.com/pinwheelhq/atrium/pkg/observability"
)

// asyncLogTimeout bounds a fire-and-forget audit write
const asyncLogTimeout = 5 * time.Second

// DBLogger implements audit logging to PostgreSQL
type DBLogger struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewDBLogger creates a new database-backed audit logger and ensures the
// audit_logs table exists.
func NewDBLogger(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	l := &DBLogger{db: db, logger: logger, metrics: metrics}
	if err := l.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}
	return l, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id BIGINT,
		username VARCHAR(255),
		organization_id BIGINT,
		resource VARCHAR(50),
		resource_id VARCHAR(255),
		request_id VARCHAR(100),
		message TEXT,
		metadata JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_organization_id ON audit_logs(organization_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_status ON audit_logs(status);
	`

	_, err := l.db.Exec(query)
	return err
}

// Log writes an audit event to the database
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	var err error

	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err = l.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (
			timestamp, event_type, status,
			actor_id, username, organization_id,
			resource, resource_id, request_id,
			message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		event.Timestamp, event.EventType, event.Status,
		event.ActorID, event.Username, event.OrganizationID,
		event.Resource, event.ResourceID, event.RequestID,
		event.Message, metadataJSON,
	).Scan(&event.ID)
	if err != nil {
		if l.metrics != nil {
			l.metrics.AuditEventsFailed.Inc()
		}
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	if l.metrics != nil {
		l.metrics.AuditEventsTotal.WithLabelValues(string(event.EventType)).Inc()
	}
	return nil
}

// LogAsync writes an audit event without blocking the request path. The
// write runs on a detached context so a finished request does not cancel it;
// failures are logged and counted, never surfaced to the caller.
func (l *DBLogger) LogAsync(event *Event) {
	async.SafeGo(context.Background(), asyncLogTimeout, "audit log write", func(ctx context.Context) error {
		if err := l.Log(ctx, event); err != nil {
			l.logger.WithError(err).
				WithField("event_type", string(event.EventType)).
				Error("audit write failed")
			return err
		}
		return nil
	})
}

// Search returns audit events matching the filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	query := `
		SELECT id, timestamp, event_type, status,
			actor_id, username, organization_id,
			resource, resource_id, request_id,
			message, metadata
		FROM audit_logs
		WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}
	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}
	if filter.OrganizationID != nil {
		query += fmt.Sprintf(" AND organization_id = $%d", argCount)
		args = append(args, *filter.OrganizationID)
		argCount++
	}
	if filter.ActorID != nil {
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, *filter.ActorID)
		argCount++
	}
	if len(filter.EventTypes) > 0 {
		query += fmt.Sprintf(" AND event_type = ANY($%d)", argCount)
		eventTypeStrs := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			eventTypeStrs[i] = string(et)
		}
		args = append(args, pq.Array(eventTypeStrs))
		argCount++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(*filter.Status))
		argCount++
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID, &event.Timestamp, &event.EventType, &event.Status,
			&event.ActorID, &event.Username, &event.OrganizationID,
			&event.Resource, &event.ResourceID, &event.RequestID,
			&event.Message, &metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// DeleteOlderThan removes events past the retention window and returns the
// number of rows deleted.
func (l *DBLogger) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	result, err := l.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit logs: %w", err)
	}
	return result.RowsAffected()
}

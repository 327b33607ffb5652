package repository

import (
	"context"
	"database/sql"

	"marketplace/internal/domain"
)

// postgresAuditRepository persists audit events durably; it serves as the
// optional sink behind the in-memory trail. The table is append-only: there
// is no update or delete path.
type postgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository creates a durable audit event sink backed by
// the audit_events table.
func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

// Append stores one audit event.
func (r *postgresAuditRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (occurred_at, actor_id, action, details, level)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		event.Timestamp,
		event.ActorID,
		event.Action,
		event.Details,
		event.Level,
	)
	if err != nil {
		return wrapBackend("append audit event", err)
	}
	return nil
}

// FindAll returns every persisted event, newest first.
func (r *postgresAuditRepository) FindAll(ctx context.Context) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, occurred_at, actor_id, action, details, level
		FROM audit_events
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapBackend("list audit events", err)
	}
	defer rows.Close()

	events := []*domain.AuditEvent{}
	for rows.Next() {
		event := &domain.AuditEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.ActorID,
			&event.Action,
			&event.Details,
			&event.Level,
		)
		if err != nil {
			return nil, wrapBackend("list audit events", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackend("list audit events", err)
	}
	return events, nil
}

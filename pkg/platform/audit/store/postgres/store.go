package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "civicledger/pkg/platform/audit"
)

// Schema is applied by EnsureSchema; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	category TEXT NOT NULL,
	action TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	actor_id TEXT NOT NULL DEFAULT '',
	tx_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject, occurred_at);
`

// Store keeps the audit trail in PostgreSQL so it can be queried per request.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append is idempotent on event ID; replays of the same event are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id := uuid.New()
	if event.ID != "" {
		parsed, err := uuid.Parse(event.ID)
		if err != nil {
			return fmt.Errorf("parse audit event id: %w", err)
		}
		id = parsed
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	query := `
		INSERT INTO audit_events (id, category, action, subject, actor_id, tx_hash, status, reason, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		id, string(category), event.Action, event.Subject, event.ActorID,
		event.TxHash, event.Status, event.Reason, event.RequestID, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns a request's events oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	return s.list(ctx, `WHERE subject = $1`, subject)
}

func (s *Store) ListAll(ctx context.Context) ([]audit.Event, error) {
	return s.list(ctx, ``)
}

func (s *Store) list(ctx context.Context, where string, args ...any) ([]audit.Event, error) {
	query := `
		SELECT id, category, action, subject, actor_id, tx_hash, status, reason, request_id, occurred_at
		FROM audit_events ` + where + `
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e        audit.Event
			id       uuid.UUID
			category string
		)
		if err := rows.Scan(&id, &category, &e.Action, &e.Subject, &e.ActorID,
			&e.TxHash, &e.Status, &e.Reason, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.String()
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"landledger/internal/audit"
	"landledger/pkg/domain"
)

// Postgres persists audit events. Inserts are append-only; nothing updates
// or deletes rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          BIGSERIAL   PRIMARY KEY,
			timestamp   TIMESTAMPTZ NOT NULL,
			action      TEXT        NOT NULL,
			actor       TEXT        NOT NULL DEFAULT '',
			subject     TEXT        NOT NULL DEFAULT '',
			property_id BIGINT      NOT NULL DEFAULT 0,
			tx_ref      TEXT        NOT NULL DEFAULT '',
			reason      TEXT        NOT NULL DEFAULT '',
			request_id  TEXT        NOT NULL DEFAULT '',
			client_ip   TEXT        NOT NULL DEFAULT '',
			user_agent  TEXT        NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_events_property_idx ON audit_events (property_id, id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, action, actor, subject, property_id, tx_ref, reason, request_id, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.Timestamp, string(event.Action), event.Actor.String(), event.Subject.String(),
		int64(event.PropertyID), event.TxRef, event.Reason, event.RequestID, event.ClientIP, event.UserAgent)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByProperty(ctx context.Context, id domain.PropertyID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, action, actor, subject, property_id, tx_ref, reason, request_id, client_ip, user_agent
		FROM audit_events WHERE property_id = $1 ORDER BY id
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var action, actor, subject string
		var propertyID int64
		if err := rows.Scan(&e.Timestamp, &action, &actor, &subject, &propertyID,
			&e.TxRef, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Actor = domain.Address(actor)
		e.Subject = domain.Address(subject)
		e.PropertyID = domain.PropertyID(propertyID)
		out = append(out, e)
	}
	return out, rows.Err()
}

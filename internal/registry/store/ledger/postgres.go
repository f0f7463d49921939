package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// Postgres is the durable ledger. Transfers lock the property row FOR UPDATE
// and advance a single-row log head inside the same transaction, so the owner
// change and the log append commit together or not at all, and log positions
// form one globally agreed sequence.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist. Deployments
// with managed migrations can skip this.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS properties (
			id              BIGSERIAL PRIMARY KEY,
			property_number TEXT        NOT NULL,
			owner           TEXT        NOT NULL,
			location        TEXT        NOT NULL,
			document_ref    TEXT        NOT NULL,
			is_verified     BOOLEAN     NOT NULL DEFAULT FALSE,
			registered_at   TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transfer_log (
			position    BIGINT      PRIMARY KEY,
			property_id BIGINT      NOT NULL REFERENCES properties (id),
			sender      TEXT        NOT NULL,
			receiver    TEXT        NOT NULL,
			tx_ref      TEXT        NOT NULL UNIQUE,
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS transfer_log_property_idx ON transfer_log (property_id, position);
		CREATE TABLE IF NOT EXISTS transfer_log_head (
			singleton     BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			next_position BIGINT  NOT NULL
		);
		INSERT INTO transfer_log_head (singleton, next_position)
		VALUES (TRUE, 0)
		ON CONFLICT (singleton) DO NOTHING;
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

func (s *Postgres) Register(ctx context.Context, reg models.Registration, owner domain.Address, at time.Time) (*models.Property, error) {
	p := &models.Property{
		PropertyNumber: reg.PropertyNumber,
		Owner:          owner,
		Location:       reg.Location,
		DocumentRef:    reg.DocumentRef,
		RegisteredAt:   at,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO properties (property_number, owner, location, document_ref, is_verified, registered_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`, reg.PropertyNumber, owner.String(), reg.Location, reg.DocumentRef, at).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("register property: %w", translate(err))
	}
	return p, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PropertyID) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_number, owner, location, document_ref, is_verified, registered_at
		FROM properties WHERE id = $1
	`, int64(id))
	return scanProperty(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Property, error) {
	return s.queryProperties(ctx, `
		SELECT id, property_number, owner, location, document_ref, is_verified, registered_at
		FROM properties ORDER BY id
	`)
}

func (s *Postgres) ListByOwner(ctx context.Context, owner domain.Address) ([]*models.Property, error) {
	return s.queryProperties(ctx, `
		SELECT id, property_number, owner, location, document_ref, is_verified, registered_at
		FROM properties WHERE lower(owner) = lower($1) ORDER BY id
	`, owner.String())
}

// Execute locks the property row, runs validate, applies mutate, and writes
// the result back. A validation error rolls back with no state change.
func (s *Postgres) Execute(ctx context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	p, err := lockProperty(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	if _, err := tx.ExecContext(ctx, `
		UPDATE properties SET owner = $2, is_verified = $3 WHERE id = $1
	`, int64(p.ID), p.Owner.String(), p.IsVerified); err != nil {
		return nil, fmt.Errorf("update property: %w", translate(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", translate(err))
	}
	return p, nil
}

// ExecuteTransfer is the serialized transfer commit point. The FOR UPDATE row
// lock makes concurrent transfers of the same property re-validate against
// the winner's committed state; the log head row lock orders appends across
// all properties into a single sequence.
func (s *Postgres) ExecuteTransfer(ctx context.Context, id domain.PropertyID, newOwner domain.Address, txRef domain.TxRef, at time.Time, validate func(*models.Property) error) (*models.Property, *models.TransactionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	p, err := lockProperty(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := validate(p); err != nil {
		return nil, nil, err
	}

	sender := p.Owner
	p.ApplyTransfer(newOwner)

	if _, err := tx.ExecContext(ctx, `
		UPDATE properties SET owner = $2 WHERE id = $1
	`, int64(p.ID), p.Owner.String()); err != nil {
		return nil, nil, fmt.Errorf("update owner: %w", translate(err))
	}

	var position int64
	if err := tx.QueryRowContext(ctx, `
		UPDATE transfer_log_head SET next_position = next_position + 1
		RETURNING next_position - 1
	`).Scan(&position); err != nil {
		return nil, nil, fmt.Errorf("advance log head: %w", translate(err))
	}

	record := &models.TransactionRecord{
		Position:   position,
		PropertyID: id,
		Sender:     sender,
		Receiver:   newOwner,
		TxRef:      txRef,
		CreatedAt:  at,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transfer_log (position, property_id, sender, receiver, tx_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.Position, int64(record.PropertyID), record.Sender.String(), record.Receiver.String(), record.TxRef.String(), record.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("append transfer log: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transfer: %w", translate(err))
	}
	return p, record, nil
}

func (s *Postgres) Log(ctx context.Context) ([]models.TransactionRecord, error) {
	return s.queryLog(ctx, `
		SELECT position, property_id, sender, receiver, tx_ref, created_at
		FROM transfer_log ORDER BY position
	`)
}

func (s *Postgres) LogFrom(ctx context.Context, position int64) ([]models.TransactionRecord, error) {
	return s.queryLog(ctx, `
		SELECT position, property_id, sender, receiver, tx_ref, created_at
		FROM transfer_log WHERE position >= $1 ORDER BY position
	`, position)
}

func (s *Postgres) RecordsAt(ctx context.Context, positions []int64) ([]models.TransactionRecord, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	return s.queryLog(ctx, `
		SELECT position, property_id, sender, receiver, tx_ref, created_at
		FROM transfer_log WHERE position = ANY($1) ORDER BY position
	`, pq.Array(positions))
}

func (s *Postgres) queryProperties(ctx context.Context, query string, args ...any) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", translate(err))
	}
	defer rows.Close()

	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) queryLog(ctx context.Context, query string, args ...any) ([]models.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfer log: %w", translate(err))
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var propertyID int64
		var sender, receiver, txRef string
		if err := rows.Scan(&rec.Position, &propertyID, &sender, &receiver, &txRef, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		rec.PropertyID = domain.PropertyID(propertyID)
		rec.Sender = domain.Address(sender)
		rec.Receiver = domain.Address(receiver)
		rec.TxRef = domain.TxRef(txRef)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var id int64
	var owner string
	err := row.Scan(&id, &p.PropertyNumber, &owner, &p.Location, &p.DocumentRef, &p.IsVerified, &p.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan property: %w", err)
	}
	p.ID = domain.PropertyID(id)
	p.Owner = domain.Address(owner)
	return &p, nil
}

func lockProperty(ctx context.Context, tx *sql.Tx, id domain.PropertyID) (*models.Property, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, property_number, owner, location, document_ref, is_verified, registered_at
		FROM properties WHERE id = $1 FOR UPDATE
	`, int64(id))
	return scanProperty(row)
}

// translate maps driver-level failures onto sentinels so services never see
// pgconn types.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return sentinel.ErrConflict
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return sentinel.ErrConflict
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sentinel.ErrUnavailable
	}
	return err
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"landledger/internal/profile/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// Postgres stores profiles in a single table keyed by lowercased wallet
// address. ON CONFLICT keeps the original created_at across resubmissions.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			wallet      TEXT PRIMARY KEY,
			full_name   TEXT NOT NULL,
			national_id TEXT NOT NULL,
			phone       TEXT NOT NULL,
			residence   TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure profiles schema: %w", err)
	}
	return nil
}

func (s *Postgres) Upsert(ctx context.Context, p models.Profile) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (wallet, full_name, national_id, phone, residence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet) DO UPDATE SET
			full_name   = EXCLUDED.full_name,
			national_id = EXCLUDED.national_id,
			phone       = EXCLUDED.phone,
			residence   = EXCLUDED.residence,
			updated_at  = EXCLUDED.updated_at
		RETURNING wallet, full_name, national_id, phone, residence, created_at, updated_at`,
		strings.ToLower(p.Wallet.String()), p.FullName, p.NationalID, p.Phone, p.Residence,
		p.CreatedAt, p.UpdatedAt,
	)
	return scanProfile(row)
}

func (s *Postgres) FindByWallet(ctx context.Context, wallet domain.Address) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wallet, full_name, national_id, phone, residence, created_at, updated_at
		FROM profiles WHERE wallet = $1`,
		strings.ToLower(wallet.String()),
	)
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	var wallet string
	err := row.Scan(&wallet, &p.FullName, &p.NationalID, &p.Phone, &p.Residence, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Wallet = domain.Address(wallet)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

//go:build integration

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	now   time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresLedgerSuite) TearDownSuite() {
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresLedgerSuite) register(owner domain.Address) *models.Property {
	s.T().Helper()
	reg, err := models.NewRegistration("SUR-1", "7 Pier Road", "QmDeed")
	s.Require().NoError(err)
	p, err := s.store.Register(context.Background(), reg, owner, s.now)
	s.Require().NoError(err)
	return p
}

func (s *PostgresLedgerSuite) TestRegisterAndFind() {
	ctx := context.Background()
	ownerA := domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	p := s.register(ownerA)
	s.Equal(domain.PropertyID(1), p.ID)

	stored, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.True(stored.Owner.Equal(ownerA))
	s.False(stored.IsVerified)
	s.Equal(s.now, stored.RegisteredAt)

	_, err = s.store.FindByID(ctx, domain.PropertyID(99))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresLedgerSuite) TestExecuteTransferAtomicity() {
	ctx := context.Background()
	ownerA := domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ownerB := domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	p := s.register(ownerA)

	s.Run("validation failure rolls everything back", func() {
		boom := errors.New("no")
		_, _, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
			func(*models.Property) error { return boom },
		)
		s.ErrorIs(err, boom)

		log, err := s.store.Log(ctx)
		s.NoError(err)
		s.Empty(log)

		stored, err := s.store.FindByID(ctx, p.ID)
		s.NoError(err)
		s.True(stored.Owner.Equal(ownerA))
	})

	s.Run("commit moves the owner and appends at the head position", func() {
		updated, rec, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
			func(*models.Property) error { return nil },
		)
		s.Require().NoError(err)
		s.True(updated.Owner.Equal(ownerB))
		s.Equal(int64(0), rec.Position)

		_, rec2, err := s.store.ExecuteTransfer(ctx, p.ID, ownerA, domain.NewTxRef(), s.now,
			func(*models.Property) error { return nil },
		)
		s.Require().NoError(err)
		s.Equal(int64(1), rec2.Position)
	})
}

func (s *PostgresLedgerSuite) TestLogQueries() {
	ctx := context.Background()
	ownerA := domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ownerB := domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	p := s.register(ownerA)
	next := ownerB
	for i := 0; i < 4; i++ {
		_, _, err := s.store.ExecuteTransfer(ctx, p.ID, next, domain.NewTxRef(), s.now,
			func(*models.Property) error { return nil },
		)
		s.Require().NoError(err)
		if next.Equal(ownerB) {
			next = ownerA
		} else {
			next = ownerB
		}
	}

	log, err := s.store.Log(ctx)
	s.Require().NoError(err)
	s.Require().Len(log, 4)
	for i, rec := range log {
		s.Equal(int64(i), rec.Position)
	}

	tail, err := s.store.LogFrom(ctx, 2)
	s.Require().NoError(err)
	s.Len(tail, 2)

	picked, err := s.store.RecordsAt(ctx, []int64{0, 3})
	s.Require().NoError(err)
	s.Require().Len(picked, 2)
	s.Equal(int64(0), picked[0].Position)
	s.Equal(int64(3), picked[1].Position)
}

func (s *PostgresLedgerSuite) TestConcurrentTransfersSerialize() {
	ctx := context.Background()
	ownerA := domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ownerB := domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	p := s.register(ownerA)

	const n = 8
	done := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			_, rec, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
				func(*models.Property) error { return nil },
			)
			if err != nil {
				done <- -1
				return
			}
			done <- rec.Position
		}()
	}

	seen := make(map[int64]bool)
	committed := 0
	for i := 0; i < n; i++ {
		pos := <-done
		if pos >= 0 {
			s.False(seen[pos], "position %d assigned twice", pos)
			seen[pos] = true
			committed++
		}
	}

	log, err := s.store.Log(ctx)
	s.Require().NoError(err)
	s.Len(log, committed)
}

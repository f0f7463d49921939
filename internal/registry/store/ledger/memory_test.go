package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

const (
	ownerA = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ownerB = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type MemoryLedgerSuite struct {
	suite.Suite
	store *InMemory
	now   time.Time
}

func TestMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(MemoryLedgerSuite))
}

func (s *MemoryLedgerSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryLedgerSuite) register(owner domain.Address) *models.Property {
	s.T().Helper()
	reg, err := models.NewRegistration("SUR-7", "4 Dock Street", "QmDeed")
	s.Require().NoError(err)
	p, err := s.store.Register(context.Background(), reg, owner, s.now)
	s.Require().NoError(err)
	return p
}

func (s *MemoryLedgerSuite) TestRegisterAndFind() {
	ctx := context.Background()

	s.Run("ids are strictly increasing from one", func() {
		s.Equal(domain.PropertyID(1), s.register(ownerA).ID)
		s.Equal(domain.PropertyID(2), s.register(ownerA).ID)
		s.Equal(domain.PropertyID(3), s.register(ownerB).ID)
	})

	s.Run("missing property is sentinel not found", func() {
		_, err := s.store.FindByID(ctx, domain.PropertyID(99))
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("returned property is a copy", func() {
		p := s.register(ownerA)
		p.Owner = ownerB

		stored, err := s.store.FindByID(ctx, p.ID)
		s.NoError(err)
		s.True(stored.Owner.Equal(ownerA))
	})

	s.Run("list preserves creation order", func() {
		all, err := s.store.List(ctx)
		s.NoError(err)
		for i := 1; i < len(all); i++ {
			s.Less(all[i-1].ID, all[i].ID)
		}
	})

	s.Run("list by owner matches case-insensitively", func() {
		store := NewInMemory()
		reg, err := models.NewRegistration("SUR-8", "9 Hill Road", "QmDeed2")
		s.Require().NoError(err)
		_, err = store.Register(ctx, reg, ownerA, s.now)
		s.Require().NoError(err)

		upper := domain.Address("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		mine, err := store.ListByOwner(ctx, upper)
		s.NoError(err)
		s.Len(mine, 1)
	})
}

func (s *MemoryLedgerSuite) TestExecuteTransfer() {
	ctx := context.Background()

	s.Run("owner change and log append commit together", func() {
		p := s.register(ownerA)
		updated, rec, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
			func(*models.Property) error { return nil },
		)
		s.Require().NoError(err)
		s.True(updated.Owner.Equal(ownerB))
		s.Equal(int64(0), rec.Position)
		s.Equal(p.ID, rec.PropertyID)
		s.True(rec.Sender.Equal(ownerA))
		s.True(rec.Receiver.Equal(ownerB))

		log, err := s.store.Log(ctx)
		s.NoError(err)
		s.Len(log, 1)
	})

	s.Run("validation failure commits nothing", func() {
		p := s.register(ownerA)
		before, err := s.store.Log(ctx)
		s.Require().NoError(err)

		boom := errors.New("no")
		_, _, err = s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
			func(*models.Property) error { return boom },
		)
		s.ErrorIs(err, boom)

		after, err := s.store.Log(ctx)
		s.NoError(err)
		s.Len(after, len(before))

		stored, err := s.store.FindByID(ctx, p.ID)
		s.NoError(err)
		s.True(stored.Owner.Equal(ownerA))
	})

	s.Run("missing property is sentinel not found", func() {
		_, _, err := s.store.ExecuteTransfer(ctx, domain.PropertyID(99), ownerB, domain.NewTxRef(), s.now,
			func(*models.Property) error { return nil },
		)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("validate sees the in-lock state", func() {
		p := s.register(ownerA)
		var seen domain.Address
		_, _, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
			func(current *models.Property) error {
				seen = current.Owner
				return nil
			},
		)
		s.NoError(err)
		s.True(seen.Equal(ownerA))
	})

	s.Run("concurrent transfers serialize onto distinct positions", func() {
		store := NewInMemory()
		reg, err := models.NewRegistration("SUR-9", "1 Quay", "QmDeed3")
		s.Require().NoError(err)
		p, err := store.Register(ctx, reg, ownerA, s.now)
		s.Require().NoError(err)

		const n = 16
		var wg sync.WaitGroup
		positions := make(chan int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, rec, err := store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
					func(*models.Property) error { return nil },
				)
				if err == nil {
					positions <- rec.Position
				}
			}()
		}
		wg.Wait()
		close(positions)

		seen := make(map[int64]bool)
		for pos := range positions {
			s.False(seen[pos], "position %d assigned twice", pos)
			seen[pos] = true
		}
		s.Len(seen, n)
	})
}

func (s *MemoryLedgerSuite) TestLogQueries() {
	ctx := context.Background()

	s.Run("log from position returns the tail", func() {
		p := s.register(ownerA)
		for i := 0; i < 3; i++ {
			_, _, err := s.store.ExecuteTransfer(ctx, p.ID, ownerB, domain.NewTxRef(), s.now,
				func(*models.Property) error { return nil },
			)
			s.Require().NoError(err)
		}

		tail, err := s.store.LogFrom(ctx, 1)
		s.NoError(err)
		s.Require().Len(tail, 2)
		s.Equal(int64(1), tail[0].Position)
		s.Equal(int64(2), tail[1].Position)
	})

	s.Run("records at resolves selected positions in order", func() {
		records, err := s.store.RecordsAt(ctx, []int64{0, 2})
		s.NoError(err)
		s.Require().Len(records, 2)
		s.Equal(int64(0), records[0].Position)
		s.Equal(int64(2), records[1].Position)
	})
}

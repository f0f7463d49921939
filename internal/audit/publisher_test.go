package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/audit"
	auditstore "landledger/internal/audit/store"
	"landledger/pkg/domain"
)

const actorAddr = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("emit defaults the timestamp", func(t *testing.T) {
		store := auditstore.NewMemory()
		pub := audit.NewPublisher(store)

		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPropertyRegistered, Actor: actorAddr, PropertyID: 1}))

		events := store.All()
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("list filters by property", func(t *testing.T) {
		store := auditstore.NewMemory()
		pub := audit.NewPublisher(store)

		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPropertyRegistered, PropertyID: 1}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPropertyVerified, PropertyID: 2}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionOwnershipTransferred, PropertyID: 1}))

		events, err := pub.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

func TestAsyncPublisherAndWorker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("worker persists emitted events", func(t *testing.T) {
		store := auditstore.NewMemory()
		inbox := make(chan audit.Event, 8)
		pub := audit.NewAsyncPublisher(inbox)
		worker := audit.NewWorker(store, inbox, logger)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = worker.Run(ctx)
			close(done)
		}()

		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionPropertyRegistered, Actor: actorAddr, PropertyID: 3}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionTransferDenied, Actor: actorAddr, PropertyID: 3}))

		require.Eventually(t, func() bool {
			return len(store.All()) == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done
	})

	t.Run("buffered events survive shutdown", func(t *testing.T) {
		store := auditstore.NewMemory()
		inbox := make(chan audit.Event, 8)
		pub := audit.NewAsyncPublisher(inbox)
		worker := audit.NewWorker(store, inbox, logger)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionProfileSubmitted, Actor: actorAddr}))

		_ = worker.Run(ctx)
		assert.Len(t, store.All(), 1)
	})

	t.Run("a full inbox drops rather than blocks", func(t *testing.T) {
		inbox := make(chan audit.Event, 1)
		pub := audit.NewAsyncPublisher(inbox)

		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionPropertyRegistered}))
		err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionPropertyRegistered})
		assert.ErrorIs(t, err, audit.ErrInboxFull)
	})
}

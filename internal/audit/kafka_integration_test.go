//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditstore "landledger/internal/audit/store"
	"landledger/pkg/domain"
	"landledger/pkg/testutil/containers"
)

func TestKafkaSinkMirrorsEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kafka := containers.NewKafkaContainer(t)
	defer kafka.Container.Terminate(context.Background())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inner := auditstore.NewMemory()

	sink, err := NewKafkaSink(ctx, inner, kafka.Brokers, "landledger.audit.test", logger)
	require.NoError(t, err)

	event := Event{
		Timestamp:  time.Now().UTC(),
		Action:     ActionOwnershipTransferred,
		Actor:      domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Subject:    domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		PropertyID: 7,
		TxRef:      "ref-1",
	}
	require.NoError(t, sink.Append(ctx, event))
	require.NoError(t, sink.Close(context.Background()))

	t.Run("inner store received the event", func(t *testing.T) {
		events, err := inner.ListByProperty(ctx, 7)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ActionOwnershipTransferred, events[0].Action)
	})

	t.Run("the topic received the mirrored payload", func(t *testing.T) {
		consumer := kafka.Consumer(t, "landledger.audit.test")
		defer consumer.Close()

		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())

		records := fetches.Records()
		require.Len(t, records, 1)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(records[0].Value, &payload))
		assert.Equal(t, string(ActionOwnershipTransferred), payload["action"])
		assert.Equal(t, float64(7), payload["property_id"])
	})
}

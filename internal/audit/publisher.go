package audit

import (
	"context"
	"errors"
	"time"

	"landledger/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, id domain.PropertyID) ([]Event, error) {
	return p.store.ListByProperty(ctx, id)
}

// AsyncPublisher hands events to a Worker via a buffered channel, keeping
// audit persistence off the request path. Events are dropped when the buffer
// is full; audit is best-effort and must never block a ledger operation.
type AsyncPublisher struct {
	inbox chan<- Event
}

func NewAsyncPublisher(inbox chan<- Event) *AsyncPublisher {
	return &AsyncPublisher{inbox: inbox}
}

func (p *AsyncPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}

// ErrInboxFull reports a dropped audit event. Callers log it and move on.
var ErrInboxFull = errors.New("audit inbox full, event dropped")

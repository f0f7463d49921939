// Package history maintains the derived read-side index over the transfer
// log: property → ordered log positions and address → ordered log positions.
//
// The index is purely derived state. Rebuilding from an empty index by
// replaying the log must produce buckets identical to incremental
// maintenance; the watermark-based Apply enforces this by only accepting the
// next expected position, so arrival order of notifications cannot change
// bucket contents.
package history

import (
	"context"
	"strings"
	"sync"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
)

// Index answers the filtered history queries without scanning the log.
// An address appears in its bucket if it is sender or receiver of the record.
type Index interface {
	// Apply offers one log record. It is accepted only if its position is the
	// next expected one; applied=false means the caller should catch up from
	// NextPosition via the log.
	Apply(ctx context.Context, rec models.TransactionRecord) (applied bool, err error)
	// NextPosition is the watermark: the first log position not yet indexed.
	NextPosition(ctx context.Context) (int64, error)
	ByProperty(ctx context.Context, id domain.PropertyID) ([]int64, error)
	ByAddress(ctx context.Context, addr domain.Address) ([]int64, error)
	// Rebuild discards all buckets and replays the given log from empty.
	Rebuild(ctx context.Context, log []models.TransactionRecord) error
}

// InMemory is the single-process index.
type InMemory struct {
	mu         sync.RWMutex
	next       int64
	byProperty map[domain.PropertyID][]int64
	byAddress  map[string][]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		byProperty: make(map[domain.PropertyID][]int64),
		byAddress:  make(map[string][]int64),
	}
}

func (x *InMemory) Apply(_ context.Context, rec models.TransactionRecord) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if rec.Position != x.next {
		// Already indexed counts as accounted for; a gap means fall behind.
		return rec.Position < x.next, nil
	}
	x.bucket(rec)
	x.next = rec.Position + 1
	return true, nil
}

func (x *InMemory) NextPosition(context.Context) (int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.next, nil
}

func (x *InMemory) ByProperty(_ context.Context, id domain.PropertyID) ([]int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]int64(nil), x.byProperty[id]...), nil
}

func (x *InMemory) ByAddress(_ context.Context, addr domain.Address) ([]int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]int64(nil), x.byAddress[addressKey(addr)]...), nil
}

func (x *InMemory) Rebuild(_ context.Context, log []models.TransactionRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.next = 0
	x.byProperty = make(map[domain.PropertyID][]int64)
	x.byAddress = make(map[string][]int64)
	for _, rec := range log {
		if rec.Position != x.next {
			continue // replay input must be the contiguous log
		}
		x.bucket(rec)
		x.next = rec.Position + 1
	}
	return nil
}

// bucket appends the position to all buckets the record belongs to. For a
// self-referential record (sender == receiver cannot happen for transfers,
// but the index does not assume it) the position is still appended once per
// distinct address.
func (x *InMemory) bucket(rec models.TransactionRecord) {
	x.byProperty[rec.PropertyID] = append(x.byProperty[rec.PropertyID], rec.Position)

	senderKey := addressKey(rec.Sender)
	x.byAddress[senderKey] = append(x.byAddress[senderKey], rec.Position)
	if receiverKey := addressKey(rec.Receiver); receiverKey != senderKey {
		x.byAddress[receiverKey] = append(x.byAddress[receiverKey], rec.Position)
	}
}

func addressKey(addr domain.Address) string {
	return strings.ToLower(addr.String())
}

// Package ledger implements the durable property/ownership store and its
// append-only transfer log. The in-memory variant backs tests and single-node
// development; the PostgreSQL variant is the production store. Both serialize
// transfers per property and commit the owner change and the log append as
// one unit.
package ledger

import (
	"context"
	"sync"
	"time"

	"landledger/internal/registry/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded ledger. Existence is explicit: a property is
// present iff its ID is a key of properties, never inferred from zero-valued
// fields. The log is a slice whose index is the record's global position.
type InMemory struct {
	mu         sync.RWMutex
	nextID     domain.PropertyID
	properties map[domain.PropertyID]*models.Property
	order      []domain.PropertyID
	log        []models.TransactionRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID:     1,
		properties: make(map[domain.PropertyID]*models.Property),
	}
}

// Register persists a new property under the next free ID. IDs are strictly
// increasing and never reused, even if registrations interleave.
func (s *InMemory) Register(_ context.Context, reg models.Registration, owner domain.Address, at time.Time) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &models.Property{
		ID:             s.nextID,
		PropertyNumber: reg.PropertyNumber,
		Owner:          owner,
		Location:       reg.Location,
		DocumentRef:    reg.DocumentRef,
		IsVerified:     false,
		RegisteredAt:   at,
	}
	s.nextID++
	s.properties[p.ID] = p
	s.order = append(s.order, p.ID)

	cp := *p
	return &cp, nil
}

// FindByID returns a copy of the property or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, id domain.PropertyID) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns all properties in creation order.
func (s *InMemory) List(_ context.Context) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Property, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.properties[id]
		out = append(out, &cp)
	}
	return out, nil
}

// ListByOwner filters properties by current owner, creation order preserved.
func (s *InMemory) ListByOwner(_ context.Context, owner domain.Address) ([]*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Property
	for _, id := range s.order {
		if s.properties[id].Owner.Equal(owner) {
			cp := *s.properties[id]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Execute runs validate then mutate on the property while holding the store
// lock, so the validated state cannot change before the mutation lands.
// Returns sentinel.ErrNotFound if the property does not exist; a validation
// error aborts with no state change.
func (s *InMemory) Execute(_ context.Context, id domain.PropertyID, validate func(*models.Property) error, mutate func(*models.Property)) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	cp := *p
	return &cp, nil
}

// ExecuteTransfer atomically re-validates, reassigns the owner, and appends
// the log record. The single mutex is the serializing commit point: two
// concurrent transfers of the same property cannot both pass validation, and
// the log append order is a globally agreed sequence.
func (s *InMemory) ExecuteTransfer(_ context.Context, id domain.PropertyID, newOwner domain.Address, txRef domain.TxRef, at time.Time, validate func(*models.Property) error) (*models.Property, *models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, nil, err
	}

	sender := p.Owner
	p.ApplyTransfer(newOwner)
	record := models.TransactionRecord{
		Position:   int64(len(s.log)),
		PropertyID: id,
		Sender:     sender,
		Receiver:   newOwner,
		TxRef:      txRef,
		CreatedAt:  at,
	}
	s.log = append(s.log, record)

	cp := *p
	rec := record
	return &cp, &rec, nil
}

// Log returns the full transfer log in append order.
func (s *InMemory) Log(_ context.Context) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TransactionRecord, len(s.log))
	copy(out, s.log)
	return out, nil
}

// LogFrom returns log records at or after the given position, in order.
// The history index uses it to catch up after a rebuild.
func (s *InMemory) LogFrom(_ context.Context, position int64) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if position < 0 {
		position = 0
	}
	if position >= int64(len(s.log)) {
		return nil, nil
	}
	out := make([]models.TransactionRecord, int64(len(s.log))-position)
	copy(out, s.log[position:])
	return out, nil
}

// RecordsAt resolves log positions to records, preserving the given order.
// Unknown positions are skipped rather than erroring: the index can only hold
// positions that were appended, so a miss means a torn read upstream and the
// caller will retry.
func (s *InMemory) RecordsAt(_ context.Context, positions []int64) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TransactionRecord, 0, len(positions))
	for _, pos := range positions {
		if pos >= 0 && pos < int64(len(s.log)) {
			out = append(out, s.log[pos])
		}
	}
	return out, nil
}

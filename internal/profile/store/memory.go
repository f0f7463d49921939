package store

import (
	"context"
	"strings"
	"sync"

	"landledger/internal/profile/models"
	"landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// InMemory keeps profiles in a map keyed by lowercased wallet address. Used
// in tests and in deployments without Postgres.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]models.Profile)}
}

func (s *InMemory) Upsert(ctx context.Context, p models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletKey(p.Wallet)
	if existing, ok := s.profiles[key]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	s.profiles[key] = p

	out := p
	return &out, nil
}

func (s *InMemory) FindByWallet(ctx context.Context, wallet domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[walletKey(wallet)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func walletKey(a domain.Address) string {
	return strings.ToLower(a.String())
}

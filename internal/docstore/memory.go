package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// InMemory is a content-addressed document store for tests and deployments
// without a pinning provider. References are the hex SHA-256 of the content,
// so identical uploads pin to the same ref.
type InMemory struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{documents: make(map[string][]byte)}
}

func (s *InMemory) Put(ctx context.Context, name string, content io.Reader) (*Pinned, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.documents[ref] = data
	s.mu.Unlock()

	return &Pinned{Ref: ref, Size: int64(len(data)), URL: s.ResolveURL(ref)}, nil
}

func (s *InMemory) ResolveURL(ref string) string {
	return "memory://" + ref
}

// Get returns stored content, for tests.
func (s *InMemory) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.documents[ref]
	return data, ok
}

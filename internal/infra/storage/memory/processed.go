package memory

import (
	"context"
	"sync"
)

// ProcessedStore remembers webhook event IDs so replayed deliveries are
// dropped.
type ProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{seen: make(map[string]struct{})}
}

func (s *ProcessedStore) Seen(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID]
	return ok, nil
}

func (s *ProcessedStore) Mark(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID] = struct{}{}
	return nil
}

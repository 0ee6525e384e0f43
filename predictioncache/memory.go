package predictioncache

import (
	"context"
	"sync"

	"detection-api/fingerprint"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local tier. Used by the client wrapper when no
// local redis is configured, and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[fingerprint.Fingerprint]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[fingerprint.Fingerprint]float64)}
}

func (s *MemoryStore) Get(_ context.Context, fp fingerprint.Fingerprint) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	probability, ok := s.entries[fp]
	return probability, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, fp fingerprint.Fingerprint, probability float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fp] = probability
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

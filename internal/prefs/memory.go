package prefs

import (
	"context"
	"sync"
)

// MemoryStore holds the monitored-county set in process. Used for
// redis-less deployments; the set does not survive a restart.
type MemoryStore struct {
	mu  sync.RWMutex
	raw string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return decodeCounties(s.raw), nil
}

func (s *MemoryStore) Save(ctx context.Context, counties []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = encodeCounties(counties)
	return nil
}

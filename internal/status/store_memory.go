package status

import (
	"context"
	"sync"
	"time"

	"globaldata/pkg/platform/sentinel"
)

// InMemoryStore keeps status state in process memory for unit tests and
// dependency-free runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	status *Status
	runs   []RefreshRun
}

// NewInMemoryStore constructs an empty in-memory status store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Get(_ context.Context) (*Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == nil {
		return nil, sentinel.ErrNotFound
	}
	st := *s.status
	return &st, nil
}

func (s *InMemoryStore) Touch(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == nil {
		s.status = &Status{ID: 1}
	}
	s.status.LastUpdated = at
	return nil
}

func (s *InMemoryStore) RecordRun(_ context.Context, run RefreshRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first, matching the Postgres ordering.
	s.runs = append([]RefreshRun{run}, s.runs...)
	return nil
}

func (s *InMemoryStore) RecentRuns(_ context.Context, limit int) ([]RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]RefreshRun, limit)
	copy(out, s.runs[:limit])
	return out, nil
}

package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// InMemoryRunStore is a thread-safe, in-memory implementation of RunStore.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewInMemoryRunStore creates an empty run store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]Run)}
}

var _ RunStore = (*InMemoryRunStore)(nil)

// Save implements RunStore.
func (s *InMemoryRunStore) Save(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ToolCalls = slices.Clone(run.ToolCalls)
	s.runs[run.ID] = run
	return nil
}

// Get implements RunStore.
func (s *InMemoryRunStore) Get(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return r, nil
}

// List implements RunStore.
func (s *InMemoryRunStore) List(_ context.Context, owner, agent string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Run
	for _, r := range s.runs {
		if r.Owner != owner {
			continue
		}
		if agent != "" && !strings.EqualFold(r.Agent, agent) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

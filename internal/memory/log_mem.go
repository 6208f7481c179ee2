package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type agentKey struct{ owner, agent string }

// InMemoryLog is a thread-safe, in-memory implementation of Log.
// Search uses case-insensitive substring matching.
type InMemoryLog struct {
	mu      sync.RWMutex
	entries map[agentKey][]Entry
	now     func() time.Time
}

// NewInMemoryLog creates an empty log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		entries: make(map[agentKey][]Entry),
		now:     time.Now,
	}
}

var _ Log = (*InMemoryLog)(nil)

// Append implements Log.
func (l *InMemoryLog) Append(_ context.Context, owner, agent, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := agentKey{owner, strings.ToLower(agent)}
	l.entries[k] = append(l.entries[k], Entry{
		Owner:     owner,
		Agent:     agent,
		Content:   content,
		CreatedAt: l.now().UTC(),
	})
	return nil
}

// Tail implements Log.
func (l *InMemoryLog) Tail(_ context.Context, owner, agent string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.entries[agentKey{owner, strings.ToLower(agent)}]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]Entry, len(all))
	copy(out, all)
	return out, nil
}

// Search implements Log. Newer matches rank first.
func (l *InMemoryLog) Search(_ context.Context, owner, agent, query string, topK int) ([]Entry, error) {
	if query == "" || topK <= 0 {
		return nil, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	q := strings.ToLower(query)
	all := l.entries[agentKey{owner, strings.ToLower(agent)}]
	var out []Entry
	for i := len(all) - 1; i >= 0 && len(out) < topK; i-- {
		if strings.Contains(strings.ToLower(all[i].Content), q) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

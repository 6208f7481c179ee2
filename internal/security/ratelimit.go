package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a key exceeds its run budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig bounds how many runs each owner may start.
type RateLimitConfig struct {
	// RunsPerMinute is the sliding-window budget per key. Zero disables
	// limiting.
	RunsPerMinute int `yaml:"runs_per_minute"`
}

// RateLimiter is a sliding-window limiter keyed by owner.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter from cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limit:  cfg.RunsPerMinute,
		window: time.Minute,
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one run for key, or returns ErrRateLimited when the key
// has used its budget in the current window.
func (rl *RateLimiter) Allow(key string) error {
	if rl == nil || rl.limit <= 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	evs := rl.events[key]
	i := 0
	for i < len(evs) && !evs[i].After(cutoff) {
		i++
	}
	evs = evs[i:]

	if len(evs) >= rl.limit {
		rl.events[key] = evs
		return ErrRateLimited
	}
	rl.events[key] = append(evs, now)
	return nil
}

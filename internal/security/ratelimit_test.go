package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Window(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RunsPerMinute: 2})
	rl.now = func() time.Time { return now }

	for i := range 2 {
		if err := rl.Allow("alice"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if err := rl.Allow("alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third run err = %v", err)
	}
	if err := rl.Allow("bob"); err != nil {
		t.Fatalf("other owner limited: %v", err)
	}

	now = now.Add(61 * time.Second)
	if err := rl.Allow("alice"); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	for range 1000 {
		if err := rl.Allow("alice"); err != nil {
			t.Fatal(err)
		}
	}
	var nilRL *RateLimiter
	if err := nilRL.Allow("alice"); err != nil {
		t.Fatal(err)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{RunsPerMinute: 50})
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("alice") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Fatalf("allowed = %d, want 50", allowed)
	}
}

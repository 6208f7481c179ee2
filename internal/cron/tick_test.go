package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	job := &FuncJob{
		JobName: "slow",
		Expr:    "@every 1h",
		Fn: func(context.Context) error {
			calls.Add(1)
			<-release
			return errors.New("done")
		},
	}

	var lock sync.Mutex
	s := NewScheduler(nil, nil)
	tick := s.tick(context.Background(), job, &lock)

	go tick()
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first tick did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	tick()
	close(release)

	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

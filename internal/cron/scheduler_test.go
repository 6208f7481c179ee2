package cron_test

import (
	"context"
	"testing"
	"time"

	"github.com/flemzord/crew/internal/cron"
	"github.com/flemzord/crew/internal/cron/crontest"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"*/5 * * * *", "0 9 * * 1-5", "@hourly", "@every 30m"} {
		if _, err := cron.ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q) error: %v", expr, err)
		}
	}
	for _, expr := range []string{"", "invalid", "60 * * * *", "0 25 * * *", "* * * * * *"} {
		if _, err := cron.ParseSchedule(expr); err == nil {
			t.Errorf("ParseSchedule(%q) succeeded, want error", expr)
		}
	}
}

func TestScheduler_RegisterJob(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil, nil)
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "a", ScheduleVal: "* * * * *"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "a", ScheduleVal: "* * * * *"}); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "b", ScheduleVal: "nope"}); err == nil {
		t.Fatal("invalid schedule accepted")
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Jobs() = %v", got)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil, time.Local)
	_ = s.RegisterJob(&crontest.MockJob{NameVal: "noop", ScheduleVal: "@hourly"})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("second Start() succeeded")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	job := &crontest.MockJob{
		NameVal:     "fast",
		ScheduleVal: "@every 1s",
		RunFunc: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	}
	s := cron.NewScheduler(nil, nil)
	if err := s.RegisterJob(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

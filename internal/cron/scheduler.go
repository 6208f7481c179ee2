package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates expr and returns its schedule.
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

// Scheduler runs registered jobs on their cron schedules. A job whose
// previous tick is still running skips the new tick.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	locks  map[string]*sync.Mutex
	loc    *time.Location
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler evaluating schedules in loc (nil means
// UTC). Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		loc:    loc,
		logger: logger,
	}
}

// RegisterJob adds j. Names must be unique and schedules valid.
func (s *Scheduler) RegisterJob(j Job) error {
	if _, err := ParseSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("job %q: %w", j.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locks[j.Name()]; exists {
		return fmt.Errorf("cron: duplicate job name %q", j.Name())
	}
	s.locks[j.Name()] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("cron: scheduler already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))

	for _, job := range s.jobs {
		if _, err := c.AddFunc(job.Schedule(), s.tick(ctx, job, s.locks[job.Name()])); err != nil {
			cancel()
			return fmt.Errorf("cron: job %q: %w", job.Name(), err)
		}
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

func (s *Scheduler) tick(ctx context.Context, job Job, lock *sync.Mutex) func() {
	return func() {
		if !lock.TryLock() {
			s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
			return
		}
		defer lock.Unlock()

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
			return
		}
		s.logger.Debug("cron: job completed", "job", job.Name(), "duration", time.Since(start))
	}
}

// Stop cancels running jobs and waits for them to return or for ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.cron = nil
	s.logger.Info("cron: scheduler stopped")
	return nil
}

// Package heartbeat runs scheduled check-ins: every active agent with a
// heartbeat schedule is woken by cron and runs a heartbeat invocation,
// except during its quiet hours.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flemzord/crew/internal/cron"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/team"
)

// Errors.
var (
	ErrInvalidQuiet = errors.New("heartbeat: invalid quiet hours")
	ErrMissingDeps  = errors.New("heartbeat: roster and runner are required")
)

// Runner starts heartbeat invocations.
type Runner interface {
	Heartbeat(ctx context.Context, owner, name string) (memory.Run, error)
}

// Roster is the agent lookup the service needs.
type Roster interface {
	Get(owner, name string) (team.Agent, error)
	All() []team.Agent
}

// Outcome is what a single heartbeat attempt did.
type Outcome string

// Outcome values.
const (
	OutcomeRan      Outcome = "ran"
	OutcomeFailed   Outcome = "failed"
	OutcomeQuiet    Outcome = "quiet"
	OutcomeInactive Outcome = "inactive"
)

// Result reports one agent's heartbeat.
type Result struct {
	Owner   string  `json:"owner"`
	Agent   string  `json:"agent"`
	Outcome Outcome `json:"outcome"`
	RunID   string  `json:"run_id,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Service decides when agents beat and runs them.
type Service struct {
	roster        Roster
	runner        Runner
	loc           *time.Location
	maxConcurrent int
	timeout       time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a Service from cfg.
func NewService(cfg Config, roster Roster, runner Runner, logger *slog.Logger) (*Service, error) {
	if roster == nil || runner == nil {
		return nil, ErrMissingDeps
	}
	cfg = cfg.withDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: timezone: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		roster:        roster,
		runner:        runner,
		loc:           loc,
		maxConcurrent: cfg.MaxConcurrent,
		timeout:       cfg.Timeout,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Location returns the timezone schedules and quiet hours are evaluated in.
func (s *Service) Location() *time.Location { return s.loc }

// Beat runs one heartbeat for the named agent. The agent is looked up at
// call time so status changes made since scheduling are honoured.
func (s *Service) Beat(ctx context.Context, owner, name string) Result {
	res := Result{Owner: owner, Agent: name}

	a, err := s.roster.Get(owner, name)
	if err != nil {
		res.Outcome, res.Error = OutcomeFailed, err.Error()
		return res
	}
	res.Agent = a.Name
	if !a.Active() {
		res.Outcome = OutcomeInactive
		return res
	}
	if a.QuietHours != "" {
		q, err := ParseQuietHours(a.QuietHours)
		if err != nil {
			res.Outcome, res.Error = OutcomeFailed, err.Error()
			return res
		}
		if q.Contains(s.now().In(s.loc)) {
			s.logger.Debug("heartbeat skipped: quiet hours", "owner", owner, "agent", a.Name)
			res.Outcome = OutcomeQuiet
			return res
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run, err := s.runner.Heartbeat(ctx, owner, a.Name)
	res.RunID = run.ID
	if err != nil {
		res.Outcome, res.Error = OutcomeFailed, err.Error()
		return res
	}
	res.Outcome = OutcomeRan
	return res
}

// RunAll beats every agent that has a heartbeat schedule, at most
// MaxConcurrent at a time. Results follow roster order.
func (s *Service) RunAll(ctx context.Context) []Result {
	agents := scheduled(s.roster.All())
	results := make([]Result, len(agents))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, a := range agents {
		g.Go(func() error {
			results[i] = s.Beat(ctx, a.Owner, a.Name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Jobs returns one cron job per agent with a heartbeat schedule.
func (s *Service) Jobs() []cron.Job {
	agents := scheduled(s.roster.All())
	jobs := make([]cron.Job, 0, len(agents))
	for _, a := range agents {
		owner, name := a.Owner, a.Name
		jobs = append(jobs, &cron.FuncJob{
			JobName: "heartbeat:" + owner + "/" + name,
			Expr:    a.Heartbeat,
			Fn: func(ctx context.Context) error {
				res := s.Beat(ctx, owner, name)
				if res.Outcome == OutcomeFailed {
					return fmt.Errorf("heartbeat %s/%s: %s", owner, name, res.Error)
				}
				return nil
			},
		})
	}
	return jobs
}

func scheduled(agents []team.Agent) []team.Agent {
	out := agents[:0:0]
	for _, a := range agents {
		if a.Heartbeat != "" {
			out = append(out, a)
		}
	}
	return out
}

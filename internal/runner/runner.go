// Package runner turns an agent name and a request into one tool-use loop
// invocation: it unseals the agent's key, resolves its tools, runs the
// loop and persists the outcome as a run record.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/delegate"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool"
)

// heartbeatMemoryTail is how many memory entries seed a heartbeat prompt.
const heartbeatMemoryTail = 10

// Roster is the agent lookup the runner needs.
type Roster interface {
	Get(owner, name string) (team.Agent, error)
	Names(owner string) []string
}

// Options carries the optional collaborators of a Runner.
type Options struct {
	// Memory seeds heartbeat prompts. Nil means heartbeats start empty.
	Memory memory.Log

	// Keyring opens "enc:" credentials. Nil rejects sealed keys.
	Keyring *security.Keyring

	// Redactor learns every unsealed key so it never reaches logs.
	Redactor *security.Redactor

	Audit  *security.AuditLogger
	Logger *slog.Logger

	// Delegation configures the delegate_to_agent tool.
	Delegation delegate.Config

	Now func() time.Time
}

// Runner runs agents. It is safe for concurrent use.
type Runner struct {
	roster   Roster
	registry *tool.Registry
	loop     *agent.Loop
	runs     memory.RunStore
	memory   memory.Log
	keyring  *security.Keyring
	redactor *security.Redactor
	audit    *security.AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Runner and registers the delegation tool on registry.
func New(roster Roster, registry *tool.Registry, loop *agent.Loop, runs memory.RunStore, opts Options) (*Runner, error) {
	r := &Runner{
		roster:   roster,
		registry: registry,
		loop:     loop,
		runs:     runs,
		memory:   opts.Memory,
		keyring:  opts.Keyring,
		redactor: opts.Redactor,
		audit:    opts.Audit,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if err := registry.Register(delegate.ToolName, delegate.Factory(roster, r, opts.Delegation)); err != nil {
		return nil, fmt.Errorf("runner: register delegation: %w", err)
	}
	return r, nil
}

type invocation struct {
	owner   string
	name    string
	mode    memory.Mode
	history []provider.Message
	depth   int
	obs     agent.Observer
}

// Chat runs the agent on caller-supplied history.
func (r *Runner) Chat(ctx context.Context, owner, name string, history []provider.Message, obs agent.Observer) (memory.Run, error) {
	if len(history) == 0 {
		return memory.Run{}, ErrEmptyHistory
	}
	for i, m := range history {
		if m.Role != provider.RoleUser && m.Role != provider.RoleAssistant {
			return memory.Run{}, fmt.Errorf("%w: messages[%d] has role %q", ErrInvalidRole, i, m.Role)
		}
	}
	return r.run(ctx, invocation{owner: owner, name: name, mode: memory.ModeChat, history: history, obs: obs})
}

// Task runs the agent on a single seeded message describing a task.
func (r *Runner) Task(ctx context.Context, owner, name, title, description string, obs agent.Observer) (memory.Run, error) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		return memory.Run{}, ErrEmptyTask
	}
	return r.run(ctx, invocation{
		owner:   owner,
		name:    name,
		mode:    memory.ModeTask,
		history: []provider.Message{{Role: provider.RoleUser, Content: taskPrompt(title, description)}},
		obs:     obs,
	})
}

// Heartbeat runs the agent's scheduled check-in, seeded with the current
// UTC time and the tail of its memory.
func (r *Runner) Heartbeat(ctx context.Context, owner, name string) (memory.Run, error) {
	var recent []memory.Entry
	if r.memory != nil {
		entries, err := r.memory.Tail(ctx, owner, name, heartbeatMemoryTail)
		if err != nil {
			r.logger.Warn("heartbeat memory unavailable", "owner", owner, "agent", name, "error", err)
		}
		recent = entries
	}
	return r.run(ctx, invocation{
		owner:   owner,
		name:    name,
		mode:    memory.ModeHeartbeat,
		history: []provider.Message{{Role: provider.RoleUser, Content: heartbeatPrompt(r.now(), recent)}},
	})
}

// Delegate runs target on behalf of caller at the given depth and returns
// the final text. It backs the delegate_to_agent tool.
func (r *Runner) Delegate(ctx context.Context, owner, caller, target, message string, depth int) (string, error) {
	r.audit.Log(security.AuditEvent{
		Type:     security.EventDelegation,
		Owner:    owner,
		Agent:    caller,
		Detail:   message,
		Metadata: map[string]string{"target": target, "depth": strconv.Itoa(depth)},
	})

	run, err := r.run(ctx, invocation{
		owner:   owner,
		name:    target,
		mode:    memory.ModeDelegate,
		history: []provider.Message{{Role: provider.RoleUser, Content: delegatePrompt(caller, message)}},
		depth:   depth,
	})
	if err != nil {
		return "", err
	}
	return run.Text, nil
}

// run executes and persists one invocation. Lookup failures return before
// any record exists; once the agent is known, every outcome is saved.
func (r *Runner) run(ctx context.Context, inv invocation) (memory.Run, error) {
	a, err := r.roster.Get(inv.owner, inv.name)
	if err != nil {
		return memory.Run{}, err
	}
	if !a.Active() {
		return memory.Run{}, fmt.Errorf("%w: %s is %s", ErrAgentInactive, a.Name, a.Status)
	}

	run := memory.Run{
		ID:        uuid.NewString(),
		Owner:     inv.owner,
		Agent:     a.Name,
		Mode:      inv.mode,
		Model:     a.Model,
		ToolCalls: []agent.ToolCallRecord{},
		StartedAt: r.now().UTC(),
	}
	r.audit.Log(security.AuditEvent{
		Type:     security.EventRunStart,
		RunID:    run.ID,
		Owner:    run.Owner,
		Agent:    run.Agent,
		Metadata: map[string]string{"mode": string(run.Mode), "model": run.Model},
	})

	res, err := r.invoke(ctx, a, inv, &run)
	run.FinishedAt = r.now().UTC()
	if err != nil {
		run.Err = err.Error()
		run.Text = "Error: " + err.Error()
	} else {
		run.Text = res.Text
		run.ToolCalls = res.ToolCalls
	}

	r.finish(ctx, run, res)
	return run, err
}

// invoke unseals the key, resolves tools and runs the loop. Tool calls
// completed before a provider failure are kept in run via the observer.
func (r *Runner) invoke(ctx context.Context, a team.Agent, inv invocation, run *memory.Run) (agent.Result, error) {
	apiKey, err := r.keyring.Open(a.APIKey)
	if err != nil {
		r.audit.Log(security.AuditEvent{Type: security.EventCredential, RunID: run.ID, Owner: run.Owner, Agent: run.Agent, Detail: err.Error()})
		return agent.Result{}, fmt.Errorf("%w for %s: %w", ErrCredentials, a.Name, err)
	}
	if security.IsSealed(a.APIKey) && r.redactor != nil {
		r.redactor.AddLiteral(apiKey)
	}

	tools := r.registry.Resolve(a.Tools, tool.Runtime{Owner: inv.owner, Agent: a.Name, Depth: inv.depth})

	obs := func(e agent.Event) {
		if e.Type == agent.EventToolEnd && e.Tool != nil {
			run.ToolCalls = append(run.ToolCalls, *e.Tool)
		}
		if inv.obs != nil {
			inv.obs(e)
		}
	}

	return r.loop.Run(ctx, agent.Request{
		APIKey:       apiKey,
		Model:        a.Model,
		SystemPrompt: systemPrompt(a, r.roster.Names(inv.owner), hasTool(tools, delegate.ToolName)),
		History:      inv.history,
		Tools:        tools,
	}, obs)
}

func (r *Runner) finish(ctx context.Context, run memory.Run, res agent.Result) {
	// Persist even when the caller's context is already cancelled.
	if err := r.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Error("saving run failed", "run", run.ID, "agent", run.Agent, "error", err)
	}

	r.audit.Log(security.AuditEvent{
		Type:   security.EventRunFinish,
		RunID:  run.ID,
		Owner:  run.Owner,
		Agent:  run.Agent,
		Detail: run.Err,
		Metadata: map[string]string{
			"mode":       string(run.Mode),
			"tool_calls": strconv.Itoa(len(run.ToolCalls)),
		},
	})

	attrs := []any{
		"run", run.ID,
		"owner", run.Owner,
		"agent", run.Agent,
		"mode", run.Mode,
		"model", run.Model,
		"tool_calls", len(run.ToolCalls),
		"duration", run.FinishedAt.Sub(run.StartedAt),
	}
	if run.Failed() {
		r.logger.Error("run failed", append(attrs, "error", run.Err)...)
		return
	}
	r.logger.Info("run complete", append(attrs, "iterations", res.Iterations, "stop_reason", res.StopReason)...)
}

func hasTool(tools []tool.Tool, name string) bool {
	for _, t := range tools {
		if t.Name() == name {
			return true
		}
	}
	return false
}

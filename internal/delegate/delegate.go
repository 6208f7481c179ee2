// Package delegate implements the delegate_to_agent tool, which runs
// another agent of the same owner through a nested tool-use loop and
// returns its final text.
package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool"
)

// ToolName is the name the model uses to call the delegation tool.
const ToolName = "delegate_to_agent"

// DefaultMaxDepth is the delegation depth at which the tool refuses.
const DefaultMaxDepth = 3

// Roster resolves delegation targets.
type Roster interface {
	Get(owner, name string) (team.Agent, error)
	Names(owner string) []string
}

// Runner runs a nested loop for target at the given depth and returns its
// final text.
type Runner interface {
	Delegate(ctx context.Context, owner, caller, target, message string, depth int) (string, error)
}

// Config configures the delegation tool.
type Config struct {
	// MaxDepth is the depth ceiling; zero uses DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth"`
}

type args struct {
	AgentName string `json:"agent_name"`
	Message   string `json:"message"`
}

var schema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "agent_name": {"type": "string", "description": "Name of the teammate to delegate to."},
    "message": {"type": "string", "description": "The request or task for the teammate."}
  },
  "required": ["agent_name", "message"]
}`)

// Factory returns a tool.Factory binding the delegation tool to each
// invocation's owner, caller and depth.
func Factory(roster Roster, runner Runner, cfg Config) tool.Factory {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return func(rt tool.Runtime) tool.Tool {
		return &delegateTool{rt: rt, roster: roster, runner: runner, maxDepth: cfg.MaxDepth}
	}
}

type delegateTool struct {
	rt       tool.Runtime
	roster   Roster
	runner   Runner
	maxDepth int
}

func (d *delegateTool) Name() string { return ToolName }

func (d *delegateTool) Description() string {
	return "Delegate a request to another agent on your team and get back its answer. " +
		"Use it when a teammate is better suited for part of the work."
}

func (d *delegateTool) Schema() json.RawMessage { return schema }

// Execute resolves the target and runs it one level deeper. Every refusal
// is returned as text for the model; only a failing nested run yields an
// error, which the registry also turns into text.
func (d *delegateTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	if d.rt.Depth >= d.maxDepth {
		return fmt.Sprintf("Error: maximum delegation depth (%d) reached. Complete this task yourself instead of delegating.", d.maxDepth), nil
	}

	var a args
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	name := strings.TrimSpace(a.AgentName)
	if name == "" || strings.TrimSpace(a.Message) == "" {
		return "Error: both agent_name and message are required.", nil
	}

	if strings.EqualFold(name, d.rt.Agent) {
		return "Error: you cannot delegate to yourself. Choose a different teammate or handle the task directly.", nil
	}

	target, err := d.roster.Get(d.rt.Owner, name)
	if errors.Is(err, team.ErrAgentNotFound) {
		return fmt.Sprintf("Error: agent %q not found. Available agents: %s", name, d.available()), nil
	}
	if err != nil {
		return "", err
	}
	if !target.Active() {
		return fmt.Sprintf("Error: agent %q is %s and cannot accept delegated work.", target.Name, target.Status), nil
	}

	text, err := d.runner.Delegate(ctx, d.rt.Owner, d.rt.Agent, target.Name, a.Message, d.rt.Depth+1)
	if err != nil {
		return "", fmt.Errorf("delegation to %s failed: %w", target.Name, err)
	}
	return text, nil
}

func (d *delegateTool) available() string {
	var names []string
	for _, n := range d.roster.Names(d.rt.Owner) {
		if !strings.EqualFold(n, d.rt.Agent) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

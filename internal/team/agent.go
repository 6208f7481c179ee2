// Package team holds the agent roster: each owner's agents with their
// persona, model, credentials and tool set, looked up case-insensitively.
package team

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status is the lifecycle state of an agent.
type Status string

// Status values. Only active agents can be run or delegated to.
const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Agent is one configured worker.
type Agent struct {
	Name    string `yaml:"-" json:"name"`
	Owner   string `yaml:"owner" json:"owner"`
	Persona string `yaml:"persona" json:"persona"`
	Model   string `yaml:"model" json:"model"`

	// APIKey is a raw provider key or an "enc:"-prefixed sealed key.
	APIKey string `yaml:"api_key" json:"-"`

	// Tools lists tool names and skill-pack names.
	Tools  []string `yaml:"tools" json:"tools"`
	Status Status   `yaml:"status" json:"status"`

	// Heartbeat is a cron expression; empty disables scheduled runs.
	Heartbeat  string `yaml:"heartbeat" json:"heartbeat,omitempty"`
	QuietHours string `yaml:"quiet_hours" json:"quiet_hours,omitempty"`

	// Workspace is the directory the file tools are confined to.
	Workspace string `yaml:"workspace" json:"-"`
}

// Active reports whether the agent can be run.
func (a Agent) Active() bool {
	return a.Status == StatusActive
}

// ParseAgents decodes the raw YAML nodes of the "agents:" section. Names
// are returned sorted for deterministic ordering, since YAML map order is
// lost in decoding.
func ParseAgents(nodes map[string]yaml.Node) ([]Agent, error) {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	slices.Sort(names)

	agents := make([]Agent, 0, len(names))
	for _, name := range names {
		node := nodes[name]
		var a Agent
		if err := node.Decode(&a); err != nil {
			return nil, fmt.Errorf("team: parsing agent %q: %w", name, err)
		}
		a.Name = name
		agents = append(agents, a)
	}
	return agents, nil
}

// ResolveDefaults fills zero-valued fields with computed defaults.
func ResolveDefaults(agents []Agent, defaultOwner, workspaceRoot string) {
	for i := range agents {
		a := &agents[i]
		if a.Owner == "" {
			a.Owner = defaultOwner
		}
		if a.Status == "" {
			a.Status = StatusActive
		}
		if a.Workspace == "" && workspaceRoot != "" {
			a.Workspace = filepath.Join(workspaceRoot, a.Owner, strings.ToLower(a.Name))
		}
	}
}

// Validate checks that an agent is complete.
func (a Agent) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidAgent)
	case a.Owner == "":
		return fmt.Errorf("%w: %s: owner is required", ErrInvalidAgent, a.Name)
	case a.Model == "":
		return fmt.Errorf("%w: %s: model is required", ErrInvalidAgent, a.Name)
	}
	switch a.Status {
	case StatusActive, StatusPaused, StatusArchived:
	default:
		return fmt.Errorf("%w: %s: unknown status %q", ErrInvalidAgent, a.Name, a.Status)
	}
	return nil
}

// EnsureWorkspaces creates the workspace directory for each agent.
func EnsureWorkspaces(agents []Agent) error {
	for _, a := range agents {
		if a.Workspace == "" {
			continue
		}
		if err := os.MkdirAll(a.Workspace, 0o750); err != nil {
			return fmt.Errorf("team: create workspace for agent %q: %w", a.Name, err)
		}
	}
	return nil
}

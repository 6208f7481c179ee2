package config

import (
	"path/filepath"

	"github.com/flemzord/crew/internal/team"
)

// DefaultOwner is assigned to agents when neither the agent nor the
// top-level owner key names one.
const DefaultOwner = "default"

// ResolvedDataDir returns DataDir or its default.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}

// ResolvedWorkspace returns Workspace or <data_dir>/workspaces.
func (c *Config) ResolvedWorkspace() string {
	if c.Workspace != "" {
		return c.Workspace
	}
	return filepath.Join(c.ResolvedDataDir(), "workspaces")
}

// ResolvedOwner returns Owner or DefaultOwner.
func (c *Config) ResolvedOwner() string {
	if c.Owner != "" {
		return c.Owner
	}
	return DefaultOwner
}

// TeamAgents decodes the agents section and fills owner, status and
// workspace defaults. It does not validate the result.
func (c *Config) TeamAgents() ([]team.Agent, error) {
	agents, err := team.ParseAgents(c.Agents)
	if err != nil {
		return nil, err
	}
	team.ResolveDefaults(agents, c.ResolvedOwner(), c.ResolvedWorkspace())
	return agents, nil
}

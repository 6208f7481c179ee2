package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/team"
)

// Roster is replaced wholesale on reload. *team.Roster implements it.
type Roster interface {
	Replace(agents []team.Agent) error
}

// Skills receives the configured skill packs. *tool.Registry implements it.
type Skills interface {
	DefineSkill(name string, tools []string) error
}

// Handler applies a configuration file to a running process. Modules and
// heartbeat schedules are fixed at start; agents and skill packs are not.
type Handler struct {
	path   string
	roster Roster
	skills Skills
	logger *slog.Logger
}

// NewHandler creates a reload handler for the configuration at path.
func NewHandler(path string, roster Roster, skills Skills, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{path: path, roster: roster, skills: skills, logger: logger}
}

// Reload loads and validates the file, then swaps in the new roster and
// skill packs. An invalid file leaves the running state untouched.
func (h *Handler) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	cfg, err := config.Load(h.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	agents, err := cfg.TeamAgents()
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := team.EnsureWorkspaces(agents); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := h.roster.Replace(agents); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	for name, tools := range cfg.Skills {
		if err := h.skills.DefineSkill(name, tools); err != nil {
			return fmt.Errorf("reload: skill %q: %w", name, err)
		}
	}

	h.logger.Info("configuration reloaded", "path", h.path, "agents", len(agents), "skills", len(cfg.Skills))
	return nil
}

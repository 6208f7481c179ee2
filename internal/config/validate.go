package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/cron"
	"github.com/flemzord/crew/internal/heartbeat"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/security"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, checks that all referenced module IDs
// exist in the registry, and validates agents, skill packs and security
// settings. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if len(cfg.Agents) == 0 {
		errs = append(errs, errors.New("config: at least one agent must be defined"))
	} else {
		errs = append(errs, validateAgents(cfg)...)
	}

	errs = append(errs, validateSkills(cfg.Skills)...)
	errs = append(errs, validateSecurity(cfg.Security)...)
	errs = append(errs, validateLog(cfg.Log)...)

	if r := cfg.Telemetry.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.sample_ratio %v out of range [0,1]", r))
	}
	if cfg.Loop.MaxIterations < 0 {
		errs = append(errs, errors.New("config: loop.max_iterations must not be negative"))
	}

	return errors.Join(errs...)
}

// validateAgents checks every agent definition, its heartbeat schedule and
// quiet hours, and that its model maps to a registered provider module.
func validateAgents(cfg *Config) []error {
	agents, err := cfg.TeamAgents()
	if err != nil {
		return []error{fmt.Errorf("config: %w", err)}
	}

	var errs []error
	for _, a := range agents {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: %w", err))
			continue
		}
		if a.Heartbeat != "" {
			if _, err := cron.ParseSchedule(a.Heartbeat); err != nil {
				errs = append(errs, fmt.Errorf("config: agent %q: heartbeat: %w", a.Name, err))
			}
		}
		if a.QuietHours != "" {
			if _, err := heartbeat.ParseQuietHours(a.QuietHours); err != nil {
				errs = append(errs, fmt.Errorf("config: agent %q: quiet_hours: %w", a.Name, err))
			}
		}
		moduleID := "provider." + string(provider.KindForModel(a.Model))
		if _, ok := core.GetModule(moduleID); !ok {
			errs = append(errs, fmt.Errorf("config: agent %q: model %q needs module %q, which is not compiled in", a.Name, a.Model, moduleID))
		}
	}
	return errs
}

func validateSkills(skills map[string][]string) []error {
	var errs []error
	for name, tools := range skills {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("config: skills: empty pack name"))
			continue
		}
		if len(tools) == 0 {
			errs = append(errs, fmt.Errorf("config: skills.%s: at least one tool is required", name))
		}
		for i, t := range tools {
			if strings.TrimSpace(t) == "" {
				errs = append(errs, fmt.Errorf("config: skills.%s[%d]: empty tool name", name, i))
			}
		}
	}
	return errs
}

func validateSecurity(sec SecurityConfig) []error {
	var errs []error

	if sec.KeyringKey != "" {
		if _, err := security.ParseKeyring(sec.KeyringKey); err != nil {
			errs = append(errs, fmt.Errorf("config: security.keyring_key: %w", err))
		}
	}
	if sec.RateLimit.RunsPerMinute < 0 {
		errs = append(errs, errors.New("config: security.rate_limit.runs_per_minute must not be negative"))
	}
	for i, expr := range sec.Redact {
		if _, err := regexp.Compile(expr); err != nil {
			errs = append(errs, fmt.Errorf("config: security.redact[%d]: %w", i, err))
		}
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q must be debug, info, warn or error", l.Level))
	}
	switch l.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", l.Format))
	}
	return errs
}

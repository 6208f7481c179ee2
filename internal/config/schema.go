// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for crew.
package config

import (
	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/delegate"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/telemetry"
	"github.com/flemzord/crew/internal/tool/builtin"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds module data such as the sqlite database.
	// Default "$XDG_DATA_HOME/crew".
	DataDir string `yaml:"data_dir,omitempty"`

	// Workspace is the root of per-agent file workspaces.
	// Default "<data_dir>/workspaces".
	Workspace string `yaml:"workspace,omitempty"`

	// Owner is assigned to agents that do not name one.
	Owner string `yaml:"owner,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "gateway.http").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Agents maps agent names to their raw definitions, decoded by the
	// team package.
	Agents map[string]yaml.Node `yaml:"agents"`

	// Skills adds or replaces skill packs on top of the built-in ones.
	Skills map[string][]string `yaml:"skills,omitempty"`

	Loop      agent.LoopConfig `yaml:"loop,omitempty"`
	Tools     ToolsConfig      `yaml:"tools,omitempty"`
	Security  SecurityConfig   `yaml:"security,omitempty"`
	Log       LogConfig        `yaml:"log,omitempty"`
	Telemetry TelemetryConfig  `yaml:"telemetry,omitempty"`
}

// ToolsConfig configures the built-in tools.
type ToolsConfig struct {
	Search     builtin.SearchConfig `yaml:"web_search"`
	Delegation delegate.Config      `yaml:"delegation"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	URLFilter security.URLFilterConfig `yaml:"url_filter"`

	// KeyringKey is the 32-byte key, hex or base64, that opens "enc:"
	// agent credentials.
	KeyringKey string `yaml:"keyring_key"`

	RateLimit security.RateLimitConfig `yaml:"rate_limit"`

	// Redact lists extra regular expressions scrubbed from logs.
	Redact []string `yaml:"redact,omitempty"`

	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the JSONL file events are appended to. Empty writes them to
	// the logger's stream.
	Path string `yaml:"path,omitempty"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Default text.
	Format string `yaml:"format"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	Tracing telemetry.TracingConfig `yaml:"tracing"`
}

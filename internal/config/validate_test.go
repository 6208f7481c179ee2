package config

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/core"
	_ "github.com/flemzord/crew/modules/provider/anthropic"
	_ "github.com/flemzord/crew/modules/provider/google"
	_ "github.com/flemzord/crew/modules/provider/openai"
)

// stubModule is a basic module for testing.
type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func registerStub(t *testing.T, id string) {
	t.Helper()
	core.RegisterModule(&stubModule{id: id})
}

func mustParse(t *testing.T, src string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

const validConfig = `
version: "1"
owner: alice
agents:
  Scout:
    model: gpt-4o
    api_key: sk-test
    tools: [research, memory]
    heartbeat: "0 9 * * 1-5"
    quiet_hours: "22:00-07:00"
  Writer:
    model: claude-sonnet-4
    api_key: sk-ant-test
  Gem:
    model: gemini-2.0-flash
    api_key: AIza-test
skills:
  writing: [file_read, file_write]
`

func TestValidate_Valid(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)

	cfg := mustParse(t, validConfig)
	cfg.Modules = map[string]yaml.Node{id: {}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "missing version",
			src:  "agents: {a: {model: gpt-4o}}",
			want: []string{"version field is required"},
		},
		{
			name: "unsupported version",
			src:  `{version: "99", agents: {a: {model: gpt-4o}}}`,
			want: []string{"unsupported"},
		},
		{
			name: "no agents",
			src:  `version: "1"`,
			want: []string{"at least one agent"},
		},
		{
			name: "unknown modules",
			src:  `{version: "1", modules: {bad.one: {}, bad.two: {}}, agents: {a: {model: gpt-4o}}}`,
			want: []string{`"bad.one"`, `"bad.two"`},
		},
		{
			name: "agent without model",
			src:  `{version: "1", agents: {a: {persona: hi}}}`,
			want: []string{"model is required"},
		},
		{
			name: "bad status",
			src:  `{version: "1", agents: {a: {model: gpt-4o, status: sleeping}}}`,
			want: []string{"unknown status"},
		},
		{
			name: "bad heartbeat and quiet hours",
			src:  `{version: "1", agents: {a: {model: gpt-4o, heartbeat: "every tuesday", quiet_hours: "25:00-07:00"}}}`,
			want: []string{"heartbeat", "quiet_hours"},
		},
		{
			name: "empty skill pack",
			src:  `{version: "1", agents: {a: {model: gpt-4o}}, skills: {empty: []}}`,
			want: []string{"skills.empty"},
		},
		{
			name: "bad keyring key",
			src:  `{version: "1", agents: {a: {model: gpt-4o}}, security: {keyring_key: "short"}}`,
			want: []string{"keyring_key"},
		},
		{
			name: "bad redact pattern",
			src:  `{version: "1", agents: {a: {model: gpt-4o}}, security: {redact: ["("]}}`,
			want: []string{"security.redact[0]"},
		},
		{
			name: "bad log settings",
			src:  `{version: "1", agents: {a: {model: gpt-4o}}, log: {level: loud, format: xml}}`,
			want: []string{"log.level", "log.format"},
		},
		{
			name: "sample ratio out of range",
			src:  `{version: "1", agents: {a: {model: gpt-4o}}, telemetry: {tracing: {sample_ratio: 2}}}`,
			want: []string{"sample_ratio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(mustParse(t, tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error should mention %q: %v", w, err)
				}
			}
		})
	}
}

func TestValidate_ReportsEveryAgent(t *testing.T) {
	cfg := mustParse(t, `
version: "1"
agents:
  one: {persona: x}
  two: {persona: y}
`)
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "one") || !strings.Contains(err.Error(), "two") {
		t.Errorf("error should mention both agents: %v", err)
	}
}

func TestTeamAgents_Defaults(t *testing.T) {
	t.Parallel()

	cfg := mustParse(t, `
version: "1"
workspace: /srv/crew
agents:
  Scout: {model: gpt-4o}
  Writer: {model: gpt-4o, owner: bob, status: paused}
`)
	agents, err := cfg.TeamAgents()
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(agents))
	}
	scout, writer := agents[0], agents[1]
	if scout.Owner != DefaultOwner || scout.Status != "active" {
		t.Errorf("scout = %+v", scout)
	}
	if scout.Workspace != "/srv/crew/default/scout" {
		t.Errorf("scout workspace = %q", scout.Workspace)
	}
	if writer.Owner != "bob" || writer.Status != "paused" {
		t.Errorf("writer = %+v", writer)
	}
}

func TestResolve_FoundationFirst(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{
		"heartbeat":          {},
		"provider.openai":    {},
		"gateway.http":       {},
		"memory.sqlite":      {},
		"provider.anthropic": {},
	}}
	base, rest := Resolve(cfg)

	wantBase := []string{"memory.sqlite", "provider.anthropic", "provider.openai"}
	wantRest := []string{"gateway.http", "heartbeat"}
	if strings.Join(base, ",") != strings.Join(wantBase, ",") {
		t.Errorf("base = %v, want %v", base, wantBase)
	}
	if strings.Join(rest, ",") != strings.Join(wantRest, ",") {
		t.Errorf("rest = %v, want %v", rest, wantRest)
	}
}

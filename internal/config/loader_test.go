package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CREW_TEST_KEY", "sk-from-env")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{"set variable", "key: ${CREW_TEST_KEY}", "key: sk-from-env", ""},
		{"default unused", "key: ${CREW_TEST_KEY:-fallback}", "key: sk-from-env", ""},
		{"default used", "bind: ${CREW_TEST_UNSET:-127.0.0.1:9000}", "bind: 127.0.0.1:9000", ""},
		{"empty default", "key: '${CREW_TEST_UNSET:-}'", "key: ''", ""},
		{"unresolved", "a: ${CREW_TEST_MISSING_A}\nb: ${CREW_TEST_MISSING_B}", "", "CREW_TEST_MISSING_B"},
		{"no variables", "plain: value", "plain: value", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnv([]byte(tt.in))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CREW_TEST_OPENAI", "sk-loaded")

	path := filepath.Join(t.TempDir(), FileName)
	src := `
version: "1"
agents:
  Scout:
    model: gpt-4o
    api_key: ${CREW_TEST_OPENAI}
security:
  rate_limit:
    runs_per_minute: 30
  url_filter:
    deny_domains: [example.org]
loop:
  max_iterations: 6
tools:
  delegation:
    max_depth: 2
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	agents, err := cfg.TeamAgents()
	if err != nil {
		t.Fatal(err)
	}
	if agents[0].APIKey != "sk-loaded" {
		t.Errorf("api_key = %q, want expanded value", agents[0].APIKey)
	}
	if cfg.Security.RateLimit.RunsPerMinute != 30 || len(cfg.Security.URLFilter.DenyDomains) != 1 {
		t.Errorf("security = %+v", cfg.Security)
	}
	if cfg.Loop.MaxIterations != 6 || cfg.Tools.Delegation.MaxDepth != 2 {
		t.Errorf("loop = %+v, delegation = %+v", cfg.Loop, cfg.Tools.Delegation)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFind(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if p, err := Find("/explicit/crew.yaml"); err != nil || p != "/explicit/crew.yaml" {
		t.Errorf("explicit = %q, %v", p, err)
	}
	if _, err := Find(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty search err = %v, want ErrNotFound", err)
	}

	if err := os.WriteFile(FileName, []byte(`version: "1"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if p, err := Find(""); err != nil || p != FileName {
		t.Errorf("local = %q, %v", p, err)
	}

	xdg := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "crew")
	if err := os.MkdirAll(xdg, 0o750); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(xdg, FileName)
	if err := os.WriteFile(want, []byte(`version: "1"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if p, err := Find(""); err != nil || p != want {
		t.Errorf("xdg = %q, %v; want %q", p, err, want)
	}
}

package team

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

func agentFixture(owner, name string) Agent {
	return Agent{Name: name, Owner: owner, Model: "gpt-4o", Status: StatusActive}
}

func TestParseAgents(t *testing.T) {
	t.Parallel()

	var doc map[string]yaml.Node
	src := `
writer:
  owner: alice
  model: claude-sonnet-4-5
  tools: [research]
Scout:
  model: gpt-4o
  heartbeat: "*/30 * * * *"
`
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	agents, err := ParseAgents(doc)
	if err != nil {
		t.Fatalf("ParseAgents() error: %v", err)
	}
	if len(agents) != 2 || agents[0].Name != "Scout" || agents[1].Name != "writer" {
		t.Fatalf("agents = %+v", agents)
	}

	root := t.TempDir()
	ResolveDefaults(agents, "local", root)
	if agents[0].Owner != "local" || agents[0].Status != StatusActive {
		t.Fatalf("defaults not applied: %+v", agents[0])
	}
	if agents[0].Workspace != filepath.Join(root, "local", "scout") {
		t.Fatalf("workspace = %q", agents[0].Workspace)
	}
	if err := EnsureWorkspaces(agents); err != nil {
		t.Fatalf("EnsureWorkspaces() error: %v", err)
	}
}

func TestAgentValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		agent Agent
		ok    bool
	}{
		{"valid", agentFixture("u", "a"), true},
		{"no model", Agent{Name: "a", Owner: "u", Status: StatusActive}, false},
		{"no owner", Agent{Name: "a", Model: "m", Status: StatusActive}, false},
		{"bad status", Agent{Name: "a", Owner: "u", Model: "m", Status: "sleeping"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.agent.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidAgent) {
				t.Fatalf("expected ErrInvalidAgent, got %v", err)
			}
		})
	}
}

func TestRoster_CaseInsensitive(t *testing.T) {
	t.Parallel()

	r, err := NewRoster([]Agent{agentFixture("u", "Scout"), agentFixture("u", "writer"), agentFixture("v", "scout")})
	if err != nil {
		t.Fatalf("NewRoster() error: %v", err)
	}

	a, err := r.Get("u", "SCOUT")
	if err != nil || a.Name != "Scout" {
		t.Fatalf("Get() = %+v, %v", a, err)
	}
	if _, err := r.Get("u", "ghost"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if got := r.Names("u"); !slices.Equal(got, []string{"Scout", "writer"}) {
		t.Fatalf("Names() = %v", got)
	}
	if len(r.All()) != 3 {
		t.Fatalf("All() = %d agents", len(r.All()))
	}
}

func TestRoster_Duplicate(t *testing.T) {
	t.Parallel()

	_, err := NewRoster([]Agent{agentFixture("u", "a"), agentFixture("u", "A")})
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestRoster_SetStatus(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster([]Agent{agentFixture("u", "a")})
	a, err := r.SetStatus("u", "a", StatusPaused)
	if err != nil || a.Active() {
		t.Fatalf("SetStatus() = %+v, %v", a, err)
	}
	if _, err := r.SetStatus("u", "a", "bogus"); !errors.Is(err, ErrInvalidAgent) {
		t.Fatalf("expected ErrInvalidAgent, got %v", err)
	}
	if got, _ := r.Get("u", "a"); got.Status != StatusPaused {
		t.Fatalf("status = %q after rejected update", got.Status)
	}
}

func TestRoster_Replace(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster([]Agent{agentFixture("u", "a"), agentFixture("u", "b")})

	if err := r.Replace([]Agent{agentFixture("u", "c"), agentFixture("u", "C")}); !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
	if got := r.Names("u"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("names after rejected replace = %v", got)
	}

	if err := r.Replace([]Agent{agentFixture("u", "c")}); err != nil {
		t.Fatal(err)
	}
	if got := r.Names("u"); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("names = %v, want [c]", got)
	}
	if _, err := r.Get("u", "a"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("removed agent still present: %v", err)
	}
}

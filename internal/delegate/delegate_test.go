package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool"
)

type call struct {
	owner, caller, target, message string
	depth                          int
}

type mockRunner struct {
	mu    sync.Mutex
	calls []call
	text  string
	err   error
}

func (m *mockRunner) Delegate(_ context.Context, owner, caller, target, message string, depth int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{owner, caller, target, message, depth})
	return m.text, m.err
}

func (m *mockRunner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newRoster(t *testing.T) *team.Roster {
	t.Helper()
	r, err := team.NewRoster([]team.Agent{
		{Name: "Scout", Owner: "u", Model: "gpt-4o", Status: team.StatusActive},
		{Name: "Writer", Owner: "u", Model: "claude-x", Status: team.StatusActive},
		{Name: "Sleeper", Owner: "u", Model: "gpt-4o", Status: team.StatusPaused},
		{Name: "Stranger", Owner: "other", Model: "gpt-4o", Status: team.StatusActive},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func exec(t *testing.T, f tool.Factory, rt tool.Runtime, target, msg string) string {
	t.Helper()
	raw, _ := json.Marshal(args{AgentName: target, Message: msg})
	out, err := f(rt).Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	return out
}

func TestDelegate_Success(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{text: "draft ready"}
	f := Factory(newRoster(t), runner, Config{})

	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout", Depth: 0}, "writer", "write it")
	if out != "draft ready" {
		t.Fatalf("out = %q", out)
	}
	if runner.count() != 1 {
		t.Fatalf("runner calls = %d", runner.count())
	}
	c := runner.calls[0]
	if c.target != "Writer" || c.caller != "Scout" || c.depth != 1 || c.message != "write it" {
		t.Fatalf("call = %+v", c)
	}
}

func TestDelegate_DepthCeiling(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{text: "never"}
	f := Factory(newRoster(t), runner, Config{})

	for _, target := range []string{"Writer", "ghost", "Scout", ""} {
		out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout", Depth: 3}, target, "x")
		if !strings.Contains(out, "maximum delegation depth (3)") {
			t.Fatalf("target %q: out = %q", target, out)
		}
	}
	if runner.count() != 0 {
		t.Fatalf("nested runs = %d, want 0", runner.count())
	}
}

func TestDelegate_DepthBelowCeiling(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{text: "ok"}
	f := Factory(newRoster(t), runner, Config{})
	if out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout", Depth: 2}, "Writer", "x"); out != "ok" {
		t.Fatalf("out = %q", out)
	}
	if runner.calls[0].depth != 3 {
		t.Fatalf("nested depth = %d, want 3", runner.calls[0].depth)
	}
}

func TestDelegate_Self(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f := Factory(newRoster(t), runner, Config{})
	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout"}, "sCoUt", "x")
	if !strings.Contains(out, "cannot delegate to yourself") || runner.count() != 0 {
		t.Fatalf("out = %q, calls = %d", out, runner.count())
	}
}

func TestDelegate_NotFoundListsAgents(t *testing.T) {
	t.Parallel()

	f := Factory(newRoster(t), &mockRunner{}, Config{})
	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout"}, "Stranger", "x")
	if !strings.Contains(out, `"Stranger" not found`) {
		t.Fatalf("out = %q", out)
	}
	if !strings.Contains(out, "Sleeper, Writer") || strings.Contains(out, "Scout") {
		t.Fatalf("available list wrong: %q", out)
	}
}

func TestDelegate_Inactive(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f := Factory(newRoster(t), runner, Config{})
	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout"}, "sleeper", "x")
	if !strings.Contains(out, "is paused") || runner.count() != 0 {
		t.Fatalf("out = %q", out)
	}
}

func TestDelegate_MissingArgs(t *testing.T) {
	t.Parallel()

	f := Factory(newRoster(t), &mockRunner{}, Config{})
	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout"}, "Writer", " ")
	if !strings.Contains(out, "required") {
		t.Fatalf("out = %q", out)
	}
}

func TestDelegate_NestedFailureThroughRegistry(t *testing.T) {
	t.Parallel()

	reg := tool.NewRegistry()
	runner := &mockRunner{err: errors.New("openai API error 500: down")}
	if err := reg.Register(ToolName, Factory(newRoster(t), runner, Config{})); err != nil {
		t.Fatal(err)
	}
	tools := reg.Resolve([]string{ToolName}, tool.Runtime{Owner: "u", Agent: "Scout"})

	out := reg.Execute(context.Background(), ToolName, json.RawMessage(`{"agent_name":"Writer","message":"x"}`), tools)
	if !strings.HasPrefix(out, "Error executing delegate_to_agent: delegation to Writer failed") {
		t.Fatalf("out = %q", out)
	}
}

func TestDelegate_CustomMaxDepth(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f := Factory(newRoster(t), runner, Config{MaxDepth: 1})
	out := exec(t, f, tool.Runtime{Owner: "u", Agent: "Scout", Depth: 1}, "Writer", "x")
	if !strings.Contains(out, "maximum delegation depth (1)") || runner.count() != 0 {
		t.Fatalf("out = %q", out)
	}
}

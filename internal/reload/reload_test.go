package reload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool"
	_ "github.com/flemzord/crew/modules/provider/openai"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWatch_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crew.yaml")
	writeConfig(t, path, "initial")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	events := Watch(ctx, path, 20*time.Millisecond)

	// Size differs, so the change is seen even within mtime granularity.
	writeConfig(t, path, "modified content")

	select {
	case evt := <-events:
		if evt.Path != path {
			t.Errorf("path = %q, want %q", evt.Path, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	events := Watch(ctx, filepath.Join(t.TempDir(), "missing.yaml"), 10*time.Millisecond)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event for missing file")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestHandler_Reload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "crew.yaml")
	writeConfig(t, path, `
version: "1"
owner: alice
workspace: `+dir+`/ws
agents:
  Scout: {model: gpt-4o}
  Writer: {model: gpt-4o, persona: "You write."}
skills:
  writing: [file_write]
`)

	roster, err := team.NewRoster([]team.Agent{{Name: "Old", Owner: "alice", Model: "gpt-4o", Status: team.StatusActive}})
	if err != nil {
		t.Fatal(err)
	}
	reg := tool.NewRegistry()

	if err := NewHandler(path, roster, reg, nil).Reload(t.Context()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := strings.Join(roster.Names("alice"), ","); got != "Scout,Writer" {
		t.Errorf("names = %s, want Scout,Writer", got)
	}
	if _, ok := reg.Skills()["writing"]; !ok {
		t.Error("skill pack not defined")
	}
	if _, err := os.Stat(filepath.Join(dir, "ws", "alice", "writer")); err != nil {
		t.Errorf("workspace not created: %v", err)
	}
}

func TestHandler_InvalidConfigKeepsRoster(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crew.yaml")
	writeConfig(t, path, `version: "1"
agents:
  Broken: {persona: "no model"}
`)

	roster, _ := team.NewRoster([]team.Agent{{Name: "Old", Owner: "default", Model: "gpt-4o", Status: team.StatusActive}})
	err := NewHandler(path, roster, tool.NewRegistry(), nil).Reload(t.Context())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := roster.Get("default", "old"); err != nil {
		t.Errorf("roster changed after failed reload: %v", err)
	}
}

func TestHandler_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewHandler("unused", nil, nil, nil).Reload(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

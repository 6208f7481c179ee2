package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/modules/memory/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "crew.db"), sqlite.Config{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLog_AppendTail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := openStore(t).Log()
	for i := range 4 {
		if err := log.Append(ctx, "u1", "Scout", fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}
	_ = log.Append(ctx, "u2", "scout", "not mine")

	got, err := log.Tail(ctx, "u1", "SCOUT", 3)
	if err != nil {
		t.Fatalf("Tail() error: %v", err)
	}
	if len(got) != 3 || got[0].Content != "entry 1" || got[2].Content != "entry 3" {
		t.Fatalf("Tail() = %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestLog_Search(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := openStore(t).Log()
	_ = log.Append(ctx, "u", "a", "the deploy pipeline is green")
	_ = log.Append(ctx, "u", "a", "ordered lunch")
	_ = log.Append(ctx, "u", "b", "deploy elsewhere")

	got, err := log.Search(ctx, "u", "a", "deploy", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "the deploy pipeline is green" {
		t.Fatalf("Search() = %+v", got)
	}

	// FTS operators in the query are matched literally.
	if _, err := log.Search(ctx, "u", "a", `deploy" OR *`, 10); err != nil {
		t.Fatalf("Search() with operators error: %v", err)
	}
}

func TestRuns_SaveGetList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := openStore(t).Runs()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		err := runs.Save(ctx, memory.Run{
			ID:         fmt.Sprintf("run-%d", i),
			Owner:      "u",
			Agent:      "Scout",
			Mode:       memory.ModeHeartbeat,
			Model:      "gpt-4o",
			Text:       "done",
			ToolCalls:  []agent.ToolCallRecord{{Tool: "web_fetch", Args: `{"url":"x"}`, Result: "ok"}},
			StartedAt:  start.Add(time.Duration(i) * time.Hour),
			FinishedAt: start.Add(time.Duration(i)*time.Hour + time.Second),
		})
		if err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	got, err := runs.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Mode != memory.ModeHeartbeat || len(got.ToolCalls) != 1 || got.ToolCalls[0].Result != "ok" {
		t.Fatalf("Get() = %+v", got)
	}
	if !got.StartedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("StartedAt = %v", got.StartedAt)
	}

	if _, err := runs.Get(ctx, "missing"); !errors.Is(err, memory.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	list, err := runs.List(ctx, "u", "scout", 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "run-2" {
		t.Fatalf("List() = %+v", list)
	}
	if all, _ := runs.List(ctx, "u", "", 0); len(all) != 3 {
		t.Fatalf("List(all) = %d runs", len(all))
	}
}

func TestRuns_ListOrdersWithinSecond(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := openStore(t).Runs()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	offsets := map[string]time.Duration{
		"whole":  0,
		"tenth":  100 * time.Millisecond,
		"nanos":  100*time.Millisecond + 1,
		"second": time.Second,
	}
	for id, off := range offsets {
		err := runs.Save(ctx, memory.Run{ID: id, Owner: "u", Agent: "Scout", Mode: memory.ModeChat,
			StartedAt: start.Add(off), FinishedAt: start.Add(off)})
		if err != nil {
			t.Fatalf("Save(%s) error: %v", id, err)
		}
	}

	list, err := runs.List(ctx, "u", "", 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	var got []string
	for _, r := range list {
		got = append(got, r.ID)
	}
	want := []string{"second", "nanos", "tenth", "whole"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if !list[1].StartedAt.Equal(start.Add(offsets["nanos"])) {
		t.Errorf("StartedAt = %v, want nanosecond precision", list[1].StartedAt)
	}
}

func TestRuns_SaveReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := openStore(t).Runs()
	r := memory.Run{ID: "x", Owner: "u", Agent: "a", Mode: memory.ModeChat, StartedAt: time.Now(), FinishedAt: time.Now()}
	_ = runs.Save(ctx, r)
	r.Err = "boom"
	r.Text = "Error: boom"
	_ = runs.Save(ctx, r)

	got, err := runs.Get(ctx, "x")
	if err != nil || !got.Failed() || got.Text != "Error: boom" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}

func TestModule_Lifecycle(t *testing.T) {
	t.Parallel()

	m := &sqlite.Module{}
	if m.ModuleInfo().ID != "memory.sqlite" {
		t.Fatalf("ID = %s", m.ModuleInfo().ID)
	}

	appCtx := core.NewAppContext(nil, t.TempDir(), t.TempDir())
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if _, ok := appCtx.Service(sqlite.ServiceLog); !ok {
		t.Error("memory.log service not registered")
	}
	if _, ok := appCtx.Service(sqlite.ServiceRuns); !ok {
		t.Error("memory.runs service not registered")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

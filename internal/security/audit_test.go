package security

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestAuditLogger_WritesJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewAuditLogger(AuditLoggerConfig{Writer: &buf, Now: fixedNow})
	l.Log(AuditEvent{Type: EventRunStart, RunID: "r1", Owner: "u", Agent: "scout"})
	l.Log(AuditEvent{Type: EventToolCall, ToolName: "web_fetch", Detail: `{"url":"https://x.test"}`})

	sc := bufio.NewScanner(&buf)
	var events []AuditEvent
	for sc.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].RunID != "r1" || events[0].Agent != "scout" || !events[0].Timestamp.Equal(fixedNow()) {
		t.Fatalf("event[0] = %+v", events[0])
	}
	if events[1].ToolName != "web_fetch" {
		t.Fatalf("event[1] = %+v", events[1])
	}
}

func TestAuditLogger_Redacts(t *testing.T) {
	t.Parallel()

	var got []AuditEvent
	meta := map[string]string{"key": "sk-abcdefghijklmnopqrstuvwx"}
	l := NewAuditLogger(AuditLoggerConfig{
		Redactor: NewRedactor(),
		OnEvent:  func(e AuditEvent) { got = append(got, e) },
	})
	l.Log(AuditEvent{Type: EventToolResult, Detail: "sk-abcdefghijklmnopqrstuvwx", Metadata: meta})

	if strings.Contains(got[0].Detail, "sk-") || strings.Contains(got[0].Metadata["key"], "sk-") {
		t.Fatalf("event not redacted: %+v", got[0])
	}
	if meta["key"] != "sk-abcdefghijklmnopqrstuvwx" {
		t.Fatal("caller metadata mutated")
	}
}

func TestAuditLogger_Concurrent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewAuditLogger(AuditLoggerConfig{Writer: &buf})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Log(AuditEvent{Type: EventToolCall})
		}()
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Fatalf("lines = %d, want 20", n)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAuditLogger_WriteErrors(t *testing.T) {
	t.Parallel()

	l := NewAuditLogger(AuditLoggerConfig{Writer: failingWriter{}})
	l.Log(AuditEvent{Type: EventRunFinish})
	l.Log(AuditEvent{Type: EventRunFinish})
	if l.WriteErrors() != 2 {
		t.Fatalf("WriteErrors() = %d, want 2", l.WriteErrors())
	}

	ok := NewAuditLogger(AuditLoggerConfig{Writer: &bytes.Buffer{}})
	ok.Log(AuditEvent{Type: EventRunFinish})
	if ok.WriteErrors() != 0 {
		t.Fatalf("WriteErrors() = %d, want 0", ok.WriteErrors())
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	t.Parallel()

	var l *AuditLogger
	l.Log(AuditEvent{Type: EventRunStart})
}

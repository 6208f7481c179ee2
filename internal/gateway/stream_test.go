package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/provider"
)

func dialStream(t *testing.T, env *testEnv, name string) (*websocket.Conn, context.Context) {
	t.Helper()

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/agents/" + name
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{OwnerHeader: []string{"alice"}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn, ctx
}

func readFrames(t *testing.T, ctx context.Context, conn *websocket.Conn) []StreamFrame {
	t.Helper()

	var frames []StreamFrame
	for {
		var f StreamFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return frames
			}
			if len(frames) > 0 && frames[len(frames)-1].Type != FrameEvent {
				return frames
			}
			t.Fatalf("read: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestChatStream_EventsThenRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.adapter.Steps = []provider.Step{memoryAppendStep(), {Text: "Noted.", Done: true}}
	conn, ctx := dialStream(t, env, "ada")

	if err := wsjson.Write(ctx, conn, ChatRequest{Message: "remember me"}); err != nil {
		t.Fatal(err)
	}
	frames := readFrames(t, ctx, conn)

	var types []agent.EventType
	for _, f := range frames[:len(frames)-1] {
		if f.Type != FrameEvent || f.Event == nil {
			t.Fatalf("frame = %+v, want event", f)
		}
		types = append(types, f.Event.Type)
	}
	want := []agent.EventType{agent.EventRoundTrip, agent.EventToolStart, agent.EventToolEnd, agent.EventRoundTrip, agent.EventDone}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	last := frames[len(frames)-1]
	if last.Type != FrameRun || last.Run == nil {
		t.Fatalf("last frame = %+v, want run", last)
	}
	if last.Run.Text != "Noted." || len(last.Run.ToolCalls) != 1 {
		t.Errorf("run = %+v", last.Run)
	}
}

func TestChatStream_ErrorFrame(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	conn, ctx := dialStream(t, env, "bob")

	if err := wsjson.Write(ctx, conn, ChatRequest{Message: "hi"}); err != nil {
		t.Fatal(err)
	}
	frames := readFrames(t, ctx, conn)
	if len(frames) != 1 || frames[0].Type != FrameError {
		t.Fatalf("frames = %+v, want one error frame", frames)
	}
	if !strings.Contains(frames[0].Error, "paused") {
		t.Errorf("error = %q", frames[0].Error)
	}
	if frames[0].Run != nil {
		t.Error("lookup failure should not carry a run")
	}
}

func TestChatStream_InvalidFirstFrame(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	conn, ctx := dialStream(t, env, "ada")

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	var f StreamFrame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != FrameError {
		t.Errorf("frame type = %q, want error", f.Type)
	}
	if env.adapter.StepCalls() != 0 {
		t.Error("provider should not be called")
	}
}

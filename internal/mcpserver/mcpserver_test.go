package mcpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/crew/internal/mcpserver"
	"github.com/flemzord/crew/internal/tool"
	"github.com/flemzord/crew/internal/tool/tooltest"
)

func newServer(t *testing.T) (*mcpserver.Server, *tooltest.MockTool) {
	t.Helper()

	echo := &tooltest.MockTool{
		NameFunc:   func() string { return "echo" },
		SchemaFunc: func() json.RawMessage { return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`) },
		ExecuteFunc: func(_ context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", err
			}
			return "echo: " + in.Text, nil
		},
	}
	broken := &tooltest.MockTool{
		NameFunc: func() string { return "broken" },
		ExecuteFunc: func(context.Context, json.RawMessage) (string, error) {
			return "", errors.New("disk on fire")
		},
	}

	reg := tool.NewRegistry()
	srv := mcpserver.New(reg, []tool.Tool{echo, broken, echo}, mcpserver.Options{Name: "crew-test"})
	call(t, srv, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	return srv, echo
}

func call(t *testing.T, srv *mcpserver.Server, msg string) string {
	t.Helper()
	resp := srv.HandleMessage(context.Background(), json.RawMessage(msg))
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(out)
}

func TestServer_ListsTools(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)
	out := call(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	if !strings.Contains(out, `"echo"`) || !strings.Contains(out, `"broken"`) {
		t.Fatalf("tools/list = %s", out)
	}
	if strings.Count(out, `"name":"echo"`) != 1 {
		t.Errorf("duplicate tool advertised: %s", out)
	}
	if !strings.Contains(out, `"text"`) {
		t.Errorf("schema not forwarded: %s", out)
	}
}

func TestServer_CallTool(t *testing.T) {
	t.Parallel()

	srv, echo := newServer(t)
	out := call(t, srv, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)

	if !strings.Contains(out, "echo: hi") {
		t.Fatalf("tools/call = %s", out)
	}
	if strings.Contains(out, `"isError":true`) {
		t.Errorf("successful call flagged as error: %s", out)
	}
	if echo.ExecuteCalls() != 1 {
		t.Errorf("echo calls = %d, want 1", echo.ExecuteCalls())
	}
}

func TestServer_ToolErrorIsResult(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t)
	out := call(t, srv, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"broken","arguments":{}}}`)

	if !strings.Contains(out, "Error executing broken: disk on fire") {
		t.Fatalf("tools/call = %s", out)
	}
	if !strings.Contains(out, `"isError":true`) {
		t.Errorf("failed call not flagged: %s", out)
	}
}

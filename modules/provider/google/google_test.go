package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/crew/internal/provider"
	"gopkg.in/yaml.v3"
)

type recorded struct {
	body generateRequest
	url  *url.URL
}

type fixture struct {
	mu     sync.Mutex
	bodies []string
	reqs   []recorded
}

func (f *fixture) request(i int) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[i]
}

func newFixture(t *testing.T, bodies ...string) (*Provider, *fixture) {
	t.Helper()
	fx := &fixture{bodies: bodies}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body generateRequest
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("invalid request: %v", err)
		}
		fx.mu.Lock()
		idx := len(fx.reqs)
		fx.reqs = append(fx.reqs, recorded{body: body, url: r.URL})
		fx.mu.Unlock()

		if idx >= len(fx.bodies) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid"}}`)
			return
		}
		_, _ = io.WriteString(w, fx.bodies[idx])
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, srv.Client()), fx
}

func TestModuleInfo(t *testing.T) {
	t.Parallel()

	if id := (&Provider{}).ModuleInfo().ID; id != "provider.google" {
		t.Errorf("ID = %s", id)
	}
}

func TestConfigure_Defaults(t *testing.T) {
	t.Parallel()

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte("timeout: 10s\n"), &doc); err != nil {
		t.Fatal(err)
	}
	p := &Provider{}
	if err := p.Configure(doc.Content[0]); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if p.config.Timeout != 10*time.Second || p.config.MaxTokens != provider.DefaultMaxTokens {
		t.Errorf("config = %+v", p.config)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestValidate_RejectsNegative(t *testing.T) {
	t.Parallel()

	tests := map[string]Config{
		"max_tokens": {MaxTokens: -1},
		"timeout":    {Timeout: -time.Second},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := &Provider{config: cfg}
			err := p.Validate()
			if err == nil || !strings.Contains(err.Error(), name+" must not be negative") {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestStep_FunctionCallThenText(t *testing.T) {
	t.Parallel()

	p, fx := newFixture(t,
		`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"web_fetch","args":{"url":"http://x"}}}]}}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":2}}`,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`,
	)
	s := p.Open(provider.Request{
		APIKey:       "AIza-test",
		Model:        "gemini-2.0-flash",
		SystemPrompt: "persona",
		History: []provider.Message{
			{Role: provider.RoleUser, Content: "hi"},
			{Role: provider.RoleAssistant, Content: "hello"},
			{Role: provider.RoleUser, Content: "fetch"},
		},
		Tools: []provider.ToolSchema{
			{Name: "web_fetch", Description: "fetch", Parameters: json.RawMessage(`{"type":"object"}`)},
			{Name: "web_search", Description: "search"},
		},
	})

	step, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	if step.Done || len(step.ToolCalls) != 1 {
		t.Fatalf("step = %+v", step)
	}
	if c := step.ToolCalls[0]; c.Name != "web_fetch" || string(c.Arguments) != `{"url":"http://x"}` {
		t.Fatalf("call = %+v", c)
	}

	s.Feed([]provider.ToolResult{{Call: step.ToolCalls[0], Content: "page"}})
	step, err = s.Step(context.Background())
	if err != nil {
		t.Fatalf("second Step() error: %v", err)
	}
	if !step.Done || step.Text != "ok" {
		t.Fatalf("second step = %+v", step)
	}

	first := fx.request(0)
	if got := first.url.Query().Get("key"); got != "AIza-test" {
		t.Errorf("key query = %q", got)
	}
	if !strings.HasSuffix(first.url.Path, "/models/gemini-2.0-flash:generateContent") {
		t.Errorf("path = %s", first.url.Path)
	}
	if first.body.SystemInstruction == nil || first.body.SystemInstruction.Parts[0].Text != "persona" {
		t.Errorf("systemInstruction = %+v", first.body.SystemInstruction)
	}
	if len(first.body.Tools) != 1 || len(first.body.Tools[0].FunctionDeclarations) != 2 {
		t.Errorf("tools = %+v", first.body.Tools)
	}
	if first.body.Contents[1].Role != roleModel {
		t.Errorf("assistant history role = %q", first.body.Contents[1].Role)
	}

	contents := fx.request(1).body.Contents
	if len(contents) != 5 {
		t.Fatalf("got %d contents, want 5", len(contents))
	}
	if contents[3].Role != roleModel || contents[3].Parts[0].FunctionCall == nil {
		t.Errorf("model turn = %+v", contents[3])
	}
	fr := contents[4]
	if fr.Role != roleUser || fr.Parts[0].FunctionResponse == nil {
		t.Fatalf("feed = %+v", fr)
	}
	if got := fr.Parts[0].FunctionResponse; got.Name != "web_fetch" || got.Response.Result != "page" {
		t.Errorf("functionResponse = %+v", got)
	}
}

func TestStep_AuthError(t *testing.T) {
	t.Parallel()

	p, _ := newFixture(t)
	_, err := p.Open(provider.Request{Model: "gemini-pro", APIKey: "bad"}).Step(context.Background())
	if !errors.Is(err, provider.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Provider != provider.KindGoogle {
		t.Fatalf("expected google provider error, got %v", err)
	}
}

func TestStep_Blocked(t *testing.T) {
	t.Parallel()

	p, _ := newFixture(t, `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`)
	_, err := p.Open(provider.Request{Model: "gemini-pro"}).Step(context.Background())
	if !errors.Is(err, provider.ErrMalformedResponse) || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestToTools_SingleEntry(t *testing.T) {
	t.Parallel()

	in := []provider.ToolSchema{{Name: "a"}, {Name: "b"}}
	got := toTools(in)
	if len(got) != 1 || len(got[0].FunctionDeclarations) != 2 {
		t.Fatalf("toTools = %+v", got)
	}
	if !reflect.DeepEqual(got, toTools(in)) {
		t.Fatal("toTools not deterministic")
	}
}

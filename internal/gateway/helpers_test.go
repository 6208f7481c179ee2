package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/provider/providertest"
	"github.com/flemzord/crew/internal/runner"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool"
	"github.com/flemzord/crew/internal/tool/builtin"
)

// testEnv wires a gateway over a real runner whose provider is scripted.
type testEnv struct {
	gw       *Gateway
	adapter  *providertest.ScriptedAdapter
	runs     *memory.InMemoryRunStore
	roster   *team.Roster
	registry *prometheus.Registry
	handler  http.Handler
}

type envOption func(*Gateway)

func withLimiter(rl *security.RateLimiter) envOption {
	return func(g *Gateway) { g.limiter = rl }
}

func withConfig(fn func(*Config)) envOption {
	return func(g *Gateway) { fn(&g.config) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	roster, err := team.NewRoster([]team.Agent{
		{Name: "Ada", Owner: "alice", Model: "gpt-4o", APIKey: "sk-test", Tools: []string{builtin.MemoryAppend}, Status: team.StatusActive},
		{Name: "Bob", Owner: "alice", Model: "gpt-4o", APIKey: "sk-test", Status: team.StatusPaused},
		{Name: "Eve", Owner: "mallory", Model: "gpt-4o", APIKey: "sk-test", Status: team.StatusActive},
		{Name: "Sealed", Owner: "carol", Model: "gpt-4o", APIKey: "enc:AAAA", Status: team.StatusActive},
		{Name: "Claudia", Owner: "carol", Model: "claude-sonnet-4", APIKey: "sk-test", Status: team.StatusActive},
	})
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		adapter:  &providertest.ScriptedAdapter{KindValue: provider.KindOpenAI},
		runs:     memory.NewInMemoryRunStore(),
		roster:   roster,
		registry: prometheus.NewRegistry(),
	}

	reg := tool.NewRegistry()
	if err := builtin.Register(reg, builtin.Deps{Memory: memory.NewInMemoryLog()}); err != nil {
		t.Fatal(err)
	}
	loop := agent.NewLoop(provider.Set{provider.KindOpenAI: env.adapter}, reg, agent.LoopConfig{}, agent.Options{})
	rn, err := runner.New(roster, reg, loop, env.runs, runner.Options{})
	if err != nil {
		t.Fatal(err)
	}

	env.gw = &Gateway{
		logger:    slog.New(slog.DiscardHandler),
		metrics:   NewMetrics(env.registry),
		startedAt: time.Now(),
		runner:    rn,
		roster:    roster,
		runs:      env.runs,
		gatherer:  env.registry,
	}
	env.gw.config.defaults()
	for _, opt := range opts {
		opt(env.gw)
	}
	env.handler = env.gw.buildRouter()
	return env
}

// do sends a request as owner (empty sends no header) and returns the
// recorded response.
func (e *testEnv) do(t *testing.T, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// mustYAMLNode parses a YAML string into a *yaml.Node for testing.
func mustYAMLNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return &doc
}

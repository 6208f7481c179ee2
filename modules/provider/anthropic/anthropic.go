// Package anthropic implements the provider.anthropic module, an adapter for
// the Anthropic Messages API with tool use.
package anthropic

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Adapter  = (*Provider)(nil)
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
)

// Provider is the Anthropic adapter module.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// New returns a ready-to-use adapter outside the module lifecycle.
func New(cfg Config, client *http.Client) *Provider {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{config: cfg, client: client, logger: slog.New(slog.DiscardHandler)}
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger
	p.client = &http.Client{Timeout: p.config.Timeout}
	ctx.RegisterService("provider.anthropic", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Kind implements provider.Adapter.
func (p *Provider) Kind() provider.Kind {
	return provider.KindAnthropic
}

// Open implements provider.Adapter.
func (p *Provider) Open(req provider.Request) provider.Session {
	s := &session{
		p:      p,
		key:    req.APIKey,
		model:  req.Model,
		system: req.SystemPrompt,
		tools:  toTools(req.Tools),
	}
	for _, m := range req.History {
		s.messages = append(s.messages, message{
			Role:    string(m.Role),
			Content: []contentBlock{{Type: blockText, Text: m.Content}},
		})
	}
	return s
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.config.BaseURL, "/") + "/messages"
}

// authHeader returns the request headers for key. OAuth-style keys, recognized
// heuristically by the "-oat" substring, are sent as a bearer token; all
// other keys use x-api-key.
func authHeader(key string) http.Header {
	h := http.Header{}
	if strings.Contains(key, "-oat") {
		h.Set("Authorization", "Bearer "+key)
	} else {
		h.Set("x-api-key", key)
	}
	h.Set("anthropic-version", apiVersion)
	return h
}

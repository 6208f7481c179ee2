// Package openai implements the provider.openai module, an adapter for the
// OpenAI Chat Completions API with function calling.
package openai

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

// Provider is the OpenAI adapter module.
type Provider struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// New returns a ready-to-use adapter outside the module lifecycle.
// A nil client uses a client with the configured timeout.
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
		ID:  "provider.openai",
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
	ctx.RegisterService("provider.openai", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Kind implements provider.Adapter.
func (p *Provider) Kind() provider.Kind {
	return provider.KindOpenAI
}

// Open implements provider.Adapter. The system prompt becomes the first
// message of the transcript.
func (p *Provider) Open(req provider.Request) provider.Session {
	s := &session{
		p:     p,
		key:   req.APIKey,
		model: req.Model,
		tools: toTools(req.Tools),
	}
	if req.SystemPrompt != "" {
		s.messages = append(s.messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		s.messages = append(s.messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return s
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.config.BaseURL, "/") + "/chat/completions"
}

// Package google implements the provider.google module, an adapter for the
// Gemini generateContent API with function calling.
package google

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

var (
	_ provider.Adapter  = (*Provider)(nil)
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
)

// Provider is the Gemini adapter module.
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
		ID:  "provider.google",
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
	ctx.RegisterService("provider.google", p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Kind implements provider.Adapter.
func (p *Provider) Kind() provider.Kind {
	return provider.KindGoogle
}

// Open implements provider.Adapter. Assistant history turns are sent with
// the "model" role.
func (p *Provider) Open(req provider.Request) provider.Session {
	s := &session{
		p:     p,
		key:   req.APIKey,
		model: req.Model,
		tools: toTools(req.Tools),
	}
	if req.SystemPrompt != "" {
		s.system = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.History {
		role := roleUser
		if m.Role == provider.RoleAssistant {
			role = roleModel
		}
		s.contents = append(s.contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	return s
}

// endpoint returns the generateContent URL. The API key travels as the
// "key" query parameter.
func (p *Provider) endpoint(model, key string) string {
	q := url.Values{}
	q.Set("key", key)
	return strings.TrimRight(p.config.BaseURL, "/") +
		"/models/" + url.PathEscape(model) + ":generateContent?" + q.Encode()
}

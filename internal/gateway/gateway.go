// Package gateway serves the HTTP and websocket API for running agents:
// chat, tasks, manual heartbeats, run lookups, health and metrics. It binds
// to loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
)

// Service names the gateway resolves at Start.
const (
	ServiceRunner      = "crew.runner"
	ServiceRoster      = "team.roster"
	ServiceRuns        = "memory.runs"
	ServiceRateLimiter = "security.ratelimiter"
	ServiceAudit       = "security.audit"
	ServiceRegistry    = "telemetry.registry"
)

// Runner starts agent runs. *runner.Runner implements it.
type Runner interface {
	Chat(ctx context.Context, owner, name string, history []provider.Message, obs agent.Observer) (memory.Run, error)
	Task(ctx context.Context, owner, name, title, description string, obs agent.Observer) (memory.Run, error)
	Heartbeat(ctx context.Context, owner, name string) (memory.Run, error)
}

// Roster is the agent lookup the gateway needs. *team.Roster implements it.
type Roster interface {
	Get(owner, name string) (team.Agent, error)
	List(owner string) []team.Agent
	SetStatus(owner, name string, status team.Status) (team.Agent, error)
}

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	runner   Runner
	roster   Roster
	runs     memory.RunStore
	limiter  *security.RateLimiter
	audit    *security.AuditLogger
	gatherer prometheus.Gatherer
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger

	var reg prometheus.Registerer
	if svc, ok := ctx.Service(ServiceRegistry); ok {
		reg, _ = svc.(prometheus.Registerer)
		g.gatherer, _ = svc.(prometheus.Gatherer)
	}
	g.metrics = NewMetrics(reg)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry and starts the HTTP server.
func (g *Gateway) Start() error {
	if err := g.resolve(); err != nil {
		return err
	}
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolve binds the runner, roster and run store, which are required, and
// the rate limiter and audit logger, which are optional.
func (g *Gateway) resolve() error {
	var ok bool
	if g.runner, ok = service[Runner](g.appCtx, ServiceRunner); !ok {
		return fmt.Errorf("gateway: service %q unavailable", ServiceRunner)
	}
	if g.roster, ok = service[Roster](g.appCtx, ServiceRoster); !ok {
		return fmt.Errorf("gateway: service %q unavailable", ServiceRoster)
	}
	if g.runs, ok = service[memory.RunStore](g.appCtx, ServiceRuns); !ok {
		return fmt.Errorf("gateway: service %q unavailable", ServiceRuns)
	}
	g.limiter, _ = service[*security.RateLimiter](g.appCtx, ServiceRateLimiter)
	g.audit, _ = service[*security.AuditLogger](g.appCtx, ServiceAudit)
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func service[T any](ctx *core.AppContext, name string) (T, bool) {
	var zero T
	v, ok := ctx.Service(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

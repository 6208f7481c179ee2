package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/cron"
)

// Service names this module reads and publishes.
const (
	ServiceRunner = "crew.runner"
	ServiceRoster = "team.roster"
	ServiceName   = "heartbeat.service"
)

// Config configures the heartbeat module.
type Config struct {
	// Timezone for schedules and quiet hours. Default "UTC".
	Timezone string `yaml:"timezone"`

	// MaxConcurrent bounds parallel heartbeats in RunAll. Default 4.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Timeout bounds a single heartbeat run. Default 5m.
	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return c
}

func init() {
	core.RegisterModule(&Module{})
}

// Module schedules heartbeats for the roster.
type Module struct {
	config    Config
	service   *Service
	scheduler *cron.Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "heartbeat",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config = m.config.withDefaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config = m.config.withDefaults()

	runner, ok := service[Runner](ctx, ServiceRunner)
	if !ok {
		return fmt.Errorf("heartbeat: service %q unavailable", ServiceRunner)
	}
	roster, ok := service[Roster](ctx, ServiceRoster)
	if !ok {
		return fmt.Errorf("heartbeat: service %q unavailable", ServiceRoster)
	}

	svc, err := NewService(m.config, roster, runner, ctx.Logger)
	if err != nil {
		return err
	}
	m.service = svc
	m.scheduler = cron.NewScheduler(ctx.Logger, svc.Location())
	for _, job := range svc.Jobs() {
		if err := m.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}
	ctx.RegisterService(ServiceName, svc)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.service == nil {
		return errors.New("heartbeat: not provisioned")
	}
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

// Service returns the provisioned heartbeat service.
func (m *Module) Service() *Service { return m.service }

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
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/runner"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/telemetry"
	"github.com/flemzord/crew/internal/tool"
	"github.com/flemzord/crew/internal/tool/builtin"
)

// Service names published on the AppContext. The gateway and heartbeat
// modules look these up by the same literals.
const (
	ServiceRunner      = "crew.runner"
	ServiceRoster      = "team.roster"
	ServiceTools       = "tool.registry"
	ServiceMemoryLog   = "memory.log"
	ServiceMemoryRuns  = "memory.runs"
	ServiceRedactor    = "security.redactor"
	ServiceAudit       = "security.audit"
	ServiceRateLimiter = "security.ratelimiter"
	ServiceMetrics     = "telemetry.registry"
	ServiceConfigPath  = "config.path"
)

// Options controls how a Stack is assembled.
type Options struct {
	// ConfigPath is published for modules and used by reload. Optional.
	ConfigPath string

	// Stderr receives logs. Default os.Stderr.
	Stderr io.Writer

	// LogLevel overrides log.level from the configuration when non-empty.
	LogLevel string

	// Services also loads the non-foundation modules (gateway, heartbeat).
	// One-shot commands leave it off.
	Services bool
}

// Stack is a fully wired but not yet started application.
type Stack struct {
	Config   *config.Config
	Logger   *slog.Logger
	Redactor *security.Redactor
	Audit    *security.AuditLogger
	Limiter  *security.RateLimiter
	Metrics  *prometheus.Registry
	Roster   *team.Roster
	Tools    *tool.Registry
	Memory   memory.Log
	Runs     memory.RunStore
	Runner   *runner.Runner
	App      *core.App
	Context  *core.AppContext

	closers []func(context.Context) error
}

// Build assembles the application from cfg. cfg must already be validated.
// The returned stack owns resources; release them with Close.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Stack, error) {
	s := &Stack{Config: cfg}
	built := false
	defer func() {
		if !built {
			s.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := s.buildSecurity(opts); err != nil {
		return nil, err
	}

	s.Metrics = prometheus.NewRegistry()
	s.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, shutdownTracing)

	agents, err := cfg.TeamAgents()
	if err != nil {
		return nil, err
	}
	if err := team.EnsureWorkspaces(agents); err != nil {
		return nil, err
	}
	if s.Roster, err = team.NewRoster(agents); err != nil {
		return nil, err
	}

	dataDir := cfg.ResolvedDataDir()
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("app: create data dir: %w", err)
	}
	s.Context = core.NewAppContext(s.Logger, dataDir, cfg.ResolvedWorkspace()).WithModuleConfigs(cfg.Modules)
	s.Context.RegisterService(ServiceRedactor, s.Redactor)
	if s.Audit != nil {
		s.Context.RegisterService(ServiceAudit, s.Audit)
	}
	s.Context.RegisterService(ServiceRateLimiter, s.Limiter)
	s.Context.RegisterService(ServiceMetrics, s.Metrics)
	s.Context.RegisterService(ServiceRoster, s.Roster)
	if opts.ConfigPath != "" {
		s.Context.RegisterService(ServiceConfigPath, opts.ConfigPath)
	}

	s.App = core.NewApp(s.Context)
	s.closers = append(s.closers, func(context.Context) error {
		s.App.Close()
		return nil
	})

	base, rest := config.Resolve(cfg)
	kinds := providerKinds(agents)
	base = withProviders(base, kinds)
	if err := s.App.LoadModules(base); err != nil {
		return nil, err
	}

	adapters, err := s.adapters(kinds)
	if err != nil {
		return nil, err
	}
	s.resolveStores()

	if err := s.buildRunner(adapters); err != nil {
		return nil, err
	}

	if opts.Services {
		if err := s.App.LoadModules(rest); err != nil {
			return nil, err
		}
	}
	built = true
	return s, nil
}

// Close releases what Build acquired, in reverse order. Modules that were
// started must be stopped through App first.
func (s *Stack) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("shutdown step failed", "error", err)
		}
	}
	s.closers = nil
}

func (s *Stack) buildSecurity(opts Options) error {
	cfg := s.Config
	s.Redactor = security.NewRedactor()
	for _, expr := range cfg.Security.Redact {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("app: redact pattern %q: %w", expr, err)
		}
		s.Redactor.AddPattern(re)
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	levelName := cfg.Log.Level
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	s.Logger = security.NewLogger(stderr, level, cfg.Log.Format == "json", s.Redactor)

	if cfg.Security.Audit.Enabled {
		w, err := s.auditWriter(stderr)
		if err != nil {
			return err
		}
		s.Audit = security.NewAuditLogger(security.AuditLoggerConfig{Writer: w, Redactor: s.Redactor})
	}
	s.Limiter = security.NewRateLimiter(cfg.Security.RateLimit)
	return nil
}

func (s *Stack) auditWriter(fallback io.Writer) (io.Writer, error) {
	path := s.Config.Security.Audit.Path
	if path == "" {
		return fallback, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("app: audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("app: audit log: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { return f.Close() })
	return f, nil
}

// adapters collects the provider adapters the loaded modules published.
func (s *Stack) adapters(kinds []provider.Kind) (provider.Set, error) {
	set := provider.Set{}
	for _, kind := range []provider.Kind{provider.KindOpenAI, provider.KindAnthropic, provider.KindGoogle} {
		svc, ok := s.Context.Service("provider." + string(kind))
		if !ok {
			continue
		}
		if a, ok := svc.(provider.Adapter); ok {
			set[kind] = a
		}
	}
	var missing []string
	for _, k := range kinds {
		if _, ok := set[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("app: no adapter for providers: %s", strings.Join(missing, ", "))
	}
	return set, nil
}

// resolveStores uses the memory module's stores when one is loaded and
// in-memory ones otherwise, publishing whichever is chosen.
func (s *Stack) resolveStores() {
	if svc, ok := s.Context.Service(ServiceMemoryLog); ok {
		s.Memory, _ = svc.(memory.Log)
	}
	if svc, ok := s.Context.Service(ServiceMemoryRuns); ok {
		s.Runs, _ = svc.(memory.RunStore)
	}
	if s.Memory == nil {
		s.Logger.Warn("no memory module configured, agent memory will not persist")
		s.Memory = memory.NewInMemoryLog()
		s.Context.RegisterService(ServiceMemoryLog, s.Memory)
	}
	if s.Runs == nil {
		s.Runs = memory.NewInMemoryRunStore()
		s.Context.RegisterService(ServiceMemoryRuns, s.Runs)
	}
}

func (s *Stack) buildRunner(adapters provider.Set) error {
	cfg := s.Config

	s.Tools = tool.NewRegistry()
	s.Tools.SetLogger(s.Logger)
	s.Tools.SetAuditLogger(s.Audit)
	err := builtin.Register(s.Tools, builtin.Deps{
		Memory:    s.Memory,
		Workspace: s.workspace,
		Filter:    security.NewURLFilter(cfg.Security.URLFilter),
		Search:    cfg.Tools.Search,
	})
	if err != nil {
		return err
	}
	for name, tools := range cfg.Skills {
		if err := s.Tools.DefineSkill(name, tools); err != nil {
			return fmt.Errorf("app: skill %q: %w", name, err)
		}
	}

	loop := agent.NewLoop(adapters, s.Tools, cfg.Loop, agent.Options{
		Logger:  s.Logger,
		Metrics: telemetry.NewMetrics(s.Metrics),
		Tracer:  telemetry.Tracer(),
	})

	var keyring *security.Keyring
	if cfg.Security.KeyringKey != "" {
		if keyring, err = security.ParseKeyring(cfg.Security.KeyringKey); err != nil {
			return fmt.Errorf("app: keyring: %w", err)
		}
	}

	s.Runner, err = runner.New(s.Roster, s.Tools, loop, s.Runs, runner.Options{
		Memory:     s.Memory,
		Keyring:    keyring,
		Redactor:   s.Redactor,
		Audit:      s.Audit,
		Logger:     s.Logger,
		Delegation: cfg.Tools.Delegation,
	})
	if err != nil {
		return err
	}
	s.Context.RegisterService(ServiceTools, s.Tools)
	s.Context.RegisterService(ServiceRunner, s.Runner)
	return nil
}

func (s *Stack) workspace(owner, name string) (string, error) {
	a, err := s.Roster.Get(owner, name)
	if err != nil {
		return "", err
	}
	if a.Workspace == "" {
		return "", errors.New("agent has no workspace")
	}
	return a.Workspace, nil
}

// providerKinds lists the distinct providers the agents' models need.
func providerKinds(agents []team.Agent) []provider.Kind {
	var kinds []provider.Kind
	for _, a := range agents {
		k := provider.KindForModel(a.Model)
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	slices.Sort(kinds)
	return kinds
}

// withProviders adds the adapter module of every needed provider that the
// configuration does not list. Adapters need no configuration: keys come
// from the agents.
func withProviders(ids []string, kinds []provider.Kind) []string {
	for _, k := range kinds {
		id := "provider." + string(k)
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("app: log level: %w", err)
	}
	return level, nil
}

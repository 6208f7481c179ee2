// Package sqlite implements the memory.sqlite module: a persistent agent
// memory log and run store in one database. It uses modernc.org/sqlite
// (pure Go, no CGO) with FTS5 full-text search and WAL mode.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/crew/internal/core"
	"github.com/flemzord/crew/internal/memory"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Service names registered by the module.
const (
	ServiceLog  = "memory.log"
	ServiceRuns = "memory.runs"
)

// Compile-time interface guards.
var (
	_ memory.Log        = (*memoryLog)(nil)
	_ memory.RunStore   = (*runStore)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module implements a SQLite-backed memory module.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	store, err := Open(context.Background(), m.config.Path, m.config)
	if err != nil {
		return err
	}
	m.store = store

	ctx.RegisterService(ServiceLog, store.Log())
	ctx.RegisterService(ServiceRuns, store.Runs())

	m.logger.Info("sqlite memory module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}

	// Verify FTS5 virtual table is accessible.
	var n int
	if err := m.store.db.QueryRowContext(context.Background(), "SELECT count(*) FROM memory_fts").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: FTS5 not available: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite memory module stopping")
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Log returns the memory log.
func (s *Store) Log() memory.Log { return s.log }

// Runs returns the run store.
func (s *Store) Runs() memory.RunStore { return s.runs }

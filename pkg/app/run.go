// Package app provides the shared entry point for the crew binary: it turns
// a configuration file into a wired Stack and drives its lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/reload"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Find searches the standard locations.
	ConfigPath string

	// LogLevel overrides log.level from the file.
	LogLevel string

	Stderr io.Writer

	// WatchInterval is how often the config file is polled for changes.
	// Zero uses reload.DefaultPollInterval; negative disables watching.
	WatchInterval time.Duration

	// Ready, when set, receives the started stack before Run blocks.
	Ready func(*Stack)
}

// LoadConfig finds, loads and validates the configuration. It returns the
// path actually used.
func LoadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Run loads configuration, starts every module, and blocks until ctx is
// done or a shutdown signal arrives. SIGHUP and file changes reload agents
// and skill packs in place.
func Run(ctx context.Context, params RunParams) error {
	cfg, path, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	stack, err := Build(ctx, cfg, Options{
		ConfigPath: path,
		Stderr:     params.Stderr,
		LogLevel:   params.LogLevel,
		Services:   true,
	})
	if err != nil {
		return err
	}
	defer stack.Close(context.WithoutCancel(ctx))

	logger := stack.Logger
	if err := stack.App.Start(); err != nil {
		return err
	}
	logger.Info("crew started", "config", path, "agents", len(stack.Roster.All()), "modules", len(stack.App.Modules()))
	if params.Ready != nil {
		params.Ready(stack)
	}

	handler := reload.NewHandler(path, stack.Roster, stack.Tools, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	var changes <-chan reload.Event
	if params.WatchInterval >= 0 {
		changes = reload.Watch(watchCtx, path, params.WatchInterval)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			stack.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading configuration")
				if err := handler.Reload(ctx); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			stack.App.Stop()
			logger.Info("shutdown complete")
			return nil
		case evt, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Info("config file changed, reloading", "path", evt.Path)
			if err := handler.Reload(ctx); err != nil {
				logger.Error("reload failed", "error", fmt.Errorf("%s: %w", evt.Path, err))
			}
		}
	}
}

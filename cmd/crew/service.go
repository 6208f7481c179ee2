package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/pkg/app"
)

// daemon adapts app.Run to the service manager's Start/Stop callbacks.
type daemon struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

func (d *daemon) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan error, 1)
	go func() { d.done <- app.Run(ctx, d.params) }()
	return nil
}

func (d *daemon) Stop(service.Service) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	return <-d.done
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control crew as a system service",
	}
	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the crew service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the crew service status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				st, err := svc.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), statusText(st))
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager",
			Hidden: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
	)
	return cmd
}

func newService(cmd *cobra.Command) (service.Service, error) {
	path, err := config.Find(configPath(cmd))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	d := &daemon{params: app.RunParams{ConfigPath: abs, LogLevel: logLevel(cmd)}}
	return service.New(d, serviceConfig(abs))
}

func serviceConfig(configPath string) *service.Config {
	return &service.Config{
		Name:        "crew",
		DisplayName: "crew agent team",
		Description: "Runs crew agents, their heartbeats and the HTTP gateway.",
		Arguments:   []string{"service", "run", "--config", configPath},
	}
}

func statusText(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

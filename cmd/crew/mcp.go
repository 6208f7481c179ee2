package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/mcpserver"
	"github.com/flemzord/crew/internal/tool"
	"github.com/flemzord/crew/pkg/app"
)

func mcpCmd() *cobra.Command {
	var (
		agentName string
		owner     string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve an agent's tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if agentName == "" {
				return errors.New("--agent is required")
			}
			cfg, path, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			// stdout carries the protocol; logs go to stderr only.
			stack, err := app.Build(ctx, cfg, app.Options{
				ConfigPath: path,
				Stderr:     os.Stderr,
				LogLevel:   logLevel(cmd),
			})
			if err != nil {
				return err
			}
			defer stack.Close(context.WithoutCancel(ctx))
			if err := stack.App.Start(); err != nil {
				return err
			}
			defer stack.App.Stop()

			if owner == "" {
				owner = cfg.ResolvedOwner()
			}
			a, err := stack.Roster.Get(owner, agentName)
			if err != nil {
				return err
			}
			tools := stack.Tools.Resolve(a.Tools, tool.Runtime{Owner: a.Owner, Agent: a.Name})
			tools = append(tools, stack.Tools.Static()...)

			srv := mcpserver.New(stack.Tools, tools, mcpserver.Options{
				Name:    "crew-" + a.Name,
				Version: version,
				Logger:  stack.Logger,
			})
			stack.Logger.Info("serving tools over MCP", "agent", a.Name, "tools", len(tools))
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", "", "Agent whose tools are served")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the agent (default: config owner)")
	return cmd
}

package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/team"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := configPath(cmd)
			if len(args) == 1 {
				explicit = args[0]
			}
			path, err := config.Find(explicit)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			agents, err := cfg.TeamAgents()
			if err != nil {
				return err
			}
			base, rest := config.Resolve(cfg)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s\n", path)
			fmt.Fprintf(out, "\nAgents (%d):\n", len(agents))
			for _, a := range agents {
				fmt.Fprintf(out, "  %s/%s  %s  %s\n", a.Owner, a.Name, a.Model, statusLabel(a))
			}
			modules := slices.Concat(base, rest)
			fmt.Fprintf(out, "\nModules (%d):\n", len(modules))
			for _, id := range modules {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

func statusLabel(a team.Agent) string {
	if a.Heartbeat == "" {
		return string(a.Status)
	}
	return fmt.Sprintf("%s, heartbeat %q", a.Status, a.Heartbeat)
}

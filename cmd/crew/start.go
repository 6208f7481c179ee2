package main

import (
	"github.com/spf13/cobra"

	"github.com/flemzord/crew/pkg/app"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start crew with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.RunParams{
				ConfigPath: configPath(cmd),
				LogLevel:   logLevel(cmd),
				Stderr:     cmd.ErrOrStderr(),
			})
		},
	}
}

// Package main is the entry point for the crew CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/core"

	// Compiled-in modules.
	_ "github.com/flemzord/crew/internal/gateway"
	_ "github.com/flemzord/crew/internal/heartbeat"
	_ "github.com/flemzord/crew/modules/memory/sqlite"
	_ "github.com/flemzord/crew/modules/provider/anthropic"
	_ "github.com/flemzord/crew/modules/provider/google"
	_ "github.com/flemzord/crew/modules/provider/openai"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crew",
		Short:         "A self-hosted team of tool-using AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return loadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
	root.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before the configuration")

	root.AddCommand(
		versionCmd(),
		startCmd(),
		runCmd(),
		configCmd(),
		initCmd(),
		secretCmd(),
		serviceCmd(),
		mcpCmd(),
	)
	return root
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "crew %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	return p
}

func logLevel(cmd *cobra.Command) string {
	l, _ := cmd.Flags().GetString("log-level")
	return l
}

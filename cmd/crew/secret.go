package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/security"
)

// keyringEnv is consulted when no configuration names a keyring key.
const keyringEnv = "CREW_KEYRING_KEY"

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage sealed agent credentials",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "keygen",
			Short: "Print a new keyring key",
			RunE: func(cmd *cobra.Command, _ []string) error {
				key, err := security.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "seal <value>",
			Short: "Seal an API key for use as an agent api_key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				keyring, err := loadKeyring(configPath(cmd))
				if err != nil {
					return err
				}
				sealed, err := keyring.Seal(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sealed)
				return nil
			},
		},
	)
	return cmd
}

// loadKeyring uses $CREW_KEYRING_KEY, falling back to security.keyring_key
// from the configuration.
func loadKeyring(explicit string) (*security.Keyring, error) {
	if key := strings.TrimSpace(os.Getenv(keyringEnv)); key != "" {
		return security.ParseKeyring(key)
	}
	path, err := config.Find(explicit)
	if err != nil {
		return nil, fmt.Errorf("no keyring key: set %s or security.keyring_key: %w", keyringEnv, err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Security.KeyringKey == "" {
		return nil, errors.New("no keyring key: set " + keyringEnv + " or security.keyring_key")
	}
	return security.ParseKeyring(cfg.Security.KeyringKey)
}

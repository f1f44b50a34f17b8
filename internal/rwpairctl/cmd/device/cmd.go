// Package device implements the paired device management commands
package device

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
)

// NewCommand creates the device management command and its subcommands
func NewCommand(getConfig func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage paired devices",
		Long: `The device command provides subcommands for inspecting and removing
the devices paired to an account.`,
	}

	cmd.AddCommand(
		newListCommand(getConfig),
		newRemoveCommand(getConfig),
	)

	return cmd
}

// requireUser resolves the account an operation targets
func requireUser(cfg *config.Config) (string, error) {
	if cfg.UserID == "" {
		return "", fmt.Errorf("no account configured - pass --user or run 'rwpairctl config set --user'")
	}
	return cfg.UserID, nil
}

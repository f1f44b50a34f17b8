package device

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/util"
)

// newRemoveCommand creates a command for unpairing a device
func newRemoveCommand(getConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove DEVICE_ID",
		Short: "Unpair a device from the account",
		Example: `  # Unpair a phone
  rwpairctl device remove phone-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			userID, err := requireUser(cfg)
			if err != nil {
				return err
			}

			c, err := util.GetClient(cfg)
			if err != nil {
				return err
			}

			if err := c.RemoveDevice(cmd.Context(), userID, args[0]); err != nil {
				if strings.Contains(err.Error(), "not_found") {
					return fmt.Errorf("device %q is not paired to this account", args[0])
				}
				return fmt.Errorf("error removing device: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Device %s unpaired\n", args[0])
			return nil
		},
	}
}

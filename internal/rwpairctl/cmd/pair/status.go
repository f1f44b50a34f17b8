package pair

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/util"
)

// newStatusCommand creates a one-shot token status check
func newStatusCommand(getConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status TOKEN",
		Short: "Check the status of a pairing token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClient(getConfig())
			if err != nil {
				return err
			}

			status, err := c.GetPairingStatus(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("status check failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

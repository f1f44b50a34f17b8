// Package pair implements the pairing flow commands
package pair

import (
	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
)

// NewCommand creates the pairing command and its subcommands
func NewCommand(getConfig func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair devices to an account",
		Long: `The pair command drives the device pairing flow: it requests a
pairing token, shows the payload the companion device scans, and waits
for the redemption to come through.`,
	}

	cmd.AddCommand(
		newStartCommand(getConfig),
		newStatusCommand(getConfig),
		newRedeemCommand(getConfig),
	)

	return cmd
}

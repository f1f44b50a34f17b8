package device

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/util"
)

// newListCommand creates a command for listing paired devices
func newListCommand(getConfig func() *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List paired devices",
		Long: `List the devices paired to an account.

The output can be formatted as a table (default) or as JSON for scripting.`,
		Example: `  # List paired devices
  rwpairctl device list

  # As JSON
  rwpairctl device list -o json`,
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

			devices, err := c.ListDevices(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("error listing devices: %w", err)
			}

			switch output {
			case "json":
				return util.PrintJSON(cmd.OutOrStdout(), devices)
			default:
				tw := util.NewTabWriter(cmd.OutOrStdout())
				defer tw.Flush()

				fmt.Fprintf(tw, "DEVICE\tTYPE\tNAME\tSTATE\tPAIRED\tLAST ACTIVE\n")
				for _, d := range devices {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						d.DeviceID,
						d.DeviceType,
						d.DeviceName,
						d.ConnectionState,
						d.PairedAt.Format(time.RFC3339),
						util.FormatDuration(time.Since(d.LastActiveAt)))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	return cmd
}

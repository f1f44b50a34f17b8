package pair

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/poller"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/util"
)

// newStartCommand creates the command that issues a token and waits for
// the companion device to redeem it
func newStartCommand(getConfig func() *config.Config) *cobra.Command {
	var (
		deviceID   string
		deviceType string
		deviceName string
		noWait     bool
		attempts   int
		output     string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Issue a pairing token and wait for redemption",
		Long: `Start a pairing flow for a device. The command prints the payload to
render as a QR code, then polls the server until the companion device
scans it, the token expires, or the attempt budget runs out.`,
		Example: `  # Pair a phone to the configured account
  rwpairctl pair start --device-id=phone-1 --device-type=mobile --device-name="My Phone"

  # Issue a token without waiting for redemption
  rwpairctl pair start --device-id=phone-1 --device-type=mobile --device-name="My Phone" --no-wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if cfg.UserID == "" {
				return fmt.Errorf("no account configured - pass --user or run 'rwpairctl config set --user'")
			}

			c, err := util.GetClient(cfg)
			if err != nil {
				return err
			}

			token, err := c.IssueToken(cmd.Context(), &v1alpha1.PairingTokenRequest{
				UserID:     cfg.UserID,
				DeviceID:   deviceID,
				DeviceType: deviceType,
				DeviceName: deviceName,
			})
			if err != nil {
				return fmt.Errorf("pairing token request failed: %w", err)
			}

			if output == "json" {
				if err := util.PrintJSON(cmd.OutOrStdout(), token); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Scan this payload on the companion device:\n\n")
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n\n", token.RenderPayload)
				fmt.Fprintf(cmd.OutOrStdout(), "Token expires at %s\n", token.ExpiresAt.Format(time.RFC3339))
				if token.Superseded {
					fmt.Fprintf(cmd.OutOrStdout(), "A previous pending token for this device was invalidated.\n")
				}
			}

			if noWait {
				return nil
			}

			interval := time.Duration(token.PollInterval) * time.Second
			if interval <= 0 {
				interval = poller.DefaultInterval
			}

			session := poller.NewSession(
				func(ctx context.Context) (v1alpha1.PairingStatus, error) {
					return c.GetPairingStatus(ctx, token.Token)
				},
				poller.WithInterval(interval),
				poller.WithMaxAttempts(attempts),
			)

			fmt.Fprintf(cmd.OutOrStdout(), "Waiting for the companion device...\n")

			// The manager keys the session by (user, device), so a
			// reissue for the same device replaces the running wait.
			manager := poller.NewManager()
			defer manager.StopAll()

			result := <-manager.Start(cmd.Context(), cfg.UserID, deviceID, session)
			switch result.Outcome {
			case poller.OutcomePaired:
				fmt.Fprintf(cmd.OutOrStdout(), "Device paired successfully.\n")
				return nil
			case poller.OutcomeExpired:
				return fmt.Errorf("pairing token expired before it was scanned")
			case poller.OutcomeTimeout:
				if result.Err != nil {
					return fmt.Errorf("gave up waiting after %d checks (last error: %v)", result.Attempts, result.Err)
				}
				return fmt.Errorf("gave up waiting after %d checks", result.Attempts)
			default:
				return fmt.Errorf("pairing cancelled")
			}
		},
	}

	cmd.Flags().StringVar(&deviceID, "device-id", "", "Device identifier (required)")
	cmd.Flags().StringVar(&deviceType, "device-type", "", "Device type: laptop or mobile (required)")
	cmd.Flags().StringVar(&deviceName, "device-name", "", "Human-readable device name (required)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Issue the token without polling for redemption")
	cmd.Flags().IntVar(&attempts, "attempts", poller.DefaultMaxAttempts, "Status checks before giving up")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (json)")

	requiredFlags := []string{"device-id", "device-type", "device-name"}
	for _, flag := range requiredFlags {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %q flag as required: %v", flag, err))
		}
	}

	return cmd
}

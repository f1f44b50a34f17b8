package pair

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/util"
)

// newRedeemCommand creates the command a companion device uses to
// consume a scanned pairing payload
func newRedeemCommand(getConfig func() *config.Config) *cobra.Command {
	var fingerprint string

	cmd := &cobra.Command{
		Use:   "redeem PAYLOAD",
		Short: "Redeem a scanned pairing payload",
		Long: `Redeem a pairing token on behalf of a companion device. The argument
is either the raw token or the full scanned payload.`,
		Example: `  # Redeem a scanned QR payload
  rwpairctl pair redeem restwell-pair:TOKEN:user-1:mobile --fingerprint=abc123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			// Accept the full scanned payload as a convenience
			if strings.HasPrefix(token, "restwell-pair:") {
				parts := strings.SplitN(token, ":", 4)
				if len(parts) != 4 {
					return fmt.Errorf("malformed pairing payload")
				}
				token = parts[1]
			}

			// A companion device without a stable identity gets a
			// generated one
			if fingerprint == "" {
				fingerprint = uuid.NewString()
			}

			c, err := util.GetClient(getConfig())
			if err != nil {
				return err
			}

			result, err := c.Redeem(cmd.Context(), &v1alpha1.RedeemRequest{
				Token:             token,
				DeviceFingerprint: fingerprint,
			})
			if err != nil {
				return fmt.Errorf("redemption failed: %w", err)
			}

			if !result.Success {
				return fmt.Errorf("token not redeemable: %s", result.Reason)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Paired to account %s as device %s\n",
				result.UserID, result.DeviceID)
			return nil
		},
	}

	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Redeeming device fingerprint (generated when omitted)")

	return cmd
}

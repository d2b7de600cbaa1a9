package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// publishKeysCmd rotates the signed prekey and uploads a fresh batch of
// one-time prekeys. Run it periodically, or when the relay reports the
// one-time pool is running low.
func publishKeysCmd() *cobra.Command {
	var opkCount int

	cmd := &cobra.Command{
		Use:   "publish-keys",
		Short: "Rotate the signed prekey and refill one-time prekeys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			prof, err := account()
			if err != nil {
				return err
			}
			bundle, err := appCtx.Prekeys.GenerateAndStore(passphrase, opkCount)
			if err != nil {
				return err
			}
			if err := appCtx.Relay.PublishBundle(cmd.Context(), prof.Token, bundle); err != nil {
				return err
			}
			fmt.Printf("Published signed prekey %s and %d one-time prekeys\n",
				bundle.SignedPrekeyID, len(bundle.OneTime))
			return nil
		},
	}
	cmd.Flags().IntVar(&opkCount, "opks", 10, "number of one-time prekeys to publish")
	return cmd
}

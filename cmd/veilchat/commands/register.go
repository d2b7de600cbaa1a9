package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"veilchat/internal/domain"
)

func registerCmd() *cobra.Command {
	var opkCount int

	cmd := &cobra.Command{
		Use:   "register <handle> <secret>",
		Short: "Create a relay account and publish your prekey bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			handle, secret := args[0], args[1]

			token, principal, err := appCtx.Relay.Register(cmd.Context(), handle, secret)
			if err != nil {
				return err
			}
			if err := appCtx.Accounts.SaveAccountProfile(domain.AccountProfile{
				ServerURL:   relayURL,
				PrincipalID: principal.ID,
				Handle:      principal.Handle,
				Token:       token,
			}); err != nil {
				return err
			}

			// New accounts publish immediately so peers can start sessions.
			bundle, err := appCtx.Prekeys.GenerateAndStore(passphrase, opkCount)
			if err != nil {
				return err
			}
			if err := appCtx.Relay.PublishBundle(cmd.Context(), token, bundle); err != nil {
				return err
			}

			fmt.Printf("Registered as %s (%s) and published %d one-time prekeys\n",
				principal.Handle, principal.ID, len(bundle.OneTime))
			return nil
		},
	}
	cmd.Flags().IntVar(&opkCount, "opks", 10, "number of one-time prekeys to publish")
	return cmd
}

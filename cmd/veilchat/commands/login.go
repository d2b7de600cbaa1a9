package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"veilchat/internal/domain"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <handle> <secret>",
		Short: "Authenticate against the relay and store the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, secret := args[0], args[1]

			token, principal, err := appCtx.Relay.Login(cmd.Context(), handle, secret)
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
			fmt.Printf("Logged in as %s\n", principal.Handle)
			return nil
		},
	}
}

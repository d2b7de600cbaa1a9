package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-contact <handle>",
		Short: "Add a contact by handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := account()
			if err != nil {
				return err
			}
			peer, err := appCtx.Relay.AddContact(cmd.Context(), prof.Token, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Added %s (%s)\n", peer.Handle, peer.ID)
			return nil
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := account()
			if err != nil {
				return err
			}
			peers, err := appCtx.Relay.Contacts(cmd.Context(), prof.Token)
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Println("No contacts yet")
				return nil
			}
			for _, p := range peers {
				fmt.Printf("%s\t%s\n", p.Handle, p.ID)
			}
			return nil
		},
	}
}

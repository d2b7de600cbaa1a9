package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			prof, err := account()
			if err != nil {
				return err
			}
			peerID, err := resolvePeer(cmd.Context(), prof.Token, args[0])
			if err != nil {
				return err
			}
			if err := appCtx.Messages.Send(cmd.Context(), passphrase, prof.Token, peerID, []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}

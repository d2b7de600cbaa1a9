package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// history <peer>: fetch the stored conversation from the relay and decrypt
// it locally. Own messages are rendered from the sender echo; everything
// else comes from the ratchet or the local message log.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <peer>",
		Short: "Replay and decrypt the stored conversation with a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			prof, err := account()
			if err != nil {
				return err
			}
			peers, err := appCtx.Relay.Contacts(cmd.Context(), prof.Token)
			if err != nil {
				return err
			}
			peerID, err := resolvePeer(cmd.Context(), prof.Token, args[0])
			if err != nil {
				return err
			}
			msgs, err := appCtx.Messages.History(cmd.Context(), passphrase, prof.Token, prof.PrincipalID, peerID)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				label := prof.Handle
				if m.SenderID != prof.PrincipalID {
					label = peerLabel(peers, m.SenderID)
				}
				ts := time.UnixMilli(m.Timestamp).Local().Format("15:04:05")
				fmt.Printf("[%s] %s: %s\n", ts, label, string(m.Plaintext))
			}
			return nil
		},
	}
}

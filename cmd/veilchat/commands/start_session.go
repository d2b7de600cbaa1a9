package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// startSessionCmd claims the peer's prekey bundle, runs the X3DH handshake
// and persists the resulting session for future messaging.
func startSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>",
		Short: "Establish a secure session with a contact",
		Args:  cobra.ExactArgs(1),
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
			if _, err := appCtx.Sessions.Initiate(cmd.Context(), passphrase, prof.Token, peerID); err != nil {
				return fmt.Errorf("starting session with %q: %w", args[0], err)
			}
			fmt.Printf("Session established with %s\n", args[0])
			return nil
		},
	}
}

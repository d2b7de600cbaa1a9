package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// watch: hold the websocket open and decrypt messages as they arrive.
// Runs until interrupted.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream and decrypt live messages",
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			envs, err := appCtx.Relay.Listen(ctx, prof.Token)
			if err != nil {
				return err
			}
			fmt.Println("Listening (ctrl-c to stop)")
			for env := range envs {
				msg, err := appCtx.Messages.Decrypt(passphrase, env)
				if err != nil {
					fmt.Fprintf(os.Stderr, "failed to decrypt %s: %v\n", env.ID, err)
					continue
				}
				ts := time.UnixMilli(msg.Timestamp).Local().Format("15:04:05")
				fmt.Printf("[%s] %s: %s\n", ts, peerLabel(peers, msg.SenderID), string(msg.Plaintext))
			}
			if ctx.Err() != nil {
				return nil
			}
			// The relay closed the stream, usually because this account
			// connected from somewhere else.
			return fmt.Errorf("connection closed by relay")
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"veilchat/internal/app"
	"veilchat/internal/domain"
)

var (
	home       string
	passphrase string
	relayURL   string

	appCtx *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "veilchat",
		Short: "End-to-end encrypted chat CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".veilchat")
			}
			var err error
			appCtx, err = app.NewWire(app.Config{Home: home, RelayURL: relayURL})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.veilchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting local keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "http://127.0.0.1:8080", "relay base URL")

	root.AddCommand(
		initCmd(), fingerprintCmd(),
		registerCmd(), loginCmd(),
		addContactCmd(), contactsCmd(),
		publishKeysCmd(), startSessionCmd(),
		sendCmd(), historyCmd(), watchCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

// account loads the stored profile for the configured relay. Commands that
// need a token call this instead of asking for credentials again.
func account() (domain.AccountProfile, error) {
	prof, ok, err := appCtx.Accounts.LoadAccountProfile(relayURL)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	if !ok {
		return domain.AccountProfile{}, fmt.Errorf("not logged in to %s (run register or login first)", relayURL)
	}
	return prof, nil
}

// resolvePeer turns a handle or principal id into a principal id by
// consulting the contact list.
func resolvePeer(ctx context.Context, token, ref string) (string, error) {
	peers, err := appCtx.Relay.Contacts(ctx, token)
	if err != nil {
		return "", err
	}
	for _, p := range peers {
		if p.Handle == ref || p.ID == ref {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("%q is not a contact (run add-contact first)", ref)
}

// peerLabel maps a principal id back to a handle for display.
func peerLabel(peers []domain.PrincipalIdentity, id string) string {
	for _, p := range peers {
		if p.ID == id {
			return p.Handle
		}
	}
	return shortID(id)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

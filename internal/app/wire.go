package app

import (
	"os"

	"veilchat/internal/domain"
	"veilchat/internal/relay"
	identitysvc "veilchat/internal/services/identity"
	messagesvc "veilchat/internal/services/message"
	prekeysvc "veilchat/internal/services/prekey"
	sessionsvc "veilchat/internal/services/session"
	"veilchat/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Identity domain.IdentityService
	Prekeys  domain.PrekeyService
	Sessions domain.SessionService
	Messages domain.MessageService
	Accounts domain.AccountStore
	Relay    domain.RelayClient
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	identityStore := store.NewIdentityFileStore(cfg.Home)
	prekeyStore := store.NewPrekeyFileStore(cfg.Home)
	sessionStore := store.NewSessionFileStore(cfg.Home)
	ratchetStore := store.NewRatchetFileStore(cfg.Home)
	messageLog := store.NewMessageLogFileStore(cfg.Home)
	accountStore := store.NewAccountFileStore(cfg.Home)

	rc := relay.New(cfg.RelayURL, cfg.HTTP)

	identitySvc := identitysvc.New(identityStore)
	prekeySvc := prekeysvc.New(identityStore, prekeyStore)
	sessionSvc := sessionsvc.New(identityStore, sessionStore, rc)
	messageSvc := messagesvc.New(identityStore, prekeyStore, ratchetStore, messageLog, sessionSvc, rc)

	return &Wire{
		Identity: identitySvc,
		Prekeys:  prekeySvc,
		Sessions: sessionSvc,
		Messages: messageSvc,
		Accounts: accountStore,
		Relay:    rc,
	}, nil
}

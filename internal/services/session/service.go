package session

import (
	"context"
	"time"

	"veilchat/internal/domain"
	"veilchat/internal/protocol/x3dh"
)

// Service performs X3DH initiation and persists sessions.
//
// A session is the shared root key and associated metadata needed to start
// a Double Ratchet conversation with a peer. This service handles:
//   - Loading our own identity keys.
//   - Claiming the peer's key bundle from the relay.
//   - Running the X3DH key agreement as the initiator.
//   - Persisting the resulting session for later message encryption.
type Service struct {
	idStore      domain.IdentityStore
	sessionStore domain.SessionStore
	relayClient  domain.RelayClient
}

// New constructs a session service with the given stores and relay client.
func New(idStore domain.IdentityStore, sessionStore domain.SessionStore, relayClient domain.RelayClient) *Service {
	return &Service{
		idStore:      idStore,
		sessionStore: sessionStore,
		relayClient:  relayClient,
	}
}

// Initiate claims peerID's bundle from the relay, runs X3DH against it,
// and stores the resulting session. The bundle's signed prekey signature
// is verified inside the handshake; a tampered bundle never produces a
// session.
func (s *Service) Initiate(ctx context.Context, passphrase, token, peerID string) (domain.Session, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.Session{}, err
	}

	bundle, err := s.relayClient.ExchangeKeys(ctx, token, peerID)
	if err != nil {
		return domain.Session{}, err
	}

	root, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(id, bundle)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		PeerID:      peerID,
		RootKey:     root,
		PeerSPK:     bundle.SignedPrekey,
		PeerIK:      bundle.IdentityKey,
		CreatedUTC:  time.Now().Unix(),
		SPKID:       spkID,
		OPKID:       opkID,
		InitiatorEK: ephPub,
	}
	if err := s.sessionStore.SaveSession(peerID, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Get retrieves a stored session for the given peer.
func (s *Service) Get(peerID string) (domain.Session, bool, error) {
	return s.sessionStore.LoadSession(peerID)
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)

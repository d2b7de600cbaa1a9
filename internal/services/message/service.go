package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"veilchat/internal/domain"
	"veilchat/internal/protocol/ratchet"
	"veilchat/internal/protocol/x3dh"
)

// ErrNoSession indicates there is no stored session with the peer.
var ErrNoSession = errors.New("no session with peer; start a session first")

// Service sends and receives messages over the relay using Double Ratchet.
//
// High-level flow:
//   - Send: if no conversation exists, include a PrekeyMessage so the
//     receiver can bootstrap a session, then encrypt with Double Ratchet
//     and push via the relay.
//   - Decrypt: bootstrap a session from the sender's PrekeyMessage if
//     needed, decrypt, persist ratchet state, and record the plaintext in
//     the local log.
type Service struct {
	idStore        domain.IdentityStore
	prekeyStore    domain.PrekeyStore
	ratchetStore   domain.RatchetStore
	messageLog     domain.MessageLogStore
	sessionService domain.SessionService
	relayClient    domain.RelayClient
}

// New constructs a message service with the given stores and relay client.
func New(
	idStore domain.IdentityStore,
	prekeyStore domain.PrekeyStore,
	ratchetStore domain.RatchetStore,
	messageLog domain.MessageLogStore,
	sessionService domain.SessionService,
	relayClient domain.RelayClient,
) *Service {
	return &Service{
		idStore:        idStore,
		prekeyStore:    prekeyStore,
		ratchetStore:   ratchetStore,
		messageLog:     messageLog,
		sessionService: sessionService,
		relayClient:    relayClient,
	}
}

// Send encrypts plaintext for peerID and pushes it through the relay.
//
// The first message of a conversation carries a PrekeyMessage so the
// receiver can run X3DH as the responder. The plaintext travels alongside
// as the sender echo so our own history stays readable; it is visible to
// the relay only for our own messages, never the peer's.
func (s *Service) Send(ctx context.Context, passphrase, token, peerID string, plaintext []byte) error {
	conv, found, err := s.ratchetStore.LoadConversation(peerID)
	if err != nil {
		return err
	}

	var prekey *domain.PrekeyMessage
	if !found {
		// An established session is only needed to open the conversation;
		// a responder replying on a bootstrapped ratchet has none.
		sess, ok, err := s.sessionService.Get(peerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSession
		}

		// No existing conversation: we are the initiator. Seed a fresh
		// ratchet from the session root and attach the PrekeyMessage the
		// responder needs to derive the same root.
		id, err := s.idStore.LoadIdentity(passphrase)
		if err != nil {
			return err
		}
		st, err := ratchet.InitAsInitiator(sess.RootKey, sess.PeerIK)
		if err != nil {
			return err
		}
		conv = domain.Conversation{PeerID: peerID, State: st}

		prekey = &domain.PrekeyMessage{
			InitiatorIK: id.XPub,
			Ephemeral:   sess.InitiatorEK,
			SPKID:       sess.SPKID,
			OPKID:       sess.OPKID,
		}
	}

	header, ct, err := ratchet.Encrypt(&conv.State, nil, plaintext)
	if err != nil {
		return err
	}

	// Persist updated ratchet state before sending so a crash between the
	// two steps cannot reuse a message key.
	if err := s.ratchetStore.SaveConversation(peerID, conv); err != nil {
		return err
	}

	payload, err := json.Marshal(domain.Payload{
		Header: header,
		Cipher: ct,
		Prekey: prekey, // present only for the first message of a conversation
	})
	if err != nil {
		return err
	}
	return s.relayClient.Send(ctx, token, peerID, payload, string(plaintext))
}

// Decrypt opens one inbound envelope from a peer, advancing (or
// bootstrapping) the ratchet, and records the result in the local log.
func (s *Service) Decrypt(passphrase string, env domain.MessageEnvelope) (domain.DecryptedMessage, error) {
	// Replayed envelope: serve from the log, the message key is long gone.
	if logged, err := s.messageLog.LoadLog(env.SenderID); err == nil {
		if entry, ok := logged[env.ID]; ok {
			return entry, nil
		}
	}

	var payload domain.Payload
	if err := json.Unmarshal(env.Ciphertext, &payload); err != nil {
		return domain.DecryptedMessage{}, fmt.Errorf("malformed payload from %q: %w", env.SenderID, err)
	}

	conv, found, err := s.ratchetStore.LoadConversation(env.SenderID)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	if !found {
		conv, err = s.bootstrapResponder(passphrase, env.SenderID, payload)
		if err != nil {
			return domain.DecryptedMessage{}, err
		}
	}

	plain, err := ratchet.Decrypt(&conv.State, payload.AD, payload.Header, payload.Cipher)
	if err != nil {
		return domain.DecryptedMessage{}, fmt.Errorf("decrypt from %q: %w", env.SenderID, err)
	}

	// Persist advanced chains after a successful decrypt.
	if err := s.ratchetStore.SaveConversation(env.SenderID, conv); err != nil {
		return domain.DecryptedMessage{}, err
	}

	msg := domain.DecryptedMessage{
		ID:        env.ID,
		SenderID:  env.SenderID,
		PeerID:    env.SenderID,
		Plaintext: plain,
		Timestamp: env.Timestamp,
	}
	if err := s.messageLog.SaveLogEntry(msg); err != nil {
		return domain.DecryptedMessage{}, err
	}
	return msg, nil
}

// bootstrapResponder derives the conversation state for the first message
// from a new peer using the attached PrekeyMessage.
func (s *Service) bootstrapResponder(passphrase, senderID string, payload domain.Payload) (domain.Conversation, error) {
	if payload.Prekey == nil {
		return domain.Conversation{}, fmt.Errorf("first message from %q carries no prekey material", senderID)
	}
	if len(payload.Header.DHPub) != 32 {
		return domain.Conversation{}, fmt.Errorf("first message from %q has a malformed ratchet header", senderID)
	}
	if payload.Prekey.SPKID == "" {
		return domain.Conversation{}, fmt.Errorf("prekey message from %q names no signed prekey", senderID)
	}

	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.Conversation{}, err
	}

	spkPriv, _, _, ok, err := s.prekeyStore.LoadSignedPrekey(payload.Prekey.SPKID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, fmt.Errorf("signed prekey %q not found", payload.Prekey.SPKID)
	}

	// The one-time prekey is consumed here; a replay of the same OPKID
	// finds nothing and falls back to the three-DH root.
	var opkPriv *domain.X25519Private
	if payload.Prekey.OPKID != "" {
		p, _, ok, err := s.prekeyStore.ConsumeOneTimePair(payload.Prekey.OPKID)
		if err != nil {
			return domain.Conversation{}, err
		}
		if ok {
			opkPriv = &p
		}
	}

	root, err := x3dh.ResponderRoot(id, spkPriv, opkPriv, *payload.Prekey)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("responder key agreement: %w", err)
	}

	var senderPub domain.X25519Public
	copy(senderPub[:], payload.Header.DHPub)
	st, err := ratchet.InitAsResponder(root, id.XPriv, senderPub)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{PeerID: senderID, State: st}, nil
}

// History fetches the stored conversation with peerID and returns it as
// plaintext, oldest first. Our own messages come back via the sender echo;
// the peer's messages come from the local log or are decrypted on the fly.
func (s *Service) History(ctx context.Context, passphrase, token, selfID, peerID string) ([]domain.DecryptedMessage, error) {
	envs, err := s.relayClient.History(ctx, token, peerID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	for _, env := range envs {
		if env.SenderID == selfID {
			out = append(out, domain.DecryptedMessage{
				ID:        env.ID,
				SenderID:  selfID,
				PeerID:    peerID,
				Plaintext: []byte(env.Echo),
				Timestamp: env.Timestamp,
			})
			continue
		}
		msg, err := s.Decrypt(passphrase, env)
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)

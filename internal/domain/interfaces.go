package domain

import "context"

// Client-side store interfaces. All state lives under the user's home
// directory, encrypted with their passphrase where it contains secrets.

// IdentityStore persists the local long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}

// PrekeyStore manages the client's own signed and one-time prekey pairs.
type PrekeyStore interface {
	SaveSignedPrekey(id string, priv X25519Private, pub X25519Public, sig []byte) error
	LoadSignedPrekey(id string) (priv X25519Private, pub X25519Public, sig []byte, ok bool, err error)

	SaveOneTimePairs(pairs []OneTimePair) error
	ConsumeOneTimePair(id string) (priv X25519Private, pub X25519Public, ok bool, err error)
	ListOneTimePublics() ([]OneTimePub, error)

	SetCurrentSPKID(id string) error
	CurrentSPKID() (string, bool, error)
}

// OneTimePair is the full (private+public) one-time prekey stored locally.
type OneTimePair struct {
	ID   string        `json:"id"`
	Priv X25519Private `json:"priv"`
	Pub  X25519Public  `json:"pub"`
}

// SessionStore persists established X3DH sessions keyed by peer principal id.
type SessionStore interface {
	SaveSession(peerID string, session Session) error
	LoadSession(peerID string) (Session, bool, error)
}

// RatchetStore keeps per-peer Double Ratchet state.
type RatchetStore interface {
	SaveConversation(peerID string, conv Conversation) error
	LoadConversation(peerID string) (Conversation, bool, error)
}

// MessageLogStore keeps the local plaintext log of processed messages,
// keyed by envelope id. Ratchet message keys are deleted after use, so a
// decrypted message must be logged if it is to be displayed again.
type MessageLogStore interface {
	SaveLogEntry(entry DecryptedMessage) error
	LoadLog(peerID string) (map[string]DecryptedMessage, error)
}

// AccountStore persists relay account profiles (including the bearer token).
type AccountStore interface {
	SaveAccountProfile(profile AccountProfile) error
	LoadAccountProfile(serverURL string) (AccountProfile, bool, error)
}

// RelayClient is how a client talks to the relay server.
type RelayClient interface {
	// Unauthenticated.
	Register(ctx context.Context, handle, secret string) (token string, principal PrincipalIdentity, err error)
	Login(ctx context.Context, handle, secret string) (token string, principal PrincipalIdentity, err error)

	// Authenticated with the bearer token.
	AddContact(ctx context.Context, token, handle string) (PrincipalIdentity, error)
	Contacts(ctx context.Context, token string) ([]PrincipalIdentity, error)
	PublishBundle(ctx context.Context, token string, bundle PrekeyBundle) error
	ExchangeKeys(ctx context.Context, token, contactID string) (PrekeyBundle, error)
	History(ctx context.Context, token, contactID string) ([]MessageEnvelope, error)

	// Listen opens the persistent transport. Inbound envelopes are delivered
	// on the returned channel until ctx is cancelled or the connection drops.
	// Send pushes an envelope over the open transport.
	Listen(ctx context.Context, token string) (<-chan MessageEnvelope, error)
	Send(ctx context.Context, token string, recipientID string, ciphertext []byte, echo string) error
}

// Client-side service interfaces, one per concern, mirroring the packages
// under internal/services.

// IdentityService creates and inspects the local identity keys.
type IdentityService interface {
	Generate(passphrase string) (Identity, string, error) // returns fingerprint
	Load(passphrase string) (Identity, error)
	Fingerprint(passphrase string) (string, error)
}

// PrekeyService generates prekey pairs and assembles the public bundle.
type PrekeyService interface {
	GenerateAndStore(passphrase string, n int) (PrekeyBundle, error)
}

// SessionService establishes or retrieves an X3DH session.
type SessionService interface {
	Initiate(ctx context.Context, passphrase, token, peerID string) (Session, error)
	Get(peerID string) (Session, bool, error)
}

// MessageService encrypts, sends, decrypts, and replays messages.
type MessageService interface {
	Send(ctx context.Context, passphrase, token, peerID string, plaintext []byte) error
	Decrypt(passphrase string, env MessageEnvelope) (DecryptedMessage, error)
	History(ctx context.Context, passphrase, token, selfID, peerID string) ([]DecryptedMessage, error)
}

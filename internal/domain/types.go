package domain

// Identity holds the long-term keys stored locally on a client.
type Identity struct {
	XPub   X25519Public
	XPriv  X25519Private
	EdPub  Ed25519Public
	EdPriv Ed25519Private
}

// OneTimePub is a published one-time prekey (public only) with an ID.
type OneTimePub struct {
	ID  string       `json:"id"`
	Pub X25519Public `json:"pub"`
}

// PrekeyBundle is the public key material a principal publishes so peers
// can initiate a session. When served to an initiator, OneTime holds at
// most one claimed key; when published it holds the full fresh batch.
type PrekeyBundle struct {
	PrincipalID     string        `json:"principal_id,omitempty"`
	RegistrationID  uint32        `json:"registration_id"`
	IdentityKey     X25519Public  `json:"identity_key"`
	SigningKey      Ed25519Public `json:"signing_key"`
	SignedPrekeyID  string        `json:"signed_prekey_id"`
	SignedPrekey    X25519Public  `json:"signed_prekey"`
	SignedPrekeySig []byte        `json:"signed_prekey_sig"`
	OneTime         []OneTimePub  `json:"one_time,omitempty"`
}

// RatchetHeader accompanies each ciphertext.
type RatchetHeader struct {
	DHPub []byte `json:"dh_pub"` // 32 bytes
	PN    uint32 `json:"pn"`
	N     uint32 `json:"n"`
}

// PrekeyMessage is attached to the first payload from the initiator so the
// responder can derive the session without querying the bundle store.
type PrekeyMessage struct {
	InitiatorIK X25519Public `json:"initiator_ik"` // IK_A
	Ephemeral   X25519Public `json:"ephemeral"`    // EK_A
	SPKID       string       `json:"spk_id"`
	OPKID       string       `json:"opk_id,omitempty"`
}

// Payload is the plaintext-opaque content of a message envelope. Clients
// JSON-encode it into MessageEnvelope.Ciphertext; the relay never parses it.
type Payload struct {
	Header RatchetHeader  `json:"header"`
	Cipher []byte         `json:"cipher"`
	AD     []byte         `json:"ad,omitempty"`
	Prekey *PrekeyMessage `json:"prekey,omitempty"` // first message of a conversation only
}

// Session is produced by X3DH; RootKey seeds the Double Ratchet.
// It exists only on the two clients, never on the relay.
type Session struct {
	PeerID     string       `json:"peer_id"`
	RootKey    []byte       `json:"root_key"`
	PeerSPK    X25519Public `json:"peer_spk"`
	PeerIK     X25519Public `json:"peer_ik"`
	CreatedUTC int64        `json:"created_utc"`

	// X3DH parameters used by the initiator; echoed in the first PrekeyMessage.
	SPKID       string       `json:"spk_id"`
	OPKID       string       `json:"opk_id,omitempty"`
	InitiatorEK X25519Public `json:"initiator_ek"`
}

// Conversation stores per-peer ratchet state.
type Conversation struct {
	PeerID string       `json:"peer_id"`
	State  RatchetState `json:"state"`
}

// RatchetState holds Double Ratchet state.
type RatchetState struct {
	RootKey []byte        `json:"root_key"`
	DHPriv  X25519Private `json:"dh_priv"`
	DHPub   X25519Public  `json:"dh_pub"`

	PeerDHPub X25519Public `json:"peer_dh_pub"`

	SendCK []byte `json:"send_ck,omitempty"`
	RecvCK []byte `json:"recv_ck,omitempty"`

	Ns uint32 `json:"ns"`
	Nr uint32 `json:"nr"`
	PN uint32 `json:"pn"`

	Skipped map[string][]byte `json:"skipped,omitempty"`
}

// DecryptedMessage is what the client message service returns.
type DecryptedMessage struct {
	ID        string
	SenderID  string
	PeerID    string
	Plaintext []byte
	Timestamp int64
}

// AccountProfile identifies a veilchat account on a specific relay server.
// The bearer token is stored alongside so the CLI survives restarts within
// the token validity window.
type AccountProfile struct {
	ServerURL   string `json:"server_url"`
	PrincipalID string `json:"principal_id"`
	Handle      string `json:"handle"`
	Token       string `json:"token"`
}

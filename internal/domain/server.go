package domain

// Principal is a registered identity on the relay.
//
// ID and Handle are immutable after registration. RegistrationID and the
// public keys are set when the principal first publishes a bundle and only
// change when key material is re-registered.
type Principal struct {
	ID               string
	Handle           string
	CredentialSalt   []byte
	CredentialDigest []byte
	RegistrationID   uint32
	IdentityKey      X25519Public
	SigningKey       Ed25519Public
	CreatedAt        int64
}

// PrincipalIdentity is the authenticated identity extracted from a token.
type PrincipalIdentity struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// ContactEdge records that Owner added Peer as a contact. Edges are
// one-directional; a mutual contact has two edges.
type ContactEdge struct {
	OwnerID   string
	PeerID    string
	CreatedAt int64
}

// MessageEnvelope is the persisted unit of a message transfer. Immutable
// once stored. IDs sort in generation order within a timestamp so the pair
// (Timestamp, ID) is a stable ordering key.
type MessageEnvelope struct {
	ID          string `json:"id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Ciphertext  []byte `json:"ciphertext"`
	Echo        string `json:"echo,omitempty"` // sender's own copy for local display
	Timestamp   int64  `json:"timestamp"`      // unix milliseconds
}

// PreKeyRecord is a stored one-time prekey public. It is handed out to at
// most one initiator and deleted in the same transaction.
type PreKeyRecord struct {
	OwnerID string
	KeyID   string
	Pub     X25519Public
}

// SignedPreKeyRecord is the current rotating signed prekey of a principal.
type SignedPreKeyRecord struct {
	OwnerID string
	KeyID   string
	Pub     X25519Public
	Sig     []byte
}

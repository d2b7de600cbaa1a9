package domain

import "context"

// Server-side store interfaces, implemented by internal/storage. Lookup and
// mutation errors use the package taxonomy; infrastructure failures are
// wrapped in ErrStoreUnavailable.

// PrincipalStore persists registered principals.
type PrincipalStore interface {
	// CreatePrincipal inserts p. Returns ErrConflict if the handle is taken
	// (case-sensitive exact match).
	CreatePrincipal(ctx context.Context, p Principal) error
	PrincipalByHandle(ctx context.Context, handle string) (Principal, error)
	PrincipalByID(ctx context.Context, id string) (Principal, error)
	// SetKeyMaterial records the published identity key material.
	SetKeyMaterial(ctx context.Context, id string, identity X25519Public, signing Ed25519Public, registrationID uint32) error
}

// ContactStore persists contact edges.
type ContactStore interface {
	// AddEdge inserts (ownerID, peerID). Returns ErrConflict on duplicate.
	AddEdge(ctx context.Context, ownerID, peerID string) error
	HasEdge(ctx context.Context, ownerID, peerID string) (bool, error)
	// ListPeers returns the owner's contacts ordered by insertion time.
	ListPeers(ctx context.Context, ownerID string) ([]Principal, error)
}

// EnvelopeStore persists message envelopes.
type EnvelopeStore interface {
	Append(ctx context.Context, env MessageEnvelope) error
	// Between returns every envelope exchanged between a and b, in either
	// direction, ordered ascending by (timestamp, id).
	Between(ctx context.Context, a, b string) ([]MessageEnvelope, error)
}

// BundleStore persists published prekey material.
type BundleStore interface {
	// ReplaceSignedPrekey swaps the owner's current signed prekey.
	ReplaceSignedPrekey(ctx context.Context, rec SignedPreKeyRecord) error
	// AddOneTimePrekeys appends a batch without touching unconsumed keys.
	AddOneTimePrekeys(ctx context.Context, recs []PreKeyRecord) error
	// SignedPrekey returns the current signed prekey or ErrNotFound.
	SignedPrekey(ctx context.Context, ownerID string) (SignedPreKeyRecord, error)
	// ClaimOneTimePrekey atomically removes and returns one unconsumed key,
	// or nil if the owner has none left. Two concurrent claims never
	// observe the same key.
	ClaimOneTimePrekey(ctx context.Context, ownerID string) (*PreKeyRecord, error)
}

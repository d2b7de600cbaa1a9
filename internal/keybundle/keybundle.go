// Package keybundle stores published prekey bundles and serves them to
// session initiators. Publishing verifies the signed prekey signature
// before anything touches the store; serving claims at most one one-time
// prekey per request.
package keybundle

import (
	"context"
	"fmt"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
)

// Service mediates between the bundle store and the principal records
// holding the long-term key material.
type Service struct {
	principals domain.PrincipalStore
	bundles    domain.BundleStore
	contacts   domain.ContactStore
}

func New(principals domain.PrincipalStore, bundles domain.BundleStore, contacts domain.ContactStore) *Service {
	return &Service{principals: principals, bundles: bundles, contacts: contacts}
}

// Publish validates and stores ownerID's bundle. The signed prekey
// signature is checked against the signing key in the same bundle; a
// bundle that fails its own signature never reaches the store.
func (s *Service) Publish(ctx context.Context, ownerID string, b domain.PrekeyBundle) error {
	if b.SignedPrekeyID == "" {
		return fmt.Errorf("missing signed prekey id: %w", domain.ErrInvalidInput)
	}
	if !crypto.VerifyEd25519(b.SigningKey, b.SignedPrekey.Slice(), b.SignedPrekeySig) {
		return fmt.Errorf("signed prekey signature invalid: %w", domain.ErrIntegrity)
	}

	if err := s.principals.SetKeyMaterial(ctx, ownerID, b.IdentityKey, b.SigningKey, b.RegistrationID); err != nil {
		return err
	}
	if err := s.bundles.ReplaceSignedPrekey(ctx, domain.SignedPreKeyRecord{
		OwnerID: ownerID,
		KeyID:   b.SignedPrekeyID,
		Pub:     b.SignedPrekey,
		Sig:     b.SignedPrekeySig,
	}); err != nil {
		return err
	}

	recs := make([]domain.PreKeyRecord, 0, len(b.OneTime))
	for _, otk := range b.OneTime {
		if otk.ID == "" {
			return fmt.Errorf("one-time prekey missing id: %w", domain.ErrInvalidInput)
		}
		recs = append(recs, domain.PreKeyRecord{OwnerID: ownerID, KeyID: otk.ID, Pub: otk.Pub})
	}
	return s.bundles.AddOneTimePrekeys(ctx, recs)
}

// Claim assembles contactID's bundle for requesterID, consuming one
// one-time prekey if any remain. The requester must already have the
// contact; a bundle is never served across a missing edge.
func (s *Service) Claim(ctx context.Context, requesterID, contactID string) (domain.PrekeyBundle, error) {
	ok, err := s.contacts.HasEdge(ctx, requesterID, contactID)
	if err != nil {
		return domain.PrekeyBundle{}, err
	}
	if !ok {
		return domain.PrekeyBundle{}, fmt.Errorf("%q is not a contact: %w", contactID, domain.ErrNotFound)
	}

	peer, err := s.principals.PrincipalByID(ctx, contactID)
	if err != nil {
		return domain.PrekeyBundle{}, err
	}
	spk, err := s.bundles.SignedPrekey(ctx, contactID)
	if err != nil {
		return domain.PrekeyBundle{}, fmt.Errorf("no published bundle for %q: %w", contactID, err)
	}

	bundle := domain.PrekeyBundle{
		PrincipalID:     peer.ID,
		RegistrationID:  peer.RegistrationID,
		IdentityKey:     peer.IdentityKey,
		SigningKey:      peer.SigningKey,
		SignedPrekeyID:  spk.KeyID,
		SignedPrekey:    spk.Pub,
		SignedPrekeySig: spk.Sig,
	}

	otk, err := s.bundles.ClaimOneTimePrekey(ctx, contactID)
	if err != nil {
		return domain.PrekeyBundle{}, err
	}
	if otk != nil {
		bundle.OneTime = []domain.OneTimePub{{ID: otk.KeyID, Pub: otk.Pub}}
	}
	return bundle, nil
}

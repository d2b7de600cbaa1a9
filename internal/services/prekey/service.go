package prekey

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/google/uuid"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
)

// Service manages prekey pairs and builds the public bundle.
type Service struct {
	ids domain.IdentityStore
	ps  domain.PrekeyStore
}

func New(ids domain.IdentityStore, ps domain.PrekeyStore) *Service {
	return &Service{ids: ids, ps: ps}
}

// GenerateAndStore creates a signed prekey pair and n one-time pairs,
// marks the new signed prekey as current, and returns the public bundle
// ready for publication. Private halves never leave the local store.
func (s *Service) GenerateAndStore(passphrase string, n int) (domain.PrekeyBundle, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.PrekeyBundle{}, err
	}

	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.PrekeyBundle{}, err
	}
	spkID := "spk-" + uuid.NewString()
	sig := crypto.SignEd25519(id.EdPriv, spkPub.Slice())
	if err := s.ps.SaveSignedPrekey(spkID, spkPriv, spkPub, sig); err != nil {
		return domain.PrekeyBundle{}, err
	}
	if err := s.ps.SetCurrentSPKID(spkID); err != nil {
		return domain.PrekeyBundle{}, err
	}

	pairs := make([]domain.OneTimePair, 0, n)
	publics := make([]domain.OneTimePub, 0, n)
	for i := 0; i < n; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return domain.PrekeyBundle{}, err
		}
		otkID := "opk-" + uuid.NewString()
		pairs = append(pairs, domain.OneTimePair{ID: otkID, Priv: priv, Pub: pub})
		publics = append(publics, domain.OneTimePub{ID: otkID, Pub: pub})
	}
	if err := s.ps.SaveOneTimePairs(pairs); err != nil {
		return domain.PrekeyBundle{}, err
	}

	return domain.PrekeyBundle{
		RegistrationID:  registrationID(id),
		IdentityKey:     id.XPub,
		SigningKey:      id.EdPub,
		SignedPrekeyID:  spkID,
		SignedPrekey:    spkPub,
		SignedPrekeySig: sig,
		OneTime:         publics,
	}, nil
}

// registrationID derives a stable identifier from the identity public key
// so republished bundles carry the same value.
func registrationID(id domain.Identity) uint32 {
	sum := sha256.Sum256(id.XPub.Slice())
	return binary.BigEndian.Uint32(sum[:4])
}

// Compile-time assertion that Service implements domain.PrekeyService.
var _ domain.PrekeyService = (*Service)(nil)

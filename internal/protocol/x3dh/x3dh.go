package x3dh

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
	"veilchat/internal/util/memzero"
)

const rootKeySize = 32

// hkdfInfo binds derived roots to this protocol.
var hkdfInfo = []byte("veilchat-x3dh-v1")

// InitiatorRoot runs X3DH as the initiator against the peer's bundle.
//
// The signed prekey signature is verified against the peer's signing key
// before any DH is computed; a mismatch aborts with domain.ErrIntegrity.
// If the bundle carries a one-time prekey, it is used and its ID returned
// so the responder knows which private half to consume.
//
// Returns the root key, the SPK/OPK ids used, and the ephemeral public to
// echo in the first PrekeyMessage.
func InitiatorRoot(id domain.Identity, bundle domain.PrekeyBundle) (
	root []byte,
	spkID string,
	opkID string,
	ephPub domain.X25519Public,
	err error,
) {
	if !crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPrekey.Slice(), bundle.SignedPrekeySig) {
		return nil, "", "", ephPub,
			fmt.Errorf("signed prekey signature for %q: %w", bundle.PrincipalID, domain.ErrIntegrity)
	}

	ephPriv, ephPubGen, err := crypto.GenerateX25519()
	if err != nil {
		return nil, "", "", ephPub, err
	}
	ephPub = ephPubGen
	defer memzero.Zero(ephPriv[:])

	// DH1 = DH(IK_A, SPK_B), DH2 = DH(EK_A, IK_B), DH3 = DH(EK_A, SPK_B),
	// DH4 = DH(EK_A, OPK_B) when a one-time prekey is available.
	dh1, err := crypto.DH(id.XPriv, bundle.SignedPrekey)
	if err != nil {
		return nil, "", "", ephPub, err
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey)
	if err != nil {
		return nil, "", "", ephPub, err
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPrekey)
	if err != nil {
		return nil, "", "", ephPub, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)

	if len(bundle.OneTime) > 0 {
		opk := bundle.OneTime[0]
		dh4, err := crypto.DH(ephPriv, opk.Pub)
		if err != nil {
			return nil, "", "", ephPub, err
		}
		concat = append(concat, dh4[:]...)
		opkID = opk.ID
	}

	root = deriveRoot(concat)
	memzero.Zero(concat)
	return root, bundle.SignedPrekeyID, opkID, ephPub, nil
}

// ResponderRoot recomputes the root key on the responder side from the
// initiator's PrekeyMessage, our signed prekey private, and (when the
// initiator claimed one) the matching one-time prekey private.
func ResponderRoot(
	id domain.Identity,
	spkPriv domain.X25519Private,
	opkPriv *domain.X25519Private,
	pm domain.PrekeyMessage,
) ([]byte, error) {
	// Mirror of the initiator: DH1 = DH(SPK_B, IK_A), DH2 = DH(IK_B, EK_A),
	// DH3 = DH(SPK_B, EK_A), DH4 = DH(OPK_B, EK_A).
	dh1, err := crypto.DH(spkPriv, pm.InitiatorIK)
	if err != nil {
		return nil, err
	}
	dh2, err := crypto.DH(id.XPriv, pm.Ephemeral)
	if err != nil {
		return nil, err
	}
	dh3, err := crypto.DH(spkPriv, pm.Ephemeral)
	if err != nil {
		return nil, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)

	if opkPriv != nil {
		dh4, err := crypto.DH(*opkPriv, pm.Ephemeral)
		if err != nil {
			return nil, err
		}
		concat = append(concat, dh4[:]...)
	}

	root := deriveRoot(concat)
	memzero.Zero(concat)
	return root, nil
}

func deriveRoot(ikm []byte) []byte {
	r := hkdf.New(sha256.New, ikm, nil, hkdfInfo)
	root := make([]byte, rootKeySize)
	_, _ = io.ReadFull(r, root)
	return root
}

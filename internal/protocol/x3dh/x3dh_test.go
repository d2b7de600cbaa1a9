package x3dh_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
	"veilchat/internal/protocol/x3dh"
)

func makeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func makeBundle(t *testing.T, owner domain.Identity, withOPK bool) (domain.PrekeyBundle, domain.X25519Private, *domain.X25519Private) {
	t.Helper()
	spkPriv, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	b := domain.PrekeyBundle{
		PrincipalID:     "bob",
		IdentityKey:     owner.XPub,
		SigningKey:      owner.EdPub,
		SignedPrekeyID:  "spk-test",
		SignedPrekey:    spkPub,
		SignedPrekeySig: crypto.SignEd25519(owner.EdPriv, spkPub.Slice()),
	}

	var opkPriv *domain.X25519Private
	if withOPK {
		priv, pub, err := crypto.GenerateX25519()
		require.NoError(t, err)
		b.OneTime = []domain.OneTimePub{{ID: "opk-1", Pub: pub}}
		opkPriv = &priv
	}
	return b, spkPriv, opkPriv
}

func TestInitiatorAndResponderRoot_NoOneTimePrekey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, _ := makeBundle(t, bob, false)

	rootA, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	require.NoError(t, err)
	require.Equal(t, "spk-test", spkID)
	require.Empty(t, opkID)

	pm := domain.PrekeyMessage{
		InitiatorIK: alice.XPub,
		Ephemeral:   ephPub,
		SPKID:       spkID,
	}
	rootB, err := x3dh.ResponderRoot(bob, spkPriv, nil, pm)
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)
}

func TestInitiatorAndResponderRoot_WithOneTimePrekey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, spkPriv, opkPriv := makeBundle(t, bob, true)

	rootA, spkID, opkID, ephPub, err := x3dh.InitiatorRoot(alice, bundle)
	require.NoError(t, err)
	require.Equal(t, "opk-1", opkID)

	pm := domain.PrekeyMessage{
		InitiatorIK: alice.XPub,
		Ephemeral:   ephPub,
		SPKID:       spkID,
		OPKID:       opkID,
	}
	rootB, err := x3dh.ResponderRoot(bob, spkPriv, opkPriv, pm)
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)
}

func TestInitiatorRoot_RejectsBadSignature(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	bundle, _, _ := makeBundle(t, bob, false)

	// Corrupt the signature: the handshake must fail closed.
	bundle.SignedPrekeySig[0] ^= 0xff

	_, _, _, _, err := x3dh.InitiatorRoot(alice, bundle)
	require.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestInitiatorRoot_RejectsForeignSigningKey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	mallory := makeIdentity(t)

	bundle, _, _ := makeBundle(t, bob, false)
	bundle.SigningKey = mallory.EdPub

	_, _, _, _, err := x3dh.InitiatorRoot(alice, bundle)
	require.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestRootDiffersPerOneTimeKeyUse(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	withOPK, _, _ := makeBundle(t, bob, true)
	withoutOPK := withOPK
	withoutOPK.OneTime = nil

	rootWith, _, _, _, err := x3dh.InitiatorRoot(alice, withOPK)
	require.NoError(t, err)
	rootWithout, _, _, _, err := x3dh.InitiatorRoot(alice, withoutOPK)
	require.NoError(t, err)
	require.NotEqual(t, rootWith, rootWithout)
}

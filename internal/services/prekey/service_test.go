package prekey

import (
	"testing"

	"github.com/stretchr/testify/require"

	"veilchat/internal/crypto"
	"veilchat/internal/domain"
	"veilchat/internal/store"
)

const testPassphrase = "Correct-Horse-Battery-9"

func TestGenerateAndStoreBuildsVerifiableBundle(t *testing.T) {
	home := t.TempDir()
	idStore := store.NewIdentityFileStore(home)
	prekeyStore := store.NewPrekeyFileStore(home)

	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	require.NoError(t, idStore.SaveIdentity(testPassphrase, identityOf(xPriv, xPub, edPriv, edPub)))

	svc := New(idStore, prekeyStore)
	bundle, err := svc.GenerateAndStore(testPassphrase, 5)
	require.NoError(t, err)

	require.Equal(t, xPub, bundle.IdentityKey)
	require.Equal(t, edPub, bundle.SigningKey)
	require.Len(t, bundle.OneTime, 5)
	require.True(t, crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPrekey.Slice(), bundle.SignedPrekeySig))

	// The private halves are retrievable locally.
	cur, ok, err := prekeyStore.CurrentSPKID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, bundle.SignedPrekeyID, cur)

	_, spkPub, _, ok, err := prekeyStore.LoadSignedPrekey(cur)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, bundle.SignedPrekey, spkPub)

	pubs, err := prekeyStore.ListOneTimePublics()
	require.NoError(t, err)
	require.Len(t, pubs, 5)
}

func TestRegistrationIDStableAcrossRotations(t *testing.T) {
	home := t.TempDir()
	idStore := store.NewIdentityFileStore(home)
	prekeyStore := store.NewPrekeyFileStore(home)

	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	require.NoError(t, idStore.SaveIdentity(testPassphrase, identityOf(xPriv, xPub, edPriv, edPub)))

	svc := New(idStore, prekeyStore)
	first, err := svc.GenerateAndStore(testPassphrase, 1)
	require.NoError(t, err)
	second, err := svc.GenerateAndStore(testPassphrase, 1)
	require.NoError(t, err)

	require.Equal(t, first.RegistrationID, second.RegistrationID)
	require.NotEqual(t, first.SignedPrekeyID, second.SignedPrekeyID)
}

func identityOf(
	xPriv domain.X25519Private, xPub domain.X25519Public,
	edPriv domain.Ed25519Private, edPub domain.Ed25519Public,
) domain.Identity {
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

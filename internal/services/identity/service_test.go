package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"veilchat/internal/store"
)

const goodPassphrase = "Correct-Horse-Battery-9"

func TestGenerateAndLoad(t *testing.T) {
	svc := New(store.NewIdentityFileStore(t.TempDir()))

	id, fp, err := svc.Generate(goodPassphrase)
	require.NoError(t, err)
	require.NotEmpty(t, fp)
	require.NotEqual(t, [32]byte{}, [32]byte(id.XPub))

	loaded, err := svc.Load(goodPassphrase)
	require.NoError(t, err)
	require.Equal(t, id, loaded)

	fp2, err := svc.Fingerprint(goodPassphrase)
	require.NoError(t, err)
	require.Equal(t, fp, fp2)
}

func TestGenerateRejectsWeakPassphrases(t *testing.T) {
	svc := New(store.NewIdentityFileStore(t.TempDir()))

	for _, pass := range []string{
		"short1!A",
		"nouppercase-111!",
		"NOLOWERCASE-111!",
		"NoDigitsAtAll!!",
		"NoSymbols1234567",
	} {
		_, _, err := svc.Generate(pass)
		require.ErrorIs(t, err, ErrWeakPassphrase, "passphrase %q", pass)
	}
}

func TestLoadWrongPassphrase(t *testing.T) {
	svc := New(store.NewIdentityFileStore(t.TempDir()))

	_, _, err := svc.Generate(goodPassphrase)
	require.NoError(t, err)

	_, err = svc.Load("Wrong-Horse-Battery-9!")
	require.Error(t, err)
}

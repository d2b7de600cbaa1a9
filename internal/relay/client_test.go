package relay_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veilchat/internal/auth"
	"veilchat/internal/crypto"
	"veilchat/internal/directory"
	"veilchat/internal/domain"
	"veilchat/internal/keybundle"
	"veilchat/internal/message"
	"veilchat/internal/registry"
	"veilchat/internal/relay"
	"veilchat/internal/relaysrv"
	"veilchat/internal/storage"
)

func newRelay(t *testing.T) *relay.Client {
	t.Helper()

	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	verifier, err := auth.New(store, []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	conns := registry.New()
	log := zap.NewNop()

	cfg := relaysrv.DefaultConfig()
	cfg.TokenKey = "0123456789abcdef0123456789abcdef"
	cfg.RateRPS = 1000
	cfg.RateBurst = 1000

	srv := relaysrv.New(cfg, log, verifier,
		directory.New(store, store),
		keybundle.New(store, store, store),
		message.New(store, store, conns, log),
		conns,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return relay.New(ts.URL, nil)
}

func signedBundle(t *testing.T) domain.PrekeyBundle {
	t.Helper()
	_, ikPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_, otkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	return domain.PrekeyBundle{
		RegistrationID:  1,
		IdentityKey:     ikPub,
		SigningKey:      edPub,
		SignedPrekeyID:  "spk-1",
		SignedPrekey:    spkPub,
		SignedPrekeySig: crypto.SignEd25519(edPriv, spkPub.Slice()),
		OneTime:         []domain.OneTimePub{{ID: "otk-1", Pub: otkPub}},
	}
}

func TestClientAccountFlow(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()

	token, alice, err := rc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "alice", alice.Handle)

	_, _, err = rc.Register(ctx, "alice", "other")
	require.ErrorIs(t, err, domain.ErrConflict)

	loginToken, loggedIn, err := rc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, loginToken)
	require.Equal(t, alice.ID, loggedIn.ID)

	_, _, err = rc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestClientContactsAndKeys(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()

	aliceToken, _, err := rc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	bobToken, bob, err := rc.Register(ctx, "bob", "secret2")
	require.NoError(t, err)

	added, err := rc.AddContact(ctx, aliceToken, "bob")
	require.NoError(t, err)
	require.Equal(t, bob.ID, added.ID)

	_, err = rc.AddContact(ctx, aliceToken, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)

	contacts, err := rc.Contacts(ctx, aliceToken)
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	bundle := signedBundle(t)
	require.NoError(t, rc.PublishBundle(ctx, bobToken, bundle))

	got, err := rc.ExchangeKeys(ctx, aliceToken, bob.ID)
	require.NoError(t, err)
	require.Equal(t, bundle.IdentityKey, got.IdentityKey)
	require.Len(t, got.OneTime, 1)

	// Tampered bundle is rejected with an integrity error.
	bad := signedBundle(t)
	bad.SignedPrekeySig[0] ^= 0xff
	require.ErrorIs(t, rc.PublishBundle(ctx, bobToken, bad), domain.ErrIntegrity)
}

func TestClientSendListenHistory(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()

	aliceToken, alice, err := rc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	bobToken, bob, err := rc.Register(ctx, "bob", "secret2")
	require.NoError(t, err)

	_, err = rc.AddContact(ctx, aliceToken, "bob")
	require.NoError(t, err)
	_, err = rc.AddContact(ctx, bobToken, "alice")
	require.NoError(t, err)

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	inbox, err := rc.Listen(listenCtx, bobToken)
	require.NoError(t, err)

	require.NoError(t, rc.Send(ctx, aliceToken, bob.ID, []byte("opaque-1"), "hello"))

	select {
	case env := <-inbox:
		require.Equal(t, alice.ID, env.SenderID)
		require.Equal(t, []byte("opaque-1"), env.Ciphertext)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for live delivery")
	}

	history, err := rc.History(ctx, bobToken, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, []byte("opaque-1"), history[0].Ciphertext)

	// Sender sees the echo in history.
	history, err = rc.History(ctx, aliceToken, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "hello", history[0].Echo)

	// Sending to a non-contact is rejected over the websocket too.
	err = rc.Send(ctx, bobToken, "not-a-principal", []byte("x"), "")
	require.Error(t, err)
}

func TestClientSendWhileListening(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()

	aliceToken, alice, err := rc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	bobToken, bob, err := rc.Register(ctx, "bob", "secret2")
	require.NoError(t, err)

	_, err = rc.AddContact(ctx, aliceToken, "bob")
	require.NoError(t, err)
	_, err = rc.AddContact(ctx, bobToken, "alice")
	require.NoError(t, err)

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	inbox, err := rc.Listen(listenCtx, aliceToken)
	require.NoError(t, err)

	// Alice's own sends go over a send-only socket and must not tear
	// down her listening connection.
	require.NoError(t, rc.Send(ctx, aliceToken, bob.ID, []byte("opaque-1"), "hi"))
	require.NoError(t, rc.Send(ctx, aliceToken, bob.ID, []byte("opaque-2"), "still here"))

	require.NoError(t, rc.Send(ctx, bobToken, alice.ID, []byte("reply"), ""))
	select {
	case env, ok := <-inbox:
		require.True(t, ok, "listen stream closed")
		require.Equal(t, bob.ID, env.SenderID)
		require.Equal(t, []byte("reply"), env.Ciphertext)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for live delivery after own sends")
	}
}

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"veilchat/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPrincipal(id, handle string) domain.Principal {
	return domain.Principal{
		ID:               id,
		Handle:           handle,
		CredentialSalt:   []byte("salt-" + id),
		CredentialDigest: []byte("digest-" + id),
		CreatedAt:        time.Now().UnixMilli(),
	}
}

func TestPrincipalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := testPrincipal("p1", "alice")
	require.NoError(t, s.CreatePrincipal(ctx, want))

	byHandle, err := s.PrincipalByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, want.ID, byHandle.ID)
	require.Equal(t, want.CredentialSalt, byHandle.CredentialSalt)
	require.Equal(t, want.CredentialDigest, byHandle.CredentialDigest)

	byID, err := s.PrincipalByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Handle)

	_, err = s.PrincipalByHandle(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePrincipalDuplicateHandle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePrincipal(ctx, testPrincipal("p1", "alice")))
	err := s.CreatePrincipal(ctx, testPrincipal("p2", "alice"))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestSetKeyMaterial(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePrincipal(ctx, testPrincipal("p1", "alice")))

	var identity domain.X25519Public
	var signing domain.Ed25519Public
	identity[0] = 0xaa
	signing[0] = 0xbb

	require.NoError(t, s.SetKeyMaterial(ctx, "p1", identity, signing, 42))

	p, err := s.PrincipalByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, identity, p.IdentityKey)
	require.Equal(t, signing, p.SigningKey)
	require.Equal(t, uint32(42), p.RegistrationID)

	err = s.SetKeyMaterial(ctx, "missing", identity, signing, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePrincipal(ctx, testPrincipal("p1", "alice")))
	require.NoError(t, s.CreatePrincipal(ctx, testPrincipal("p2", "bob")))
	require.NoError(t, s.CreatePrincipal(ctx, testPrincipal("p3", "carol")))

	require.NoError(t, s.AddEdge(ctx, "p1", "p2"))
	require.NoError(t, s.AddEdge(ctx, "p1", "p3"))
	require.ErrorIs(t, s.AddEdge(ctx, "p1", "p2"), domain.ErrConflict)

	ok, err := s.HasEdge(ctx, "p1", "p2")
	require.NoError(t, err)
	require.True(t, ok)

	// Edges are one-directional.
	ok, err = s.HasEdge(ctx, "p2", "p1")
	require.NoError(t, err)
	require.False(t, ok)

	peers, err := s.ListPeers(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, "bob", peers[0].Handle)
	require.Equal(t, "carol", peers[1].Handle)
}

func TestEnvelopeAppendAndBetween(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	envs := []domain.MessageEnvelope{
		{ID: "e1", SenderID: "a", RecipientID: "b", Ciphertext: []byte("c1"), Timestamp: 100},
		{ID: "e2", SenderID: "b", RecipientID: "a", Ciphertext: []byte("c2"), Timestamp: 200},
		{ID: "e3", SenderID: "a", RecipientID: "b", Ciphertext: []byte("c3"), Timestamp: 300},
		// Unrelated pair must not appear.
		{ID: "e4", SenderID: "a", RecipientID: "x", Ciphertext: []byte("c4"), Timestamp: 150},
	}
	for _, env := range envs {
		require.NoError(t, s.Append(ctx, env))
	}

	got, err := s.Between(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"e1", "e2", "e3"}, []string{got[0].ID, got[1].ID, got[2].ID})

	// Symmetric regardless of argument order.
	flipped, err := s.Between(ctx, "b", "a")
	require.NoError(t, err)
	require.Equal(t, got, flipped)
}

func TestEnvelopeOrderingWithinTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Same millisecond; id order decides.
	require.NoError(t, s.Append(ctx, domain.MessageEnvelope{
		ID: "0191-aaaa", SenderID: "a", RecipientID: "b", Ciphertext: []byte("x"), Timestamp: 500,
	}))
	require.NoError(t, s.Append(ctx, domain.MessageEnvelope{
		ID: "0191-bbbb", SenderID: "b", RecipientID: "a", Ciphertext: []byte("y"), Timestamp: 500,
	}))

	got, err := s.Between(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "0191-aaaa", got[0].ID)
	require.Equal(t, "0191-bbbb", got[1].ID)
}

func TestEnvelopeDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	env := domain.MessageEnvelope{ID: "e1", SenderID: "a", RecipientID: "b", Ciphertext: []byte("c"), Timestamp: 1}
	require.NoError(t, s.Append(ctx, env))
	require.ErrorIs(t, s.Append(ctx, env), domain.ErrConflict)
}

func TestSignedPrekeyReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SignedPrekey(ctx, "p1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	var pub1, pub2 domain.X25519Public
	pub1[0], pub2[0] = 1, 2

	require.NoError(t, s.ReplaceSignedPrekey(ctx, domain.SignedPreKeyRecord{
		OwnerID: "p1", KeyID: "spk-1", Pub: pub1, Sig: []byte("sig1"),
	}))
	got, err := s.SignedPrekey(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "spk-1", got.KeyID)

	// Rotation replaces in place.
	require.NoError(t, s.ReplaceSignedPrekey(ctx, domain.SignedPreKeyRecord{
		OwnerID: "p1", KeyID: "spk-2", Pub: pub2, Sig: []byte("sig2"),
	}))
	got, err = s.SignedPrekey(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "spk-2", got.KeyID)
	require.Equal(t, pub2, got.Pub)
}

func TestClaimOneTimePrekeyDrains(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var recs []domain.PreKeyRecord
	for i := 0; i < 3; i++ {
		var pub domain.X25519Public
		pub[0] = byte(i)
		recs = append(recs, domain.PreKeyRecord{
			OwnerID: "p1", KeyID: fmt.Sprintf("otk-%d", i), Pub: pub,
		})
	}
	require.NoError(t, s.AddOneTimePrekeys(ctx, recs))

	n, err := s.CountOneTimePrekeys(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		rec, err := s.ClaimOneTimePrekey(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		require.False(t, seen[rec.KeyID], "key %s claimed twice", rec.KeyID)
		seen[rec.KeyID] = true
	}

	// Pool drained: nil, nil.
	rec, err := s.ClaimOneTimePrekey(ctx, "p1")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestClaimOneTimePrekeyConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const keys = 8
	var recs []domain.PreKeyRecord
	for i := 0; i < keys; i++ {
		recs = append(recs, domain.PreKeyRecord{
			OwnerID: "p1", KeyID: fmt.Sprintf("otk-%d", i),
		})
	}
	require.NoError(t, s.AddOneTimePrekeys(ctx, recs))

	var (
		mu      sync.Mutex
		claimed []string
		wg      sync.WaitGroup
	)
	for i := 0; i < keys*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.ClaimOneTimePrekey(ctx, "p1")
			require.NoError(t, err)
			if rec == nil {
				return
			}
			mu.Lock()
			claimed = append(claimed, rec.KeyID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, claimed, keys)
	unique := map[string]bool{}
	for _, id := range claimed {
		require.False(t, unique[id], "key %s claimed twice", id)
		unique[id] = true
	}
}

func TestAddOneTimePrekeysIdempotentRetry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs := []domain.PreKeyRecord{
		{OwnerID: "p1", KeyID: "otk-0"},
		{OwnerID: "p1", KeyID: "otk-1"},
	}
	require.NoError(t, s.AddOneTimePrekeys(ctx, recs))
	// Retrying the same batch plus one new key only adds the new key.
	require.NoError(t, s.AddOneTimePrekeys(ctx, append(recs, domain.PreKeyRecord{
		OwnerID: "p1", KeyID: "otk-2",
	})))

	n, err := s.CountOneTimePrekeys(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

package store

import (
	"path/filepath"
	"sync"

	"veilchat/internal/domain"
)

const (
	spkPairsFile   = "spk_pairs.json"
	opkPairsFile   = "opk_pairs.json"
	prekeyMetaFile = "prekey_meta.json"
)

// PrekeyFileStore persists signed prekey and one-time prekey pairs to disk.
type PrekeyFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPrekeyFileStore returns a PrekeyFileStore rooted at dir.
func NewPrekeyFileStore(dir string) *PrekeyFileStore {
	return &PrekeyFileStore{dir: dir}
}

// Internal record types.
type spkPair struct {
	Priv domain.X25519Private `json:"priv"`
	Pub  domain.X25519Public  `json:"pub"`
	Sig  []byte               `json:"sig"`
}

type opkPair struct {
	Priv domain.X25519Private `json:"priv"`
	Pub  domain.X25519Public  `json:"pub"`
}

type prekeyMeta struct {
	CurrentSPKID string `json:"current_spk_id"`
}

// SaveSignedPrekey stores a signed prekey pair by id.
func (s *PrekeyFileStore) SaveSignedPrekey(id string, priv domain.X25519Private, pub domain.X25519Public, sig []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, spkPairsFile)
	m := map[string]spkPair{}
	_ = readJSON(path, &m)
	m[id] = spkPair{Priv: priv, Pub: pub, Sig: append([]byte(nil), sig...)}
	return writeJSON(path, m, 0o600)
}

// LoadSignedPrekey retrieves a signed prekey pair by id.
func (s *PrekeyFileStore) LoadSignedPrekey(id string) (priv domain.X25519Private, pub domain.X25519Public, sig []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, spkPairsFile)
	m := map[string]spkPair{}
	if err = readJSON(path, &m); err != nil {
		return priv, pub, nil, false, err
	}
	p, exists := m[id]
	if !exists {
		return priv, pub, nil, false, nil
	}
	return p.Priv, p.Pub, append([]byte(nil), p.Sig...), true, nil
}

// SaveOneTimePairs merges the provided one-time prekey pairs into the store.
func (s *PrekeyFileStore) SaveOneTimePairs(pairs []domain.OneTimePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, opkPairsFile)
	m := map[string]opkPair{}
	_ = readJSON(path, &m)
	for _, p := range pairs {
		m[p.ID] = opkPair{Priv: p.Priv, Pub: p.Pub}
	}
	return writeJSON(path, m, 0o600)
}

// ConsumeOneTimePair removes and returns a single one-time prekey pair by
// id. Once consumed the private is gone for good; a second initiator
// replaying the same id gets nothing.
func (s *PrekeyFileStore) ConsumeOneTimePair(id string) (priv domain.X25519Private, pub domain.X25519Public, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, opkPairsFile)
	m := map[string]opkPair{}
	if err = readJSON(path, &m); err != nil {
		return priv, pub, false, err
	}
	p, exists := m[id]
	if !exists {
		return priv, pub, false, nil
	}
	delete(m, id)
	if err = writeJSON(path, m, 0o600); err != nil {
		return priv, pub, false, err
	}
	return p.Priv, p.Pub, true, nil
}

// ListOneTimePublics exposes only the public halves for bundling.
func (s *PrekeyFileStore) ListOneTimePublics() ([]domain.OneTimePub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, opkPairsFile)
	m := map[string]opkPair{}
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}

	out := make([]domain.OneTimePub, 0, len(m))
	for id, p := range m {
		out = append(out, domain.OneTimePub{ID: id, Pub: p.Pub})
	}
	return out, nil
}

// SetCurrentSPKID records which signed prekey id is current.
func (s *PrekeyFileStore) SetCurrentSPKID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, prekeyMetaFile)
	return writeJSON(path, prekeyMeta{CurrentSPKID: id}, 0o600)
}

// CurrentSPKID returns the recorded current signed prekey id.
func (s *PrekeyFileStore) CurrentSPKID() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, prekeyMetaFile)
	var meta prekeyMeta
	if err := readJSON(path, &meta); err != nil {
		return "", false, err
	}
	if meta.CurrentSPKID == "" {
		return "", false, nil
	}
	return meta.CurrentSPKID, true, nil
}

// Compile-time assertion that PrekeyFileStore implements domain.PrekeyStore.
var _ domain.PrekeyStore = (*PrekeyFileStore)(nil)

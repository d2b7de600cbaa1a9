package store

import (
	"path/filepath"
	"sync"

	"veilchat/internal/domain"
)

const convFilename = "conversations.json"

// RatchetFileStore persists per-peer Double Ratchet state to disk.
type RatchetFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewRatchetFileStore returns a RatchetFileStore rooted at dir.
func NewRatchetFileStore(dir string) *RatchetFileStore {
	return &RatchetFileStore{dir: dir}
}

// SaveConversation writes the Conversation for peerID.
func (s *RatchetFileStore) SaveConversation(peerID string, conv domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, convFilename)
	m := map[string]domain.Conversation{}
	_ = readJSON(path, &m)
	m[peerID] = conv
	return writeJSON(path, m, 0o600)
}

// LoadConversation retrieves the Conversation for peerID.
func (s *RatchetFileStore) LoadConversation(peerID string) (domain.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, convFilename)
	m := map[string]domain.Conversation{}
	if err := readJSON(path, &m); err != nil {
		return domain.Conversation{}, false, err
	}
	c, ok := m[peerID]
	return c, ok, nil
}

// Compile-time assertion that RatchetFileStore implements domain.RatchetStore.
var _ domain.RatchetStore = (*RatchetFileStore)(nil)

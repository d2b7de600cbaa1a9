package store

import (
	"path/filepath"
	"sync"

	"veilchat/internal/domain"
)

const sessionsFilename = "sessions.json"

// SessionFileStore persists established X3DH sessions to disk, keyed by
// peer principal id.
type SessionFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir}
}

// SaveSession writes a session record for peerID.
func (s *SessionFileStore) SaveSession(peerID string, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	sessions := map[string]domain.Session{}
	_ = readJSON(path, &sessions)
	sessions[peerID] = session
	return writeJSON(path, sessions, 0o600)
}

// LoadSession retrieves a stored session for peerID.
func (s *SessionFileStore) LoadSession(peerID string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	sessions := map[string]domain.Session{}
	if err := readJSON(path, &sessions); err != nil {
		return domain.Session{}, false, err
	}
	session, ok := sessions[peerID]
	return session, ok, nil
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)

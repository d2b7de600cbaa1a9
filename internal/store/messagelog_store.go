package store

import (
	"path/filepath"
	"sync"

	"veilchat/internal/domain"
)

const messageLogFile = "message_log.json"

// MessageLogFileStore keeps the local plaintext log of processed
// messages, keyed by envelope id. Ratchet message keys are deleted after
// use, so this log is the only way to show a message twice.
type MessageLogFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewMessageLogFileStore returns a MessageLogFileStore rooted at dir.
func NewMessageLogFileStore(dir string) *MessageLogFileStore {
	return &MessageLogFileStore{dir: dir}
}

// SaveLogEntry records entry under its envelope id. Re-saving the same id
// overwrites, which makes replayed decrypts idempotent.
func (s *MessageLogFileStore) SaveLogEntry(entry domain.DecryptedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, messageLogFile)
	m := map[string]logEntry{}
	_ = readJSON(path, &m)
	m[entry.ID] = logEntry{
		SenderID:  entry.SenderID,
		PeerID:    entry.PeerID,
		Plaintext: entry.Plaintext,
		Timestamp: entry.Timestamp,
	}
	return writeJSON(path, m, 0o600)
}

// LoadLog returns all logged messages for conversations with peerID.
func (s *MessageLogFileStore) LoadLog(peerID string) (map[string]domain.DecryptedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, messageLogFile)
	m := map[string]logEntry{}
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}

	out := make(map[string]domain.DecryptedMessage)
	for id, e := range m {
		if e.PeerID != peerID {
			continue
		}
		out[id] = domain.DecryptedMessage{
			ID:        id,
			SenderID:  e.SenderID,
			PeerID:    e.PeerID,
			Plaintext: e.Plaintext,
			Timestamp: e.Timestamp,
		}
	}
	return out, nil
}

type logEntry struct {
	SenderID  string `json:"sender_id"`
	PeerID    string `json:"peer_id"`
	Plaintext []byte `json:"plaintext"`
	Timestamp int64  `json:"timestamp"`
}

// Compile-time assertion that MessageLogFileStore implements domain.MessageLogStore.
var _ domain.MessageLogStore = (*MessageLogFileStore)(nil)

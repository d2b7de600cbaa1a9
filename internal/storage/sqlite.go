package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver
)

// Store is the SQLite-backed implementation of the relay's store
// interfaces. It is safe for concurrent use; writes serialize on the
// single connection.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS principals (
	id                TEXT PRIMARY KEY,
	handle            TEXT NOT NULL UNIQUE,
	credential_salt   BLOB NOT NULL,
	credential_digest BLOB NOT NULL,
	registration_id   INTEGER NOT NULL DEFAULT 0,
	identity_key      BLOB,
	signing_key       BLOB,
	created_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_edges (
	owner_id   TEXT NOT NULL REFERENCES principals(id),
	peer_id    TEXT NOT NULL REFERENCES principals(id),
	created_at INTEGER NOT NULL,
	PRIMARY KEY (owner_id, peer_id)
);

CREATE TABLE IF NOT EXISTS message_envelopes (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	sender_id    TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	ciphertext   BLOB NOT NULL,
	echo         TEXT NOT NULL DEFAULT '',
	timestamp    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_envelopes_pair
	ON message_envelopes (sender_id, recipient_id, timestamp);

CREATE TABLE IF NOT EXISTS one_time_prekeys (
	owner_id   TEXT NOT NULL,
	key_id     TEXT NOT NULL,
	pub        BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (owner_id, key_id)
);

CREATE TABLE IF NOT EXISTS signed_prekeys (
	owner_id   TEXT PRIMARY KEY,
	key_id     TEXT NOT NULL,
	pub        BLOB NOT NULL,
	sig        BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Open opens (creating if necessary) the database at path and applies the
// schema. Use ":memory:" only in tests; production paths get WAL mode and
// a busy timeout so a reader never starves the single writer.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite allows exactly one writer; a single connection sidesteps
	// SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 1000;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA synchronous = NORMAL;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", strings.TrimSpace(pragma), err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// isUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY constraint
// failure. The driver exposes no typed error for this, only the SQLite
// message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

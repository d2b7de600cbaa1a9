package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"veilchat/internal/domain"
)

// ReplaceSignedPrekey swaps the owner's signed prekey. The table keys on
// owner_id, so a rotation is a plain upsert.
func (s *Store) ReplaceSignedPrekey(ctx context.Context, rec domain.SignedPreKeyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signed_prekeys (owner_id, key_id, pub, sig, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			key_id = excluded.key_id,
			pub = excluded.pub,
			sig = excluded.sig,
			created_at = excluded.created_at`,
		rec.OwnerID, rec.KeyID, rec.Pub.Slice(), rec.Sig, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: replace signed prekey: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// SignedPrekey returns the owner's current signed prekey.
func (s *Store) SignedPrekey(ctx context.Context, ownerID string) (domain.SignedPreKeyRecord, error) {
	var (
		rec domain.SignedPreKeyRecord
		pub []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, key_id, pub, sig FROM signed_prekeys WHERE owner_id = ?`,
		ownerID,
	).Scan(&rec.OwnerID, &rec.KeyID, &pub, &rec.Sig)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("signed prekey for %q: %w", ownerID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("%w: query signed prekey: %v", domain.ErrStoreUnavailable, err)
	}
	copy(rec.Pub[:], pub)
	return rec, nil
}

// AddOneTimePrekeys appends a batch of one-time prekeys. Keys already
// present for the owner are left untouched rather than rejected, so a
// client may safely retry a partially applied upload.
func (s *Store) AddOneTimePrekeys(ctx context.Context, recs []domain.PreKeyRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin prekey batch: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO one_time_prekeys (owner_id, key_id, pub, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (owner_id, key_id) DO NOTHING`,
			rec.OwnerID, rec.KeyID, rec.Pub.Slice(), now,
		); err != nil {
			return fmt.Errorf("%w: insert one-time prekey: %v", domain.ErrStoreUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit prekey batch: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ClaimOneTimePrekey removes and returns the oldest unconsumed one-time
// prekey of owner, or nil when none remain. The single DELETE ... RETURNING
// statement makes the claim atomic: two concurrent claims never observe
// the same key.
func (s *Store) ClaimOneTimePrekey(ctx context.Context, ownerID string) (*domain.PreKeyRecord, error) {
	var (
		rec domain.PreKeyRecord
		pub []byte
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM one_time_prekeys
		WHERE rowid = (
			SELECT rowid FROM one_time_prekeys
			WHERE owner_id = ?
			ORDER BY created_at ASC, key_id ASC
			LIMIT 1
		)
		RETURNING key_id, pub`,
		ownerID,
	).Scan(&rec.KeyID, &pub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: claim one-time prekey: %v", domain.ErrStoreUnavailable, err)
	}
	rec.OwnerID = ownerID
	copy(rec.Pub[:], pub)
	return &rec, nil
}

// CountOneTimePrekeys reports how many unconsumed one-time prekeys owner
// has left. Clients use this to decide when to replenish.
func (s *Store) CountOneTimePrekeys(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM one_time_prekeys WHERE owner_id = ?`,
		ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count one-time prekeys: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

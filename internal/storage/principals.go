package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"veilchat/internal/domain"
)

// CreatePrincipal inserts a newly registered principal.
func (s *Store) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, handle, credential_salt, credential_digest, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Handle, p.CredentialSalt, p.CredentialDigest, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("handle %q taken: %w", p.Handle, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("%w: insert principal: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// PrincipalByHandle looks up a principal by exact, case-sensitive handle.
func (s *Store) PrincipalByHandle(ctx context.Context, handle string) (domain.Principal, error) {
	return s.scanPrincipal(s.db.QueryRowContext(ctx,
		selectPrincipal+` WHERE handle = ?`, handle))
}

// PrincipalByID looks up a principal by id.
func (s *Store) PrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	return s.scanPrincipal(s.db.QueryRowContext(ctx,
		selectPrincipal+` WHERE id = ?`, id))
}

// SetKeyMaterial records the identity key material a principal published
// with its bundle. Re-publishing overwrites: key rotation is a
// re-registration of material, not an append.
func (s *Store) SetKeyMaterial(
	ctx context.Context,
	id string,
	identity domain.X25519Public,
	signing domain.Ed25519Public,
	registrationID uint32,
) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE principals SET identity_key = ?, signing_key = ?, registration_id = ?
		WHERE id = ?`,
		identity.Slice(), signing.Slice(), registrationID, id,
	)
	if err != nil {
		return fmt.Errorf("%w: set key material: %v", domain.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: set key material: %v", domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("principal %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

const selectPrincipal = `
	SELECT id, handle, credential_salt, credential_digest,
	       registration_id, identity_key, signing_key, principals.created_at
	FROM principals`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPrincipal(row rowScanner) (domain.Principal, error) {
	var (
		p           domain.Principal
		identityKey []byte
		signingKey  []byte
	)
	err := row.Scan(
		&p.ID, &p.Handle, &p.CredentialSalt, &p.CredentialDigest,
		&p.RegistrationID, &identityKey, &signingKey, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Principal{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: scan principal: %v", domain.ErrStoreUnavailable, err)
	}
	copy(p.IdentityKey[:], identityKey)
	copy(p.SigningKey[:], signingKey)
	return p, nil
}

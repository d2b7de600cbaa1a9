package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"veilchat/internal/domain"
)

const (
	minHandleLen = 3
	maxHandleLen = 30
	minSecretLen = 6

	saltLen = 16

	// argon2id parameters for credential digests.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// TokenTTL is the fixed validity window of issued tokens.
const TokenTTL = 7 * 24 * time.Hour

// Verifier validates registration/login input and issues bearer tokens.
type Verifier struct {
	principals domain.PrincipalStore
	key        []byte
	now        func() time.Time
}

// New constructs a Verifier. The signing key must be at least 256 bits
// long (RFC 7518, section 3.2).
func New(principals domain.PrincipalStore, signingKey []byte) (*Verifier, error) {
	if len(signingKey) < 256/8 {
		return nil, fmt.Errorf("signing key must be at least 256 bits long, got %d", len(signingKey)*8)
	}
	return &Verifier{
		principals: principals,
		key:        signingKey,
		now:        time.Now,
	}, nil
}

// Register creates a principal and returns a fresh token for it.
func (v *Verifier) Register(ctx context.Context, handle, secret string) (string, domain.PrincipalIdentity, error) {
	if err := validate(handle, secret); err != nil {
		return "", domain.PrincipalIdentity{}, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", domain.PrincipalIdentity{}, err
	}

	p := domain.Principal{
		ID:               uuid.NewString(),
		Handle:           handle,
		CredentialSalt:   salt,
		CredentialDigest: digest(secret, salt),
		CreatedAt:        v.now().UnixMilli(),
	}
	if err := v.principals.CreatePrincipal(ctx, p); err != nil {
		return "", domain.PrincipalIdentity{}, err
	}

	ident := domain.PrincipalIdentity{ID: p.ID, Handle: p.Handle}
	token, err := v.issue(ident)
	if err != nil {
		return "", domain.PrincipalIdentity{}, err
	}
	return token, ident, nil
}

// Authenticate checks handle/secret and returns a fresh token. Unknown
// handles and wrong secrets produce the same error.
func (v *Verifier) Authenticate(ctx context.Context, handle, secret string) (string, domain.PrincipalIdentity, error) {
	p, err := v.principals.PrincipalByHandle(ctx, handle)
	if errors.Is(err, domain.ErrNotFound) {
		// Burn a digest anyway so unknown handles cost the same as wrong
		// secrets.
		digest(secret, make([]byte, saltLen))
		return "", domain.PrincipalIdentity{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return "", domain.PrincipalIdentity{}, err
	}

	if subtle.ConstantTimeCompare(digest(secret, p.CredentialSalt), p.CredentialDigest) != 1 {
		return "", domain.PrincipalIdentity{}, domain.ErrUnauthenticated
	}

	ident := domain.PrincipalIdentity{ID: p.ID, Handle: p.Handle}
	token, err := v.issue(ident)
	if err != nil {
		return "", domain.PrincipalIdentity{}, err
	}
	return token, ident, nil
}

func validate(handle, secret string) error {
	if len(handle) < minHandleLen || len(handle) > maxHandleLen {
		return fmt.Errorf("handle length must be in [%d,%d]: %w", minHandleLen, maxHandleLen, domain.ErrInvalidInput)
	}
	if len(secret) < minSecretLen {
		return fmt.Errorf("secret must be at least %d characters: %w", minSecretLen, domain.ErrInvalidInput)
	}
	return nil
}

func digest(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

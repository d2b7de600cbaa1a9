package auth

import (
	"fmt"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"

	"veilchat/internal/domain"
)

// handleClaim is the private claim carrying the principal's display handle.
const handleClaim = "handle"

// issue signs a token embedding the principal id and handle, valid for
// TokenTTL from now.
func (v *Verifier) issue(ident domain.PrincipalIdentity) (string, error) {
	now := v.now()

	tok := jwt.New()
	if err := tok.Set(jwt.SubjectKey, ident.ID); err != nil {
		return "", err
	}
	if err := tok.Set(handleClaim, ident.Handle); err != nil {
		return "", err
	}
	if err := tok.Set(jwt.IssuedAtKey, now); err != nil {
		return "", err
	}
	if err := tok.Set(jwt.ExpirationKey, now.Add(TokenTTL)); err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwa.HS256, v.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return string(signed), nil
}

// Verify parses and validates a bearer token. Any failure, signature
// mismatch and expiry alike, maps to domain.ErrUnauthenticated; callers
// that want the cause for logging can unwrap it.
func (v *Verifier) Verify(token string) (domain.PrincipalIdentity, error) {
	tok, err := jwt.Parse(
		[]byte(token),
		jwt.WithVerify(jwa.HS256, v.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return domain.PrincipalIdentity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	handle, _ := tok.Get(handleClaim)
	handleStr, ok := handle.(string)
	if !ok || tok.Subject() == "" {
		return domain.PrincipalIdentity{}, domain.ErrUnauthenticated
	}
	return domain.PrincipalIdentity{ID: tok.Subject(), Handle: handleStr}, nil
}

package domain

import "errors"

// Error taxonomy shared by the relay and its clients. Callers classify with
// errors.Is; boundary layers map categories to transport status codes.
var (
	// ErrInvalidInput marks malformed or out-of-range request data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated marks a missing, invalid, or expired credential.
	// Expired and forged tokens intentionally map to the same error so the
	// response surface leaks nothing about which it was.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound marks an absent principal, contact, or bundle.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate handle or duplicate contact edge.
	ErrConflict = errors.New("conflict")

	// ErrIntegrity marks a failed signature check during key publication or
	// session establishment. A handshake hitting this must abort, never
	// proceed with the unverified key.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrStoreUnavailable marks an underlying persistence failure. The
	// operation must not be reported as succeeded.
	ErrStoreUnavailable = errors.New("store unavailable")
)

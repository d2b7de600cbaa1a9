// Package auth is the relay's credential verifier. It registers
// principals, checks secrets against salted argon2id digests, and issues
// stateless HS256 bearer tokens that bind a principal identity to a
// connection without a store lookup on verification.
package auth

// Package crypto wraps the primitive operations used by the protocol
// layer: X25519 key agreement, Ed25519 signatures, and key fingerprints.
package crypto

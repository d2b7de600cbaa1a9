// Package x3dh implements the X3DH key agreement used to bootstrap a
// Double Ratchet session between two principals.
//
// The initiator fetches the responder's prekey bundle from the relay,
// verifies the signed prekey signature, and derives the shared root key.
// The responder recomputes the same root from the PrekeyMessage attached
// to the initiator's first envelope, without contacting the relay.
package x3dh

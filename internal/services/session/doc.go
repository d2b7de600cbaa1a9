// Package session establishes and tracks X3DH sessions.
//
// It performs the initiator handshake against a claimed key bundle,
// persists session material, and exposes lookups for the message service.
package session

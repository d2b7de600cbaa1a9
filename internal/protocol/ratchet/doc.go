// Package ratchet implements the Double Ratchet algorithm following
// Signal's design.
//
// The algorithm maintains a root key and two message chains (send and
// receive). Each message advances a chain; each new remote ratchet key
// advances the root. Skipped message keys are cached (bounded) so
// out-of-order envelopes remain decryptable.
package ratchet

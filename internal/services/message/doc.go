// Package message sends and receives end-to-end encrypted messages.
//
// It derives message keys from Double Ratchet state, updates per-message
// state, and exchanges opaque ciphertext envelopes via the RelayClient.
// Decrypted messages are recorded in the local log because ratchet message
// keys are destroyed after use.
package message

// Package store provides file-based persistence for the client's local
// state. It contains concrete implementations of the domain storage
// interfaces, serialising data as JSON on disk. All methods are
// concurrency-safe via internal locking. Stored files live under the
// user's configured home directory.
//
// The identity file is sealed under the user's passphrase; the remaining
// files hold key material and state the relay already knows or that is
// only useful together with the identity, and are written 0600.
package store

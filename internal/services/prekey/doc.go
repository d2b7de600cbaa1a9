// Package prekey manages signed prekeys and one-time prekeys for X3DH bootstrap.
//
// It rotates the current signed prekey, builds the public bundle for
// publication, and tracks one-time prekey consumption in the store.
package prekey

// Package storage implements the relay's persistent store over SQLite:
// principals, contact edges, message envelopes, and prekey records. One
// Store serves all four record families from a single database file.
package storage

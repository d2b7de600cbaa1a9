// Package relaysrv is the relay server: a chi HTTP API for registration,
// contacts, key bundles, and history, plus a websocket transport for live
// message delivery. All message content is opaque ciphertext; the server
// stores and forwards envelopes without ever parsing their payload.
package relaysrv

// Package commands defines the veilchat CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init           Create the local identity keys
//   - fingerprint    Print the identity fingerprint
//   - register       Create a relay account and publish prekeys
//   - login          Authenticate against the relay
//   - add-contact    Add a contact by handle
//   - contacts       List contacts
//   - publish-keys   Rotate the signed prekey and refill one-time prekeys
//   - start-session  Establish an X3DH session with a contact
//   - send           Encrypt and send a message
//   - history        Replay and decrypt the stored conversation
//   - watch          Stream and decrypt live messages
//
// # Implementation
//
// The root command builds the dependency graph (file stores, services,
// relay client) before any subcommand runs, so handlers share one app
// context. The bearer token is kept in the account profile on disk and
// looked up per relay URL, so authenticated commands work across
// invocations without re-entering credentials.
package commands

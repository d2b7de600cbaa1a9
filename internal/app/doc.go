// Package app builds the client-side dependency graph: file stores,
// services, and the relay client, rooted at the user's config directory.
package app

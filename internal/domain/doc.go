// Package domain defines the shared types, interfaces, and error taxonomy
// for veilchat. It has no dependencies outside the standard library.
package domain

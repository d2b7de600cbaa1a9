// Package registry tracks which principals currently hold a live push
// connection. The relay consults it for best-effort delivery; a principal
// with no entry simply fetches history later.
package registry

import (
	"sync"

	"veilchat/internal/domain"
)

// Pusher is one live connection's delivery handle. Push hands an envelope
// to the connection's writer without blocking the caller; it reports false
// when the connection can no longer accept work. Close tears the
// connection down and must be safe to call more than once.
type Pusher interface {
	Push(env domain.MessageEnvelope) bool
	Close()
}

// Registry maps principal IDs to their single live connection. At most one
// connection per principal: a second login evicts the first.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Pusher
}

func New() *Registry {
	return &Registry{conns: make(map[string]Pusher)}
}

// Register installs p as principalID's connection. If another connection
// was registered it is closed and returned as evicted, so the caller can
// log the takeover.
func (r *Registry) Register(principalID string, p Pusher) (evicted bool) {
	r.mu.Lock()
	prev, had := r.conns[principalID]
	r.conns[principalID] = p
	r.mu.Unlock()

	if had && prev != p {
		prev.Close()
		return true
	}
	return false
}

// Unregister removes principalID's entry only if it still refers to p.
// A connection evicted by a newer login must not tear down its successor
// on the way out.
func (r *Registry) Unregister(principalID string, p Pusher) {
	r.mu.Lock()
	if cur, ok := r.conns[principalID]; ok && cur == p {
		delete(r.conns, principalID)
	}
	r.mu.Unlock()
}

// Lookup returns the live connection for principalID, or nil.
func (r *Registry) Lookup(principalID string) Pusher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[principalID]
}

// Online reports how many principals currently have a connection.
func (r *Registry) Online() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

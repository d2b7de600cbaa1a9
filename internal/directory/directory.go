// Package directory manages each principal's contact list. Contacts are
// one-directional edges resolved by handle at add time and returned as
// identities, never as credential material.
package directory

import (
	"context"
	"fmt"

	"veilchat/internal/domain"
)

// Service resolves handles against the principal store and persists
// contact edges.
type Service struct {
	principals domain.PrincipalStore
	contacts   domain.ContactStore
}

func New(principals domain.PrincipalStore, contacts domain.ContactStore) *Service {
	return &Service{principals: principals, contacts: contacts}
}

// AddContact resolves peerHandle and records the edge owner -> peer.
// Adding yourself is invalid, an unknown handle is not found, and a
// repeated add conflicts.
func (s *Service) AddContact(ctx context.Context, ownerID, peerHandle string) (domain.PrincipalIdentity, error) {
	peer, err := s.principals.PrincipalByHandle(ctx, peerHandle)
	if err != nil {
		return domain.PrincipalIdentity{}, fmt.Errorf("resolve handle %q: %w", peerHandle, err)
	}
	if peer.ID == ownerID {
		return domain.PrincipalIdentity{}, fmt.Errorf("cannot add self as contact: %w", domain.ErrInvalidInput)
	}
	if err := s.contacts.AddEdge(ctx, ownerID, peer.ID); err != nil {
		return domain.PrincipalIdentity{}, err
	}
	return domain.PrincipalIdentity{ID: peer.ID, Handle: peer.Handle}, nil
}

// ListContacts returns the owner's contacts in the order they were added.
func (s *Service) ListContacts(ctx context.Context, ownerID string) ([]domain.PrincipalIdentity, error) {
	peers, err := s.contacts.ListPeers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PrincipalIdentity, 0, len(peers))
	for _, p := range peers {
		out = append(out, domain.PrincipalIdentity{ID: p.ID, Handle: p.Handle})
	}
	return out, nil
}

// IsContact reports whether owner has peer in their contact list.
func (s *Service) IsContact(ctx context.Context, ownerID, peerID string) (bool, error) {
	return s.contacts.HasEdge(ctx, ownerID, peerID)
}

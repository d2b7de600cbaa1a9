package storage

import (
	"context"
	"fmt"
	"time"

	"veilchat/internal/domain"
)

// AddEdge inserts the one-directional contact edge (ownerID, peerID).
func (s *Store) AddEdge(ctx context.Context, ownerID, peerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_edges (owner_id, peer_id, created_at)
		VALUES (?, ?, ?)`,
		ownerID, peerID, time.Now().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("contact edge exists: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("%w: insert contact edge: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// HasEdge reports whether owner has peer as a contact.
func (s *Store) HasEdge(ctx context.Context, ownerID, peerID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM contact_edges WHERE owner_id = ? AND peer_id = ?`,
		ownerID, peerID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: query contact edge: %v", domain.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// ListPeers returns the owner's contacts ordered by insertion time.
func (s *Store) ListPeers(ctx context.Context, ownerID string) ([]domain.Principal, error) {
	rows, err := s.db.QueryContext(ctx, selectPrincipal+`
		JOIN contact_edges e ON e.peer_id = principals.id
		WHERE e.owner_id = ?
		ORDER BY e.rowid ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var peers []domain.Principal
	for rows.Next() {
		p, err := s.scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", domain.ErrStoreUnavailable, err)
	}
	return peers, nil
}

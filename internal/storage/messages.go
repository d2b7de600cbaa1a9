package storage

import (
	"context"
	"fmt"

	"veilchat/internal/domain"
)

// Append stores env. Envelope IDs are unique; a replayed insert is a
// conflict, not an overwrite.
func (s *Store) Append(ctx context.Context, env domain.MessageEnvelope) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_envelopes (id, sender_id, recipient_id, ciphertext, echo, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		env.ID, env.SenderID, env.RecipientID, env.Ciphertext, env.Echo, env.Timestamp,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("envelope %q exists: %w", env.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("%w: insert envelope: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Between returns every envelope exchanged between a and b in either
// direction, ascending by (timestamp, id). seq breaks the tie for
// envelopes minted in the same millisecond by the same generator state.
func (s *Store) Between(ctx context.Context, a, b string) ([]domain.MessageEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, ciphertext, echo, timestamp
		FROM message_envelopes
		WHERE (sender_id = ? AND recipient_id = ?)
		   OR (sender_id = ? AND recipient_id = ?)
		ORDER BY timestamp ASC, id ASC, seq ASC`,
		a, b, b, a,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query envelopes: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var envs []domain.MessageEnvelope
	for rows.Next() {
		var env domain.MessageEnvelope
		if err := rows.Scan(
			&env.ID, &env.SenderID, &env.RecipientID,
			&env.Ciphertext, &env.Echo, &env.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("%w: scan envelope: %v", domain.ErrStoreUnavailable, err)
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query envelopes: %v", domain.ErrStoreUnavailable, err)
	}
	return envs, nil
}

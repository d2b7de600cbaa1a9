// Package message implements the relay's store-and-forward core: every
// accepted envelope is persisted first, then pushed to the recipient's
// live connection if one exists. Delivery is best effort; the store is
// the source of truth.
package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veilchat/internal/domain"
	"veilchat/internal/registry"
)

// Service accepts envelopes from senders and serves conversation history.
type Service struct {
	envelopes domain.EnvelopeStore
	contacts  domain.ContactStore
	conns     *registry.Registry
	log       *zap.Logger

	now func() time.Time
}

func New(envelopes domain.EnvelopeStore, contacts domain.ContactStore, conns *registry.Registry, log *zap.Logger) *Service {
	return &Service{
		envelopes: envelopes,
		contacts:  contacts,
		conns:     conns,
		log:       log,
		now:       time.Now,
	}
}

// Send persists an envelope from senderID to recipientID and forwards it
// to the recipient's connection if one is registered. The envelope id and
// timestamp are assigned here; ids are time-ordered so (timestamp, id) is
// a stable sort key for history.
//
// A push failure is not a send failure. Once the envelope is stored the
// send has succeeded; the recipient picks it up from history.
func (s *Service) Send(ctx context.Context, senderID, recipientID string, ciphertext []byte, echo string) (domain.MessageEnvelope, error) {
	if len(ciphertext) == 0 {
		return domain.MessageEnvelope{}, fmt.Errorf("empty ciphertext: %w", domain.ErrInvalidInput)
	}
	ok, err := s.contacts.HasEdge(ctx, senderID, recipientID)
	if err != nil {
		return domain.MessageEnvelope{}, err
	}
	if !ok {
		return domain.MessageEnvelope{}, fmt.Errorf("recipient %q is not a contact: %w", recipientID, domain.ErrNotFound)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.MessageEnvelope{}, fmt.Errorf("mint envelope id: %w", err)
	}
	env := domain.MessageEnvelope{
		ID:          id.String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Ciphertext:  ciphertext,
		Echo:        echo,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.envelopes.Append(ctx, env); err != nil {
		return domain.MessageEnvelope{}, err
	}

	if conn := s.conns.Lookup(recipientID); conn != nil {
		if !conn.Push(env) {
			s.log.Debug("push to live connection refused, recipient will catch up from history",
				zap.String("envelope_id", env.ID),
				zap.String("recipient_id", recipientID))
		}
	}
	return env, nil
}

// History returns every envelope exchanged between requesterID and
// contactID, oldest first. The requester must have the contact.
func (s *Service) History(ctx context.Context, requesterID, contactID string) ([]domain.MessageEnvelope, error) {
	ok, err := s.contacts.HasEdge(ctx, requesterID, contactID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q is not a contact: %w", contactID, domain.ErrNotFound)
	}
	return s.envelopes.Between(ctx, requesterID, contactID)
}

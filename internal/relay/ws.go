package relay

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"veilchat/internal/domain"
)

const sendAckTimeout = 10 * time.Second

type wsFrame struct {
	Type          string `json:"type"`
	ID            string `json:"id,omitempty"`
	SenderID      string `json:"senderId,omitempty"`
	RecipientID   string `json:"recipientId,omitempty"`
	Ciphertext    []byte `json:"ciphertext,omitempty"`
	PlaintextEcho string `json:"plaintextEcho,omitempty"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Listen opens the websocket and streams inbound envelopes until ctx is
// cancelled or the connection drops, then closes the returned channel.
func (c *Client) Listen(ctx context.Context, token string) (<-chan domain.MessageEnvelope, error) {
	conn, err := c.dial(ctx, token, "")
	if err != nil {
		return nil, err
	}

	out := make(chan domain.MessageEnvelope)
	go func() {
		defer close(out)
		defer conn.Close()

		// Unblock the read loop on cancellation.
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		for {
			var frame wsFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type != "message" {
				continue
			}
			select {
			case out <- domain.MessageEnvelope{
				ID:         frame.ID,
				SenderID:   frame.SenderID,
				Ciphertext: frame.Ciphertext,
				Timestamp:  frame.Timestamp,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Send pushes one envelope over a short-lived websocket connection and
// waits for the server's ack. The connection is send-only so it does not
// displace a concurrent Listen for the same principal. Messages sent
// while the recipient is offline still land in history; only a rejected
// send is an error.
func (c *Client) Send(ctx context.Context, token, recipientID string, ciphertext []byte, echo string) error {
	conn, err := c.dial(ctx, token, "?mode=send")
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsFrame{
		Type:          "send_message",
		RecipientID:   recipientID,
		Ciphertext:    ciphertext,
		PlaintextEcho: echo,
	}); err != nil {
		return fmt.Errorf("relay send: %w", err)
	}

	deadline := time.Now().Add(sendAckTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	// Skip live pushes that may arrive before our ack.
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("relay send ack: %w", err)
		}
		switch frame.Type {
		case "sent":
			return nil
		case "error":
			return fmt.Errorf("relay send rejected: %s", frame.Error)
		}
	}
}

func (c *Client) dial(ctx context.Context, token, query string) (*websocket.Conn, error) {
	wsBase := c.base
	switch {
	case strings.HasPrefix(wsBase, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	case strings.HasPrefix(wsBase, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsBase+"/v1/ws"+query, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("relay websocket: %w", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("relay websocket: %w", err)
	}
	return conn, nil
}

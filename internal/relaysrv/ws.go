package relaysrv

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"veilchat/internal/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 1 << 20
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type wsInbound struct {
	Type          string `json:"type"`
	RecipientID   string `json:"recipientId"`
	Ciphertext    []byte `json:"ciphertext"`
	PlaintextEcho string `json:"plaintextEcho,omitempty"`
}

type wsOutbound struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
}

// wsConn is one live websocket connection. All frames leave through the
// write pump; Push and the read loop only enqueue. A full queue drops the
// frame rather than blocking the sender, the recipient catches up from
// history.
type wsConn struct {
	conn *websocket.Conn
	out  chan wsOutbound
	done chan struct{}
	once sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		out:  make(chan wsOutbound, wsSendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Push(env domain.MessageEnvelope) bool {
	return c.enqueue(wsOutbound{
		Type:       "message",
		ID:         env.ID,
		SenderID:   env.SenderID,
		Ciphertext: env.Ciphertext,
		Timestamp:  env.Timestamp,
	})
}

func (c *wsConn) enqueue(out wsOutbound) bool {
	select {
	case <-c.done:
		return false
	case c.out <- out:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() { close(c.done) })
}

// handleWS authenticates, upgrades, and runs the connection. The token is
// checked before the upgrade so an unauthenticated client never holds a
// socket.
//
// A connection opened with ?mode=send is admitted for sending only: it is
// never registered as the principal's delivery connection, so a one-shot
// send does not evict a concurrent listener for the same principal.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	principal, err := s.verifier.Verify(bearerToken(r))
	if err != nil {
		s.metrics.authFailures.Inc()
		s.writeError(w, r, err)
		return
	}
	sendOnly := r.URL.Query().Get("mode") == "send"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newWSConn(conn)
	if !sendOnly && s.conns.Register(principal.ID, c) {
		s.log.Info("evicted previous connection",
			zap.String("principal_id", principal.ID))
	}
	s.metrics.wsConnections.Inc()
	s.log.Info("websocket connected",
		zap.String("principal_id", principal.ID),
		zap.String("handle", principal.Handle),
		zap.Bool("send_only", sendOnly))

	go s.writePump(c)
	s.readPump(r, c, principal)

	if !sendOnly {
		s.conns.Unregister(principal.ID, c)
	}
	c.Close()
	conn.Close()
	s.metrics.wsConnections.Dec()
	s.log.Info("websocket disconnected",
		zap.String("principal_id", principal.ID))
}

func (s *Server) readPump(r *http.Request, c *wsConn, principal domain.PrincipalIdentity) {
	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in wsInbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch in.Type {
		case "send_message":
			env, err := s.messages.Send(r.Context(), principal.ID, in.RecipientID, in.Ciphertext, in.PlaintextEcho)
			if err != nil {
				c.enqueue(wsOutbound{Type: "error", Error: err.Error()})
				continue
			}
			s.metrics.envelopesStored.Inc()
			if s.conns.Lookup(in.RecipientID) != nil {
				s.metrics.pushesImmediate.Inc()
			} else {
				s.metrics.pushesMissed.Inc()
			}
			// Ack with the assigned id and timestamp so the sender can
			// reconcile its local log with history later.
			c.enqueue(wsOutbound{Type: "sent", ID: env.ID, Timestamp: env.Timestamp})
		default:
			c.enqueue(wsOutbound{Type: "error", Error: "unknown message type"})
		}
	}
}

func (s *Server) writePump(c *wsConn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case out := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(out); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

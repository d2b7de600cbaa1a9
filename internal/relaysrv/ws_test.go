package relaysrv

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"veilchat/internal/domain"
)

func wsURL(ts string) string {
	return "ws" + strings.TrimPrefix(ts, "http") + "/v1/ws"
}

func dialWS(t *testing.T, tsURL, token string) *websocket.Conn {
	t.Helper()
	return dialWSQuery(t, tsURL, token, "")
}

func dialWSQuery(t *testing.T, tsURL, token, query string) *websocket.Conn {
	t.Helper()
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(tsURL)+query, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) wsOutbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out wsOutbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWSRejectsMissingToken(t *testing.T) {
	ts, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestWSTokenViaQueryParam(t *testing.T) {
	ts, _ := newTestServer(t)
	token, _ := registerUser(t, ts, "alice")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL)+"?token="+token, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()
}

func TestWSSendDeliversToRecipient(t *testing.T) {
	ts, _ := newTestServer(t)

	aliceToken, alice := registerUser(t, ts, "alice")
	bobToken, bob := registerUser(t, ts, "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/contacts", aliceToken, addContactRequest{Handle: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	aliceConn := dialWS(t, ts.URL, aliceToken)
	bobConn := dialWS(t, ts.URL, bobToken)

	require.NoError(t, aliceConn.WriteJSON(wsInbound{
		Type:          "send_message",
		RecipientID:   bob.ID,
		Ciphertext:    []byte("opaque"),
		PlaintextEcho: "hi bob",
	}))

	// Sender gets the ack with the assigned id.
	ack := readOutbound(t, aliceConn)
	require.Equal(t, "sent", ack.Type)
	require.NotEmpty(t, ack.ID)

	// Recipient gets the live push.
	got := readOutbound(t, bobConn)
	require.Equal(t, "message", got.Type)
	require.Equal(t, ack.ID, got.ID)
	require.Equal(t, alice.ID, got.SenderID)
	require.Equal(t, []byte("opaque"), got.Ciphertext)

	// The envelope is also in history, echo included for the sender.
	resp = doJSON(t, http.MethodGet, ts.URL+"/v1/messages/"+bob.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]domain.MessageEnvelope](t, resp)
	require.Len(t, history, 1)
	require.Equal(t, ack.ID, history[0].ID)
	require.Equal(t, "hi bob", history[0].Echo)
}

func TestWSSendToNonContactReturnsError(t *testing.T) {
	ts, _ := newTestServer(t)

	aliceToken, _ := registerUser(t, ts, "alice")
	_, bob := registerUser(t, ts, "bob")

	conn := dialWS(t, ts.URL, aliceToken)
	require.NoError(t, conn.WriteJSON(wsInbound{
		Type:        "send_message",
		RecipientID: bob.ID,
		Ciphertext:  []byte("opaque"),
	}))

	out := readOutbound(t, conn)
	require.Equal(t, "error", out.Type)
	require.NotEmpty(t, out.Error)
}

func TestWSOfflineRecipientCatchesUpFromHistory(t *testing.T) {
	ts, _ := newTestServer(t)

	aliceToken, alice := registerUser(t, ts, "alice")
	bobToken, bob := registerUser(t, ts, "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/contacts", aliceToken, addContactRequest{Handle: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, ts.URL+"/v1/contacts", bobToken, addContactRequest{Handle: "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	aliceConn := dialWS(t, ts.URL, aliceToken)
	require.NoError(t, aliceConn.WriteJSON(wsInbound{
		Type:        "send_message",
		RecipientID: bob.ID,
		Ciphertext:  []byte("while you were out"),
	}))
	ack := readOutbound(t, aliceConn)
	require.Equal(t, "sent", ack.Type)

	// Bob was never connected; the envelope waits in history.
	resp = doJSON(t, http.MethodGet, ts.URL+"/v1/messages/"+alice.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]domain.MessageEnvelope](t, resp)
	require.Len(t, history, 1)
	require.Equal(t, []byte("while you were out"), history[0].Ciphertext)
}

func TestWSSendOnlySocketDoesNotEvictListener(t *testing.T) {
	ts, srv := newTestServer(t)

	aliceToken, alice := registerUser(t, ts, "alice")
	bobToken, bob := registerUser(t, ts, "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/contacts", aliceToken, addContactRequest{Handle: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, ts.URL+"/v1/contacts", bobToken, addContactRequest{Handle: "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	listener := dialWS(t, ts.URL, aliceToken)

	// A one-shot send from the same account must not displace the
	// listener as alice's delivery connection.
	sender := dialWSQuery(t, ts.URL, aliceToken, "?mode=send")
	require.NoError(t, sender.WriteJSON(wsInbound{
		Type:        "send_message",
		RecipientID: bob.ID,
		Ciphertext:  []byte("opaque"),
	}))
	ack := readOutbound(t, sender)
	require.Equal(t, "sent", ack.Type)
	sender.Close()

	require.NotNil(t, srv.conns.Lookup(alice.ID))

	// Bob's reply still reaches the listener.
	bobConn := dialWS(t, ts.URL, bobToken)
	require.NoError(t, bobConn.WriteJSON(wsInbound{
		Type:        "send_message",
		RecipientID: alice.ID,
		Ciphertext:  []byte("reply"),
	}))
	got := readOutbound(t, listener)
	require.Equal(t, "message", got.Type)
	require.Equal(t, bob.ID, got.SenderID)
	require.Equal(t, []byte("reply"), got.Ciphertext)
}

func TestWSSecondLoginEvictsFirst(t *testing.T) {
	ts, srv := newTestServer(t)
	token, principal := registerUser(t, ts, "alice")

	first := dialWS(t, ts.URL, token)
	_ = dialWS(t, ts.URL, token)

	// The first connection receives a close frame from its write pump.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	require.NotNil(t, srv.conns.Lookup(principal.ID))
}

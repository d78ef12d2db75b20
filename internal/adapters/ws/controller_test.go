package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"dmrelay/internal/app"
	"dmrelay/internal/config"
	"dmrelay/internal/core"
	"dmrelay/internal/identity"
	"dmrelay/internal/storage"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Mode:       "test",
		ReadLimit:  32768,
		PingPeriod: 50 * time.Second,
		SendLimit:  100,
		SendWindow: time.Second,
	}

	presence := core.NewPresence()
	members := core.NewMembership()
	roster := app.NewRoster()
	sup := &app.Supervisor{Presence: presence, Members: members, Roster: roster}
	messages := &app.MessageRelay{Store: store, Members: members, Roster: roster}
	typing := &app.TypingRelay{Members: members, Roster: roster}
	ctl := NewController(cfg, sup, messages, typing, identity.StaticVerifier{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) { ctl.HandleWS(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil drains frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var evt map[string]any
		require.NoError(t, json.Unmarshal(data, &evt))
		if evt["type"] == typ {
			return evt
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestHandleWS_RejectsMissingIdentity(t *testing.T) {
	req := require.New(t)
	srv := testServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(401, resp.StatusCode)
}

func TestHandleWS_PresenceSnapshotOnConnect(t *testing.T) {
	req := require.New(t)
	srv := testServer(t)

	alice := dial(t, srv, "alice")
	state := readUntil(t, alice, app.EvtPresenceState)
	req.ElementsMatch([]any{"alice"}, state["userIds"])

	bob := dial(t, srv, "bob")
	state = readUntil(t, bob, app.EvtPresenceState)
	req.ElementsMatch([]any{"alice", "bob"}, state["userIds"])

	online := readUntil(t, alice, app.EvtUserOnline)
	req.Equal("bob", online["userId"])
}

func TestHandleWS_MessageRoundTrip(t *testing.T) {
	req := require.New(t)
	srv := testServer(t)

	alice := dial(t, srv, "alice")
	readUntil(t, alice, app.EvtPresenceState)
	bob := dial(t, srv, "bob")
	readUntil(t, bob, app.EvtPresenceState)

	send(t, bob, map[string]any{"type": "channel-join", "otherUserId": "alice"})
	send(t, alice, map[string]any{"type": "channel-join", "otherUserId": "bob"})

	// channel-join has no acknowledgment; ping-pong settles the join before
	// the send races it.
	send(t, alice, map[string]any{"type": "ping"})
	readUntil(t, alice, app.EvtPong)
	send(t, bob, map[string]any{"type": "ping"})
	readUntil(t, bob, app.EvtPong)

	send(t, alice, map[string]any{
		"type": "message-send", "fromUserId": "alice", "toUserId": "bob", "content": "hi",
	})

	evt := readUntil(t, bob, app.EvtMessageNew)
	msg := evt["message"].(map[string]any)
	req.Equal("hi", msg["content"])
	req.Equal("alice", msg["fromUserId"])
	req.NotEmpty(msg["id"])

	// The sender is a member too, so her own broadcast comes back.
	evt = readUntil(t, alice, app.EvtMessageNew)
	req.Equal("hi", evt["message"].(map[string]any)["content"])
}

func TestHandleWS_TypingRelay(t *testing.T) {
	req := require.New(t)
	srv := testServer(t)

	alice := dial(t, srv, "alice")
	readUntil(t, alice, app.EvtPresenceState)
	bob := dial(t, srv, "bob")
	readUntil(t, bob, app.EvtPresenceState)

	send(t, bob, map[string]any{"type": "channel-join", "otherUserId": "alice"})
	send(t, bob, map[string]any{"type": "ping"})
	readUntil(t, bob, app.EvtPong)

	send(t, alice, map[string]any{"type": "typing-start", "otherUserId": "bob"})
	evt := readUntil(t, bob, app.EvtUserTyping)
	req.Equal("alice", evt["userId"])
	req.Equal(true, evt["isTyping"])

	send(t, alice, map[string]any{"type": "typing-stop", "otherUserId": "bob"})
	evt = readUntil(t, bob, app.EvtUserTyping)
	req.Equal(false, evt["isTyping"])
}

func TestHandleWS_DisconnectBroadcastsOffline(t *testing.T) {
	req := require.New(t)
	srv := testServer(t)

	alice := dial(t, srv, "alice")
	readUntil(t, alice, app.EvtPresenceState)
	bob := dial(t, srv, "bob")
	readUntil(t, bob, app.EvtPresenceState)
	readUntil(t, alice, app.EvtUserOnline)

	// Ungraceful close: no leave-presence event was ever sent.
	req.NoError(bob.Close())

	evt := readUntil(t, alice, app.EvtUserOffline)
	req.Equal("bob", evt["userId"])
}

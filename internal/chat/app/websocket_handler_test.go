package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWSServer(t *testing.T, env *testEnv, cfg config.SessionConfig) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return serveWS(t, env, cfg, ln)
}

// serveWS serve /ws on ln, cleanup waits until every handler has run its disconnect
func serveWS(t *testing.T, env *testEnv, cfg config.SessionConfig, ln net.Listener) string {
	t.Helper()
	h := NewChatWebsocketHandler(env.coord, cfg)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	var handlers sync.WaitGroup
	app.Get("/ws", h.Upgrade(), func(c *fiber.Ctx) error {
		handlers.Add(1)
		return websocket.New(func(conn *websocket.Conn) {
			defer handlers.Done()
			h.HandleConnection(conn)
		})(c)
	})

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		finished := make(chan struct{})
		go func() {
			handlers.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Error("websocket handlers still running")
		}
		_ = app.ShutdownWithTimeout(time.Second)
	})
	return "ws://" + ln.Addr().String() + "/ws"
}

// smallWriteBufferListener shrink the kernel send buffer of accepted connections
type smallWriteBufferListener struct {
	net.Listener
}

func (l smallWriteBufferListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetWriteBuffer(4096)
	}
	return c, err
}

func dialWS(t *testing.T, url, tokenStr string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url+"?auth="+tokenStr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *gws.Conn, req domain.WSRequest) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
}

// readUntil skip frames until one with the wanted event arrives
func readUntil(t *testing.T, conn *gws.Conn, event domain.Event) domain.WSResponse {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var resp domain.WSResponse
		require.NoError(t, json.Unmarshal(data, &resp))
		if resp.Event == event {
			return resp
		}
	}
}

func TestWebsocket_AuthFailureClosesWith4001(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice")
	url := startWSServer(t, env, config.SessionConfig{})

	conn := dialWS(t, url, "bad")
	resp := readUntil(t, conn, domain.EventError)
	var payload domain.ErrorPayload
	payloadAs(t, resp, &payload)
	assert.Equal(t, "auth", payload.Code)

	_, _, err := conn.ReadMessage()
	var closeErr *gws.CloseError
	require.True(t, errors.As(err, &closeErr))
	assert.Equal(t, CloseAuthFailed, closeErr.Code)
	assert.Equal(t, 0, env.registry.ConnectionCount())
}

func TestWebsocket_UpgradeRequired(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice")
	h := NewChatWebsocketHandler(env.coord, config.SessionConfig{})
	app := fiber.New()
	app.Get("/ws", h.Upgrade(), h.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocket_JoinSendAndAck(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice", "bob")
	chat := env.privateChat(t, "alice", "bob")
	url := startWSServer(t, env, config.SessionConfig{})

	alice := dialWS(t, url, "alice")
	bob := dialWS(t, url, "bob")
	require.Eventually(t, func() bool { return env.registry.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	sendWS(t, alice, domain.WSRequest{Action: domain.ActionJoin, RequestID: "a1", ChatID: chat.ID})
	ack := readUntil(t, alice, domain.EventAck)
	assert.Equal(t, "a1", ack.RequestID)

	sendWS(t, bob, domain.WSRequest{Action: domain.ActionJoin, RequestID: "b1", ChatID: chat.ID})
	readUntil(t, bob, domain.EventAck)

	sendWS(t, alice, domain.WSRequest{Action: domain.ActionSendMessage, RequestID: "a2", ChatID: chat.ID, Content: "hi bob"})
	ack = readUntil(t, alice, domain.EventAck)
	var sent domain.AckPayload
	payloadAs(t, ack, &sent)
	assert.Equal(t, domain.ActionSendMessage, sent.Action)
	require.NotEmpty(t, sent.MessageID)

	got := readUntil(t, bob, domain.EventNewMessage)
	var msg domain.Message
	payloadAs(t, got, &msg)
	assert.Equal(t, sent.MessageID, msg.ID)
	assert.Equal(t, "hi bob", msg.Content)

	sendWS(t, bob, domain.WSRequest{Action: domain.ActionTyping, ChatID: chat.ID, IsTyping: true})
	typing := readUntil(t, alice, domain.EventUserTyping)
	var presence domain.PresencePayload
	payloadAs(t, typing, &presence)
	assert.Equal(t, "bob", presence.UserID)
}

func TestWebsocket_RejectsBadFrames(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice")
	url := startWSServer(t, env, config.SessionConfig{})
	conn := dialWS(t, url, "alice")

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte("{not json")))
	resp := readUntil(t, conn, domain.EventError)
	var payload domain.ErrorPayload
	payloadAs(t, resp, &payload)
	assert.Equal(t, "invalid json", payload.Message)

	sendWS(t, conn, domain.WSRequest{Action: "dance", RequestID: "x1"})
	resp = readUntil(t, conn, domain.EventError)
	assert.Equal(t, "x1", resp.RequestID)
	payloadAs(t, resp, &payload)
	assert.Equal(t, "unknown action", payload.Message)

	sendWS(t, conn, domain.WSRequest{Action: domain.ActionJoin, RequestID: "x2", ChatID: "missing"})
	resp = readUntil(t, conn, domain.EventError)
	assert.Equal(t, "x2", resp.RequestID)
}

func TestWebsocket_RateLimit(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice")
	url := startWSServer(t, env, config.SessionConfig{RateLimit: config.RateConfig{PerSecond: 0.001, Burst: 1}})
	conn := dialWS(t, url, "alice")

	sendWS(t, conn, domain.WSRequest{Action: "dance", RequestID: "r1"})
	sendWS(t, conn, domain.WSRequest{Action: "dance", RequestID: "r2"})

	var payload domain.ErrorPayload
	first := readUntil(t, conn, domain.EventError)
	assert.Equal(t, "r1", first.RequestID)
	second := readUntil(t, conn, domain.EventError)
	assert.Equal(t, "r2", second.RequestID)
	payloadAs(t, second, &payload)
	assert.Equal(t, "rate limit exceeded", payload.Message)
}

func TestWebsocket_ClientCloseUnregisters(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice")
	url := startWSServer(t, env, config.SessionConfig{})
	conn := dialWS(t, url, "alice")
	require.Eventually(t, func() bool { return env.registry.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	_ = conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "bye"))
	require.Eventually(t, func() bool { return env.registry.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, env.registry.IsOnline("alice"))
}

func TestWebsocket_ExpiredSessionIsClosed(t *testing.T) {
	env := newTestEnv(t, config.ExpiryEnforce, config.MessageConfig{}, "alice")
	url := startWSServer(t, env, config.SessionConfig{})
	conn := dialWS(t, url, "expired:alice")

	sendWS(t, conn, domain.WSRequest{Action: domain.ActionTyping, RequestID: "e1", ChatID: "c"})
	resp := readUntil(t, conn, domain.EventError)
	assert.Equal(t, "e1", resp.RequestID)

	_, _, err := conn.ReadMessage()
	var closeErr *gws.CloseError
	require.True(t, errors.As(err, &closeErr))
	assert.Equal(t, CloseAuthFailed, closeErr.Code)
}

func TestWebsocket_WriteTimeoutUnregistersSlowReader(t *testing.T) {
	env := newTestEnv(t, "", config.MessageConfig{}, "alice", "bob")
	ctx := context.Background()
	chat := env.privateChat(t, "alice", "bob")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := serveWS(t, env, config.SessionConfig{WriteTimeout: 200 * time.Millisecond, SendBuffer: 1024}, smallWriteBufferListener{ln})

	dialer := gws.Dialer{
		HandshakeTimeout: 2 * time.Second,
		NetDial: func(network, addr string) (net.Conn, error) {
			c, err := net.Dial(network, addr)
			if tc, ok := c.(*net.TCPConn); ok {
				_ = tc.SetReadBuffer(4096)
			}
			return c, err
		},
	}
	alice, _, err := dialer.Dial(url+"?auth=alice", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = alice.Close() })
	require.Eventually(t, func() bool { return env.registry.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	sendWS(t, alice, domain.WSRequest{Action: domain.ActionJoin, RequestID: "j1", ChatID: chat.ID})
	readUntil(t, alice, domain.EventAck)

	bob, bobConn := env.connect(t, "bob")
	_, err = env.coord.Join(ctx, bob, chat.ID)
	require.NoError(t, err)

	// alice never reads again, the queue stays far below SendBuffer so only the write deadline can fail
	content := strings.Repeat("x", 64*1024)
	for i := 0; i < 200 && env.registry.IsOnline("alice"); i++ {
		_, err := env.coord.Send(ctx, Actor{UserID: "bob"}, MessageInput{ChatID: chat.ID, Content: content})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return !env.registry.IsOnline("alice") }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, resp := range bobConn.events(domain.EventUserStatus) {
			var status domain.PresencePayload
			raw, _ := json.Marshal(resp.Payload)
			if json.Unmarshal(raw, &status) == nil && status.UserID == "alice" && status.Status == domain.StatusOffline {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/config"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const localToken = "ws_token"

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsClient Connection backed by a websocket, writes go through a single pump goroutine
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu          sync.Mutex
	closeCode   int
	closeReason string
}

func newWSClient(conn *websocket.Conn, buffer int) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Send(frame []byte) error {
	select {
	case <-c.done:
		return errprocess.Delivery(errConnClosed, "connection closed")
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errprocess.Delivery(errSendBufferFull, "send buffer full")
	}
}

func (c *wsClient) Close(code int, reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeCode, c.closeReason = code, reason
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *wsClient) write(timeout time.Duration, frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// writePump flush queued frames, ping, and finally send the close frame
func (c *wsClient) writePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(writeTimeout, frame); err != nil {
				logger.Log.Debug("websocket write failed", zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			for {
				select {
				case frame := <-c.send:
					if err := c.write(writeTimeout, frame); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			c.mu.Lock()
			code, reason := c.closeCode, c.closeReason
			c.mu.Unlock()
			if code != websocket.CloseAbnormalClosure {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason), time.Now().Add(writeTimeout))
			}
			return
		}
	}
}

// ChatWebsocketHandler websocket entry point of the chat service
type ChatWebsocketHandler struct {
	coordinator *SessionCoordinator
	cfg         config.SessionConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(coordinator *SessionCoordinator, cfg config.SessionConfig) *ChatWebsocketHandler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &ChatWebsocketHandler{coordinator: coordinator, cfg: cfg}
}

// Upgrade reject plain http and keep the presented token for the connect step
func (h *ChatWebsocketHandler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(localToken, middlewares.ExtractToken(c))
		return c.Next()
	}
}

// Handler websocket route handler
func (h *ChatWebsocketHandler) Handler() fiber.Handler {
	return websocket.New(h.HandleConnection)
}

func (h *ChatWebsocketHandler) limiter() *rate.Limiter {
	limit := rate.Inf
	if h.cfg.RateLimit.PerSecond > 0 {
		limit = rate.Limit(h.cfg.RateLimit.PerSecond)
	}
	burst := h.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// HandleConnection one websocket connection from connect to disconnect
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	tokenStr, _ := conn.Locals(localToken).(string)
	client := newWSClient(conn, h.cfg.SendBuffer)

	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		client.writePump(h.cfg.WriteTimeout, h.cfg.PingInterval)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
	session, err := h.coordinator.Connect(ctx, tokenStr, client)
	cancel()
	if err != nil {
		logger.Log.Warn("websocket auth failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		h.reply(client, domain.WSResponse{Event: domain.EventError, Payload: errorPayload(err)})
		client.Close(CloseAuthFailed, errprocess.Public(err))
		pump.Wait()
		return
	}

	log := logger.Log.With(zap.String("user_id", session.UserID), zap.String("conn_id", session.ConnID))
	defer func() {
		client.Close(websocket.CloseNormalClosure, "")
		pump.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
		h.coordinator.Disconnect(ctx, session.ConnID)
		cancel()
		session.State = StateClosed
	}()

	pongWait := 2 * h.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := h.limiter()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("websocket read error", zap.Error(err))
			} else {
				log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if mt != websocket.TextMessage {
			h.reply(client, errorFrame("", errprocess.Validation("unsupported message type")))
			continue
		}

		var req domain.WSRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.reply(client, errorFrame("", errprocess.Validation("invalid json")))
			continue
		}

		if !limiter.Allow() {
			h.reply(client, errorFrame(req.RequestID, errprocess.Validation("rate limit exceeded")))
			continue
		}

		if err := h.coordinator.CheckSession(session); err != nil {
			log.Info("session expired", zap.Error(err))
			h.reply(client, errorFrame(req.RequestID, err))
			client.Close(CloseAuthFailed, errprocess.Public(err))
			return
		}

		h.dispatch(session, client, req, log)
	}
}

func (h *ChatWebsocketHandler) dispatch(s *Session, client *wsClient, req domain.WSRequest, log *logger.LogInfo) {
	metrics.IncWSEvent(string(req.Action))
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
	defer cancel()

	var (
		result    interface{}
		messageID string
		err       error
	)

	switch req.Action {
	case domain.ActionJoin:
		result, err = h.coordinator.Join(ctx, s, req.ChatID)

	case domain.ActionLeave:
		err = h.coordinator.Leave(ctx, s, req.ChatID)

	case domain.ActionSendMessage:
		var msg *domain.Message
		msg, err = h.coordinator.Send(ctx, s.Actor, MessageInput{
			ChatID:      req.ChatID,
			Content:     req.Content,
			Type:        req.MessageType,
			Attachments: req.Attachments,
			ReplyTo:     req.ReplyTo,
			Metadata:    req.Metadata,
		})
		if err == nil {
			result, messageID = msg, msg.ID
		}

	case domain.ActionTyping:
		err = h.coordinator.Typing(ctx, s, req.ChatID, req.IsTyping)

	case domain.ActionMarkAsRead:
		var read ReadResult
		read, err = h.coordinator.MarkAsRead(ctx, s.Actor, req.ChatID)
		if err == nil {
			result = domain.ReadPayload{ChatID: read.ChatID, UserID: read.UserID, LastReadMessageID: read.LastReadMessageID, ReadAt: read.ReadAt}
		}

	case domain.ActionEditMessage:
		var msg *domain.Message
		msg, err = h.coordinator.Edit(ctx, s.Actor, req.MessageID, req.Content)
		if err == nil {
			result, messageID = msg, msg.ID
		}

	case domain.ActionDeleteMessage:
		var msg *domain.Message
		msg, err = h.coordinator.Delete(ctx, s.Actor, req.MessageID)
		if err == nil {
			messageID = msg.ID
			result = domain.DeletedPayload{ChatID: msg.ChatID, MessageID: msg.ID}
		}

	default:
		err = errprocess.Validation("unknown action")
	}

	if err != nil {
		if errprocess.Is(err, errprocess.KindInternal) {
			log.Error("websocket action failed", zap.String("action", string(req.Action)), zap.Error(err))
		} else {
			log.Debug("websocket action rejected", zap.String("action", string(req.Action)), zap.Error(err))
		}
		h.reply(client, errorFrame(req.RequestID, err))
		return
	}

	if req.Action == domain.ActionTyping {
		return
	}
	h.reply(client, domain.WSResponse{
		Event:     domain.EventAck,
		RequestID: req.RequestID,
		ChatID:    req.ChatID,
		Payload:   domain.AckPayload{Action: req.Action, MessageID: messageID, Data: result},
	})
}

func errorPayload(err error) domain.ErrorPayload {
	return domain.ErrorPayload{Message: errprocess.Public(err), Code: string(errprocess.KindOf(err))}
}

func errorFrame(requestID string, err error) domain.WSResponse {
	return domain.WSResponse{Event: domain.EventError, RequestID: requestID, Payload: errorPayload(err)}
}

func (h *ChatWebsocketHandler) reply(client *wsClient, resp domain.WSResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("websocket marshal", zap.Error(err))
		return
	}
	if err := client.Send(data); err != nil {
		logger.Log.Debug("websocket reply dropped", zap.Error(err))
	}
}

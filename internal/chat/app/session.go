package app

import (
	"context"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg"
	"chat_sync_service/pkg/config"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"
	"chat_sync_service/pkg/token"

	"go.uber.org/zap"
)

// CloseAuthFailed websocket close code for rejected or expired tokens
const CloseAuthFailed = 4001

// CloseEvicted websocket close code for connections that could not keep up
const CloseEvicted = 4008

// TokenVerifier Identity Verifier
type TokenVerifier interface {
	Verify(tokenStr string) (token.Identity, error)
}

// SessionState connection lifecycle
type SessionState int

const (
	// StateUnauthenticated before the token is verified
	StateUnauthenticated SessionState = iota
	// StateAuthenticated registered with the connection registry
	StateAuthenticated
	// StateClosed disconnected
	StateClosed
)

// Actor who performs an operation, ConnID is empty for REST calls
type Actor struct {
	UserID string
	ConnID string
}

// Session one authenticated websocket connection
type Session struct {
	Actor
	Identity token.Identity
	State    SessionState
}

// SessionCoordinator orders authorization, persistence and fan-out for every chat operation
type SessionCoordinator struct {
	verifier    TokenVerifier
	chats       *ChatUseCase
	authz       *MembershipAuthorizer
	registry    *ConnectionRegistry
	broadcaster *RoomBroadcaster
	events      *EventStream
	locks       *chatLocks
	policy      config.TokenExpiryPolicy
	now         func() time.Time
}

// NewSessionCoordinator wire the coordinator and register it as the broadcaster's eviction handler
func NewSessionCoordinator(
	verifier TokenVerifier,
	chats *ChatUseCase,
	authz *MembershipAuthorizer,
	registry *ConnectionRegistry,
	broadcaster *RoomBroadcaster,
	events *EventStream,
	policy config.TokenExpiryPolicy,
) *SessionCoordinator {
	if policy == "" {
		policy = config.ExpiryCheckOnConnect
	}
	c := &SessionCoordinator{
		verifier:    verifier,
		chats:       chats,
		authz:       authz,
		registry:    registry,
		broadcaster: broadcaster,
		events:      events,
		locks:       newChatLocks(),
		policy:      policy,
		now:         time.Now,
	}
	broadcaster.OnDeliveryFailure(c.Evict)
	return c
}

// Chats underlying chat use case
func (c *SessionCoordinator) Chats() *ChatUseCase { return c.chats }

// Registry underlying connection registry
func (c *SessionCoordinator) Registry() *ConnectionRegistry { return c.registry }

func (c *SessionCoordinator) emit(t domain.ChatEventType, chatID, actorID, messageID, targetID string) {
	c.events.Emit(domain.ChatEvent{
		Type:      t,
		ChatID:    chatID,
		ActorID:   actorID,
		MessageID: messageID,
		TargetID:  targetID,
		At:        c.now().UTC(),
	})
}

// Connect verify the token and register conn, an AuthError leaves nothing registered
func (c *SessionCoordinator) Connect(ctx context.Context, tokenStr string, conn Connection) (*Session, error) {
	id, err := c.verifier.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	wasOnline := c.registry.IsOnline(id.UserID)
	connID := c.registry.Register(id.UserID, conn)
	metrics.IncWSActive()

	s := &Session{
		Actor:    Actor{UserID: id.UserID, ConnID: connID},
		Identity: id,
		State:    StateAuthenticated,
	}
	logger.Log.Info("websocket connected", zap.String("user_id", id.UserID), zap.String("conn_id", connID))

	if !wasOnline {
		c.broadcastStatus(ctx, id.UserID, domain.StatusOnline, nil)
	}
	return s, nil
}

// CheckSession enforce policy re-checks the token expiry before each event
func (c *SessionCoordinator) CheckSession(s *Session) error {
	if s == nil || s.State != StateAuthenticated {
		return errprocess.Auth("not authenticated")
	}
	if c.policy == config.ExpiryEnforce && s.Identity.Expired(c.now()) {
		return errprocess.Auth("token expired")
	}
	return nil
}

func (c *SessionCoordinator) userChatIDs(ctx context.Context, userID string) []string {
	chats, err := c.chats.chats.FindByMember(ctx, userID, true)
	if err != nil {
		logger.Log.Warn("load chats for presence", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(chats))
	for _, ch := range chats {
		ids = append(ids, ch.ID)
	}
	return ids
}

func (c *SessionCoordinator) broadcastStatus(ctx context.Context, userID, status string, rooms []string) {
	targets := pkg.Unique(append(rooms, c.userChatIDs(ctx, userID)...))
	for _, chatID := range targets {
		c.broadcaster.Broadcast(ctx, chatID, domain.WSResponse{
			Event:   domain.EventUserStatus,
			Payload: domain.PresencePayload{UserID: userID, ChatID: chatID, Status: status},
		}, "")
	}
}

// Join authorize, mark the chat read, join the room and announce the member
func (c *SessionCoordinator) Join(ctx context.Context, s *Session, chatID string) (*domain.Chat, error) {
	if err := c.CheckSession(s); err != nil {
		return nil, err
	}
	chat, err := c.authz.RequireMember(ctx, chatID, s.UserID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(chatID)
	defer unlock()

	read, err := c.chats.MarkRead(ctx, chatID, s.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.registry.JoinRoom(s.ConnID, chatID); err != nil {
		return nil, err
	}
	c.afterRead(ctx, read)

	c.broadcaster.Broadcast(ctx, chatID, domain.WSResponse{
		Event:   domain.EventMemberJoined,
		Payload: domain.PresencePayload{UserID: s.UserID, ChatID: chatID},
	}, s.ConnID)

	if meta := chat.Meta(s.UserID); meta != nil {
		meta.UnreadCount = 0
		meta.LastReadMessageID = read.LastReadMessageID
	}
	return chat, nil
}

// Leave drop the room join and announce it
func (c *SessionCoordinator) Leave(ctx context.Context, s *Session, chatID string) error {
	if err := c.CheckSession(s); err != nil {
		return err
	}
	if !c.registry.LeaveRoom(s.ConnID, chatID) {
		return errprocess.Validation("not joined to this chat")
	}
	c.broadcaster.Broadcast(ctx, chatID, domain.WSResponse{
		Event:   domain.EventMemberLeft,
		Payload: domain.PresencePayload{UserID: s.UserID, ChatID: chatID},
	}, s.ConnID)
	return nil
}

// Send persist then broadcast newMessage, the sending connection gets the ack instead
func (c *SessionCoordinator) Send(ctx context.Context, a Actor, in MessageInput) (*domain.Message, error) {
	in.SenderID = a.UserID
	if err := validateMessageInput(&in, false); err != nil {
		return nil, err
	}
	if a.ConnID != "" && !c.registry.InRoom(a.ConnID, in.ChatID) {
		return nil, errprocess.Forbidden("join the chat before sending")
	}

	unlock := c.locks.Lock(in.ChatID)
	defer unlock()

	msg, err := c.chats.AppendMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	c.chats.ResolveMessage(ctx, msg)
	c.publishMessage(ctx, msg, a.ConnID)
	c.emit(domain.EventMessageCreated, msg.ChatID, a.UserID, msg.ID, "")
	return msg, nil
}

func (c *SessionCoordinator) publishMessage(ctx context.Context, msg *domain.Message, excludeConnID string) {
	report := c.broadcaster.Broadcast(ctx, msg.ChatID, domain.WSResponse{
		Event:   domain.EventNewMessage,
		Payload: msg,
	}, excludeConnID)

	if msg.MessageType != domain.MessageSystem && report.ReachedOtherThan(msg.SenderID) {
		if err := c.chats.MarkDelivered(ctx, msg.ID); err != nil {
			logger.Log.Warn("mark delivered", zap.String("message_id", msg.ID), zap.Error(err))
			return
		}
		msg.Status = domain.StatusDelivered
	}
}

// Edit sender only, broadcast messageEdited
func (c *SessionCoordinator) Edit(ctx context.Context, a Actor, messageID, content string) (*domain.Message, error) {
	current, err := c.chats.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(current.ChatID)
	defer unlock()

	msg, err := c.chats.EditMessage(ctx, messageID, a.UserID, content)
	if err != nil {
		return nil, err
	}
	c.chats.ResolveMessage(ctx, msg)
	c.broadcaster.Broadcast(ctx, msg.ChatID, domain.WSResponse{
		Event:   domain.EventMessageEdited,
		Payload: msg,
	}, "")
	c.emit(domain.EventMessageEditedStream, msg.ChatID, a.UserID, msg.ID, "")
	return msg, nil
}

// Delete sender or admin, broadcast messageDeleted
func (c *SessionCoordinator) Delete(ctx context.Context, a Actor, messageID string) (*domain.Message, error) {
	current, err := c.chats.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(current.ChatID)
	defer unlock()

	msg, err := c.chats.DeleteMessage(ctx, messageID, a.UserID)
	if err != nil {
		return nil, err
	}
	c.broadcaster.Broadcast(ctx, msg.ChatID, domain.WSResponse{
		Event:   domain.EventMessageDeleted,
		Payload: domain.DeletedPayload{ChatID: msg.ChatID, MessageID: msg.ID},
	}, "")
	c.emit(domain.EventMessageDeletedStream, msg.ChatID, a.UserID, msg.ID, "")
	return msg, nil
}

// MarkAsRead reset the actor's unread counter and broadcast messageRead
func (c *SessionCoordinator) MarkAsRead(ctx context.Context, a Actor, chatID string) (ReadResult, error) {
	unlock := c.locks.Lock(chatID)
	defer unlock()

	read, err := c.chats.MarkRead(ctx, chatID, a.UserID)
	if err != nil {
		return ReadResult{}, err
	}
	c.broadcastRead(ctx, read)
	c.emit(domain.EventChatRead, chatID, a.UserID, read.LastReadMessageID, "")
	return read, nil
}

func (c *SessionCoordinator) afterRead(ctx context.Context, read ReadResult) {
	if !read.Changed() {
		return
	}
	c.broadcastRead(ctx, read)
	c.emit(domain.EventChatRead, read.ChatID, read.UserID, read.LastReadMessageID, "")
}

func (c *SessionCoordinator) broadcastRead(ctx context.Context, read ReadResult) {
	c.broadcaster.Broadcast(ctx, read.ChatID, domain.WSResponse{
		Event: domain.EventMessageRead,
		Payload: domain.ReadPayload{
			ChatID:            read.ChatID,
			UserID:            read.UserID,
			LastReadMessageID: read.LastReadMessageID,
			ReadAt:            read.ReadAt,
		},
	}, "")
}

// Typing broadcast only, never persisted
func (c *SessionCoordinator) Typing(ctx context.Context, s *Session, chatID string, isTyping bool) error {
	if err := c.CheckSession(s); err != nil {
		return err
	}
	if !c.registry.InRoom(s.ConnID, chatID) {
		if _, err := c.authz.RequireMember(ctx, chatID, s.UserID); err != nil {
			return err
		}
	}
	typing := isTyping
	c.broadcaster.Broadcast(ctx, chatID, domain.WSResponse{
		Event:   domain.EventUserTyping,
		Payload: domain.PresencePayload{UserID: s.UserID, ChatID: chatID, IsTyping: &typing},
	}, s.ConnID)
	return nil
}

// Disconnect unregister the connection, announce offline after the user's last one
func (c *SessionCoordinator) Disconnect(ctx context.Context, connID string) {
	dep, ok := c.registry.Unregister(connID)
	if !ok {
		return
	}
	metrics.DecWSActive()
	logger.Log.Info("websocket disconnected",
		zap.String("user_id", dep.UserID), zap.String("conn_id", connID), zap.Bool("offline", dep.WentOffline))

	if dep.WentOffline {
		c.broadcastStatus(ctx, dep.UserID, domain.StatusOffline, dep.Rooms)
	}
}

// Evict close a connection that failed a delivery and treat it as a disconnect
func (c *SessionCoordinator) Evict(connID string) {
	_, conn, ok := c.registry.Lookup(connID)
	if !ok {
		return
	}
	conn.Close(CloseEvicted, "connection too slow")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Disconnect(ctx, connID)
}

// Shutdown close every live connection, later Disconnect calls find nothing left to unregister
func (c *SessionCoordinator) Shutdown() {
	closed := c.registry.Shutdown(1001, "server shutting down")
	for i := 0; i < closed; i++ {
		metrics.DecWSActive()
	}
	logger.Log.Info("websocket connections closed", zap.Int("count", closed))
}

// CreatePrivateChat find or create, emits chat.created only for a new chat
func (c *SessionCoordinator) CreatePrivateChat(ctx context.Context, a Actor, otherUserID string) (*domain.Chat, error) {
	chat, created, err := c.chats.FindOrCreatePrivateChat(ctx, a.UserID, otherUserID)
	if err != nil {
		return nil, err
	}
	if created {
		c.emit(domain.EventChatCreated, chat.ID, a.UserID, "", otherUserID)
	}
	return chat, nil
}

// CreateGroup create a group chat with the actor as admin
func (c *SessionCoordinator) CreateGroup(ctx context.Context, a Actor, in GroupInput) (*domain.Chat, error) {
	in.CreatorID = a.UserID
	chat, sys, err := c.chats.CreateGroupChat(ctx, in)
	if err != nil {
		return nil, err
	}
	c.emit(domain.EventChatCreated, chat.ID, a.UserID, sys.ID, "")
	return chat, nil
}

// ListMessages authorized page of messages, the chat is marked read afterwards
func (c *SessionCoordinator) ListMessages(ctx context.Context, a Actor, chatID string, page domain.Page) ([]domain.Message, error) {
	if _, err := c.authz.RequireMember(ctx, chatID, a.UserID); err != nil {
		return nil, err
	}
	msgs, err := c.chats.ListMessages(ctx, chatID, page)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(chatID)
	defer unlock()
	read, err := c.chats.MarkRead(ctx, chatID, a.UserID)
	if err != nil {
		logger.Log.Warn("mark read after listing", zap.String("chat_id", chatID), zap.Error(err))
		return msgs, nil
	}
	c.afterRead(ctx, read)
	return msgs, nil
}

// GetChat authorized single chat
func (c *SessionCoordinator) GetChat(ctx context.Context, a Actor, chatID string) (*domain.Chat, error) {
	return c.authz.RequireMember(ctx, chatID, a.UserID)
}

// SetMemberStatus archive / mute / activate for the actor
func (c *SessionCoordinator) SetMemberStatus(ctx context.Context, a Actor, chatID string, status domain.MemberStatus) error {
	unlock := c.locks.Lock(chatID)
	defer unlock()
	return c.chats.SetMemberStatus(ctx, chatID, a.UserID, status)
}

// AddMember admin adds userID
func (c *SessionCoordinator) AddMember(ctx context.Context, a Actor, chatID, userID string) (*domain.Chat, error) {
	unlock := c.locks.Lock(chatID)
	defer unlock()

	chat, sys, err := c.chats.AddMember(ctx, chatID, a.UserID, userID)
	if err != nil {
		return nil, err
	}
	c.announce(ctx, sys)
	c.emit(domain.EventMemberAdded, chatID, a.UserID, sys.ID, userID)
	return chat, nil
}

// RemoveMember admin removes userID, its live room joins are dropped
func (c *SessionCoordinator) RemoveMember(ctx context.Context, a Actor, chatID, userID string) (*domain.Chat, error) {
	unlock := c.locks.Lock(chatID)
	defer unlock()

	chat, sys, err := c.chats.RemoveMember(ctx, chatID, a.UserID, userID)
	if err != nil {
		return nil, err
	}
	c.registry.LeaveRoomForUser(userID, chatID)
	c.announce(ctx, sys)
	c.emit(domain.EventMemberRemoved, chatID, a.UserID, sys.ID, userID)
	return chat, nil
}

// RenameGroup admin renames the group
func (c *SessionCoordinator) RenameGroup(ctx context.Context, a Actor, chatID, name string) (*domain.Chat, error) {
	unlock := c.locks.Lock(chatID)
	defer unlock()

	chat, sys, err := c.chats.RenameGroup(ctx, chatID, a.UserID, name)
	if err != nil {
		return nil, err
	}
	c.announce(ctx, sys)
	c.emit(domain.EventChatRenamed, chatID, a.UserID, sys.ID, "")
	return chat, nil
}

// LeaveGroup the actor leaves, its live room joins are dropped
func (c *SessionCoordinator) LeaveGroup(ctx context.Context, a Actor, chatID string) (*domain.Chat, error) {
	unlock := c.locks.Lock(chatID)
	defer unlock()

	chat, sys, err := c.chats.LeaveGroup(ctx, chatID, a.UserID)
	if err != nil {
		return nil, err
	}
	c.registry.LeaveRoomForUser(a.UserID, chatID)
	c.announce(ctx, sys)
	c.emit(domain.EventMemberRemoved, chatID, a.UserID, sys.ID, a.UserID)
	return chat, nil
}

// Rebuild admin triggered last message rebuild
func (c *SessionCoordinator) Rebuild(ctx context.Context, a Actor, chatID string) (*domain.Chat, error) {
	if _, err := c.authz.RequireAdmin(ctx, chatID, a.UserID); err != nil {
		return nil, err
	}
	unlock := c.locks.Lock(chatID)
	defer unlock()
	return c.chats.RebuildLastMessage(ctx, chatID)
}

func (c *SessionCoordinator) announce(ctx context.Context, sys *domain.Message) {
	c.chats.ResolveMessage(ctx, sys)
	c.publishMessage(ctx, sys, "")
}

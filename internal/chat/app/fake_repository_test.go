package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/config"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/stretchr/testify/require"
)

// fakeChatRepo in memory ChatRepository with the same update semantics as the mongo one
type fakeChatRepo struct {
	mu          sync.Mutex
	chats       map[string]*domain.Chat
	pairs       map[string]string
	createCalls int
	markReadErr error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: map[string]*domain.Chat{}, pairs: map[string]string{}}
}

func cloneChat(c *domain.Chat) *domain.Chat {
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	cp.Admins = append([]string(nil), c.Admins...)
	cp.MessageIDs = append([]string{}, c.MessageIDs...)
	cp.MemberMeta = append([]domain.MemberMeta(nil), c.MemberMeta...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	cp.LastMessage = nil
	return &cp
}

func (r *fakeChatRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (r *fakeChatRepo) CreateChat(ctx context.Context, chat *domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if chat.PairKey != "" {
		if _, ok := r.pairs[chat.PairKey]; ok {
			return errprocess.Conflict(errors.New("duplicate pair_key"), "chat already exists")
		}
		r.pairs[chat.PairKey] = chat.ID
	}
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *fakeChatRepo) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return nil, errprocess.NotFound("chat not found")
	}
	return cloneChat(c), nil
}

func (r *fakeChatRepo) FindPrivateByPair(ctx context.Context, pairKey string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pairs[pairKey]
	if !ok {
		return nil, errprocess.NotFound("chat not found")
	}
	return cloneChat(r.chats[id]), nil
}

func (r *fakeChatRepo) FindByMember(ctx context.Context, userID string, includeArchived bool) ([]domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Chat{}
	for _, c := range r.chats {
		if !c.HasMember(userID) {
			continue
		}
		if !includeArchived && c.StatusFor(userID) == domain.MemberArchived {
			continue
		}
		out = append(out, *cloneChat(c))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeChatRepo) AdvanceLastMessage(ctx context.Context, chat *domain.Chat, msg *domain.Message, window int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chat.ID]
	if !ok {
		return errprocess.NotFound("chat not found")
	}
	for _, m := range c.Members {
		if c.Meta(m) == nil {
			c.MemberMeta = append(c.MemberMeta, domain.MemberMeta{UserID: m, Status: domain.MemberActive})
		}
	}
	c.MessageIDs = append(c.MessageIDs, msg.ID)
	if len(c.MessageIDs) > window {
		c.MessageIDs = c.MessageIDs[len(c.MessageIDs)-window:]
	}
	at := msg.CreatedAt
	if c.LastMessageAt == nil || !at.Before(*c.LastMessageAt) {
		c.LastMessageID = msg.ID
		c.LastMessageAt = &at
	}
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
	for i := range c.MemberMeta {
		if c.MemberMeta[i].UserID != msg.SenderID {
			c.MemberMeta[i].UnreadCount++
		}
	}
	return nil
}

func (r *fakeChatRepo) setMeta(chatID, userID string, apply func(m *domain.MemberMeta)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok || !c.HasMember(userID) {
		return errprocess.NotFound("chat member not found")
	}
	meta := c.Meta(userID)
	if meta == nil {
		c.MemberMeta = append(c.MemberMeta, domain.MemberMeta{UserID: userID, Status: domain.MemberActive})
		meta = &c.MemberMeta[len(c.MemberMeta)-1]
	}
	apply(meta)
	return nil
}

func (r *fakeChatRepo) MarkRead(ctx context.Context, chatID, userID, lastMessageID string) error {
	r.mu.Lock()
	failure := r.markReadErr
	r.mu.Unlock()
	if failure != nil {
		return failure
	}
	return r.setMeta(chatID, userID, func(m *domain.MemberMeta) {
		m.UnreadCount = 0
		m.LastReadMessageID = lastMessageID
	})
}

func (r *fakeChatRepo) SetMemberStatus(ctx context.Context, chatID, userID string, status domain.MemberStatus) error {
	return r.setMeta(chatID, userID, func(m *domain.MemberMeta) { m.Status = status })
}

func (r *fakeChatRepo) SetLastMessage(ctx context.Context, chatID string, messageIDs []string, lastID string, lastAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return errprocess.NotFound("chat not found")
	}
	c.MessageIDs = append([]string{}, messageIDs...)
	c.LastMessageID = lastID
	c.LastMessageAt = lastAt
	return nil
}

func (r *fakeChatRepo) AddMember(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok || c.HasMember(userID) {
		return nil
	}
	c.Members = append(c.Members, userID)
	c.MemberMeta = append(c.MemberMeta, domain.MemberMeta{UserID: userID, Status: domain.MemberActive})
	return nil
}

func without(list []string, v string) []string {
	out := []string{}
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func (r *fakeChatRepo) RemoveMember(ctx context.Context, chatID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return errprocess.NotFound("chat not found")
	}
	c.Members = without(c.Members, userID)
	c.Admins = without(c.Admins, userID)
	meta := []domain.MemberMeta{}
	for _, m := range c.MemberMeta {
		if m.UserID != userID {
			meta = append(meta, m)
		}
	}
	c.MemberMeta = meta
	return nil
}

func (r *fakeChatRepo) UpdateGroup(ctx context.Context, chatID string, update repository.GroupUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok || !c.IsGroup {
		return errprocess.NotFound("group not found")
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Description != nil {
		c.Description = *update.Description
	}
	if update.Avatar != nil {
		c.Avatar = *update.Avatar
	}
	if update.Admins != nil {
		c.Admins = append([]string(nil), update.Admins...)
	}
	return nil
}

// fakeMessageRepo in memory MessageRepository
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: map[string]*domain.Message{}}
}

func cloneMessage(m *domain.Message) domain.Message {
	cp := *m
	cp.ReadBy = append([]domain.ReadReceipt{}, m.ReadBy...)
	cp.Sender = nil
	cp.ReplyMessage = nil
	return cp
}

func (r *fakeMessageRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (r *fakeMessageRepo) Insert(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneMessage(msg)
	r.messages[msg.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, errprocess.NotFound("message not found")
	}
	cp := cloneMessage(m)
	return &cp, nil
}

func (r *fakeMessageRepo) FindByIDs(ctx context.Context, messageIDs []string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Message{}
	for _, id := range messageIDs {
		if m, ok := r.messages[id]; ok {
			out = append(out, cloneMessage(m))
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FindVisible(ctx context.Context, chatID string, page domain.Page) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Message{}
	for _, m := range r.messages {
		if m.ChatID != chatID || m.Deleted.IsDeleted {
			continue
		}
		if page.Before != nil && !m.CreatedAt.Before(*page.Before) {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[len(out)-page.Limit:]
	}
	return out, nil
}

func (r *fakeMessageRepo) update(messageID string, apply func(m *domain.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return errprocess.NotFound("message not found")
	}
	apply(m)
	return nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, messageID, content string, at time.Time) error {
	return r.update(messageID, func(m *domain.Message) {
		m.Content = content
		m.Edited = domain.Edited{IsEdited: true, EditedAt: &at}
		m.UpdatedAt = at
	})
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, messageID string, at time.Time) error {
	return r.update(messageID, func(m *domain.Message) {
		m.Deleted = domain.Deleted{IsDeleted: true, DeletedAt: &at}
		m.UpdatedAt = at
	})
}

func (r *fakeMessageRepo) Delete(ctx context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return errprocess.NotFound("message not found")
	}
	delete(r.messages, messageID)
	return nil
}

func (r *fakeMessageRepo) MarkReadBy(ctx context.Context, chatID, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ChatID != chatID || m.SenderID == userID || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, domain.ReadReceipt{UserID: userID, ReadAt: at})
		m.Status = domain.StatusRead
		n++
	}
	return n, nil
}

func (r *fakeMessageRepo) MarkDelivered(ctx context.Context, messageID string) error {
	return r.update(messageID, func(m *domain.Message) {
		if m.Status == domain.StatusSent {
			m.Status = domain.StatusDelivered
		}
	})
}

func (r *fakeMessageRepo) get(messageID string) *domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil
	}
	cp := cloneMessage(m)
	return &cp
}

// fakeUsers in memory user directory
type fakeUsers map[string]domain.UserProfile

func newFakeUsers(ids ...string) fakeUsers {
	u := fakeUsers{}
	for _, id := range ids {
		u[id] = domain.UserProfile{UserID: id, Name: "name-" + id, Username: id}
	}
	return u
}

func (u fakeUsers) FindProfiles(ctx context.Context, userIDs []string) (map[string]domain.UserProfile, error) {
	out := map[string]domain.UserProfile{}
	for _, id := range userIDs {
		if p, ok := u[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// fakeConn Connection recording every frame
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
	code   int
}

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errprocess.Delivery(errSendBufferFull, "send buffer full")
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
}

func (c *fakeConn) isClosed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code
}

func (c *fakeConn) responses() []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WSResponse, 0, len(c.frames))
	for _, f := range c.frames {
		var resp domain.WSResponse
		if err := json.Unmarshal(f, &resp); err == nil {
			out = append(out, resp)
		}
	}
	return out
}

func (c *fakeConn) events(event domain.Event) []domain.WSResponse {
	out := []domain.WSResponse{}
	for _, r := range c.responses() {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// fakeVerifier token string is the user id, "expired:<id>" yields an already expired identity
type fakeVerifier struct {
	now func() time.Time
}

func (v fakeVerifier) Verify(tokenStr string) (token.Identity, error) {
	if tokenStr == "" || tokenStr == "bad" {
		return token.Identity{}, errprocess.Auth("invalid token")
	}
	exp := v.now().Add(time.Hour)
	if len(tokenStr) > 8 && tokenStr[:8] == "expired:" {
		tokenStr = tokenStr[8:]
		exp = v.now().Add(-time.Minute)
	}
	return token.Identity{UserID: tokenStr, Role: "user", ExpiresAt: exp}, nil
}

// fakeClock advances one millisecond on every read so timestamps are strictly ordered
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type testEnv struct {
	chats       *fakeChatRepo
	messages    *fakeMessageRepo
	users       fakeUsers
	authz       *MembershipAuthorizer
	uc          *ChatUseCase
	registry    *ConnectionRegistry
	broadcaster *RoomBroadcaster
	coord       *SessionCoordinator
	clock       *fakeClock
}

func newTestEnv(t *testing.T, policy config.TokenExpiryPolicy, msgCfg config.MessageConfig, users ...string) *testEnv {
	t.Helper()
	logger.SetNewNop()

	env := &testEnv{
		chats:    newFakeChatRepo(),
		messages: newFakeMessageRepo(),
		users:    newFakeUsers(users...),
		registry: NewConnectionRegistry(),
		clock:    newFakeClock(),
	}
	env.authz = NewMembershipAuthorizer(env.chats)
	env.uc = NewChatUseCase(env.chats, env.messages, env.users, env.authz, msgCfg)
	env.uc.now = env.clock.Now
	env.broadcaster = NewRoomBroadcaster(env.registry, nil, "node-test")
	env.coord = NewSessionCoordinator(fakeVerifier{now: env.clock.Now}, env.uc, env.authz, env.registry, env.broadcaster, nil, policy)
	env.coord.now = env.clock.Now
	return env
}

func (e *testEnv) connect(t *testing.T, userID string) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	s, err := e.coord.Connect(context.Background(), userID, conn)
	require.NoError(t, err)
	return s, conn
}

func (e *testEnv) privateChat(t *testing.T, a, b string) *domain.Chat {
	t.Helper()
	chat, _, err := e.uc.FindOrCreatePrivateChat(context.Background(), a, b)
	require.NoError(t, err)
	return chat
}

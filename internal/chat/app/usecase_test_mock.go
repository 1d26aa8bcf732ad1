package app

import (
	"context"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/token"

	"github.com/stretchr/testify/mock"
)

// MockChatRepository mock ChatRepository
type MockChatRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockChatRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateChat mock create chat
func (m *MockChatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

// FindByID mock find chat by id
func (m *MockChatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPrivateByPair mock find private chat
func (m *MockChatRepository) FindPrivateByPair(ctx context.Context, pairKey string) (*domain.Chat, error) {
	args := m.Called(ctx, pairKey)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByMember mock list chats of a user
func (m *MockChatRepository) FindByMember(ctx context.Context, userID string, includeArchived bool) ([]domain.Chat, error) {
	args := m.Called(ctx, userID, includeArchived)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// AdvanceLastMessage mock advance pointer
func (m *MockChatRepository) AdvanceLastMessage(ctx context.Context, chat *domain.Chat, msg *domain.Message, window int) error {
	args := m.Called(ctx, chat, msg, window)
	return args.Error(0)
}

// MarkRead mock reset unread
func (m *MockChatRepository) MarkRead(ctx context.Context, chatID, userID, lastMessageID string) error {
	args := m.Called(ctx, chatID, userID, lastMessageID)
	return args.Error(0)
}

// SetMemberStatus mock member status
func (m *MockChatRepository) SetMemberStatus(ctx context.Context, chatID, userID string, status domain.MemberStatus) error {
	args := m.Called(ctx, chatID, userID, status)
	return args.Error(0)
}

// SetLastMessage mock overwrite pointer
func (m *MockChatRepository) SetLastMessage(ctx context.Context, chatID string, messageIDs []string, lastID string, lastAt *time.Time) error {
	args := m.Called(ctx, chatID, messageIDs, lastID, lastAt)
	return args.Error(0)
}

// AddMember mock add member
func (m *MockChatRepository) AddMember(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

// RemoveMember mock remove member
func (m *MockChatRepository) RemoveMember(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

// UpdateGroup mock update group
func (m *MockChatRepository) UpdateGroup(ctx context.Context, chatID string, update repository.GroupUpdate) error {
	args := m.Called(ctx, chatID, update)
	return args.Error(0)
}

// MockMessageRepository mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// EnsureIndexes mock ensure indexes
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByIDs mock batch find
func (m *MockMessageRepository) FindByIDs(ctx context.Context, messageIDs []string) ([]domain.Message, error) {
	args := m.Called(ctx, messageIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindVisible mock page of messages
func (m *MockMessageRepository) FindVisible(ctx context.Context, chatID string, page domain.Page) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, page)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateContent mock edit
func (m *MockMessageRepository) UpdateContent(ctx context.Context, messageID, content string, at time.Time) error {
	args := m.Called(ctx, messageID, content, at)
	return args.Error(0)
}

// SoftDelete mock soft delete
func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID string, at time.Time) error {
	args := m.Called(ctx, messageID, at)
	return args.Error(0)
}

// Delete mock hard delete
func (m *MockMessageRepository) Delete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// MarkReadBy mock read receipts
func (m *MockMessageRepository) MarkReadBy(ctx context.Context, chatID, userID string, at time.Time) (int64, error) {
	args := m.Called(ctx, chatID, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

// MarkDelivered mock delivered
func (m *MockMessageRepository) MarkDelivered(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// MockUserDirectory mock UserDirectoryRepository
type MockUserDirectory struct {
	mock.Mock
}

// FindProfiles mock profile lookup
func (m *MockUserDirectory) FindProfiles(ctx context.Context, userIDs []string) (map[string]domain.UserProfile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRoomRelay mock RoomRelay
type MockRoomRelay struct {
	mock.Mock
}

// Publish mock publish envelope
func (m *MockRoomRelay) Publish(ctx context.Context, env domain.RelayEnvelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

// Subscribe mock subscribe
func (m *MockRoomRelay) Subscribe(ctx context.Context, handler func(env domain.RelayEnvelope)) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

// MockEventRepository mock EventRepository
type MockEventRepository struct {
	mock.Mock
}

// Publish mock publish events
func (m *MockEventRepository) Publish(ctx context.Context, events ...domain.ChatEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// Close mock close
func (m *MockEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTokenVerifier mock TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

// Verify mock verify token
func (m *MockTokenVerifier) Verify(tokenStr string) (token.Identity, error) {
	args := m.Called(tokenStr)
	return args.Get(0).(token.Identity), args.Error(1)
}

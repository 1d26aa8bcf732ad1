package app

import (
	"context"
	"time"

	"chat_sync_service/internal/user/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepo mock repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

// EnsureSchema mock EnsureSchema
func (m *MockUserRepo) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// CreateUser mock CreateUser
func (m *MockUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

// UpdateUserStatus mock UpdateUserStatus
func (m *MockUserRepo) UpdateUserStatus(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

// FindByUser mock FindByUser
func (m *MockUserRepo) FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	args := m.Called(ctx, query)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// SearchByUsername mock SearchByUsername
func (m *MockUserRepo) SearchByUsername(ctx context.Context, fragment string, limit int) ([]domain.User, error) {
	args := m.Called(ctx, fragment, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRedisRepo mock database.RedisRepository for UserSession
type MockRedisRepo struct {
	mock.Mock
}

// Set mock redis Set
func (m *MockRedisRepo) Set(ctx context.Context, key string, value domain.UserSession, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

// Get mock redis Get
func (m *MockRedisRepo) Get(ctx context.Context, key string) (domain.UserSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(domain.UserSession), args.Error(1)
	}
	return domain.UserSession{}, args.Error(1)
}

// Del mock redis Del
func (m *MockRedisRepo) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// GetTTL mock redis GetTTL
func (m *MockRedisRepo) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// ExtendTTL mock redis ExtendTTL
func (m *MockRedisRepo) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return m.Called(ctx, key, ttl).Error(0)
}

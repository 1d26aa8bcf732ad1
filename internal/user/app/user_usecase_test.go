package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_sync_service/internal/user/domain"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/encrypt"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestUseCase(repo *MockUserRepo, redis *MockRedisRepo) UserUseCase {
	return NewUserUseCase(repo, 24*time.Hour, redis, token.NewIssuer(testSecret, "auth_service", time.Hour))
}

func TestUserUseCase_Register(t *testing.T) {
	ctx := context.Background()
	email := "alice@example.com"
	username := "alice"
	input := domain.RegisterInput{Name: "Alice", Username: username, Email: "  Alice@Example.com ", Password: "Secure#Pass1"}
	logger.SetNewNop()

	t.Run("success", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(nil, errprocess.NotFound("user not found")).Once()
		repo.On("FindByUser", ctx, &domain.UserQuery{Username: &username}).Return(nil, errprocess.NotFound("user not found")).Once()
		repo.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == email && u.UserID != "" && encrypt.CheckPassword(u.Password, "Secure#Pass1") == nil
		})).Return(nil).Once()

		user, err := newTestUseCase(repo, redis).Register(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
		assert.NotEqual(t, "Secure#Pass1", user.Password)
		repo.AssertExpectations(t)
	})

	t.Run("email exists", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(&domain.User{UserID: "u-1"}, nil).Once()

		_, err := newTestUseCase(repo, redis).Register(ctx, input)
		assert.True(t, errprocess.Is(err, errprocess.KindConflict))
		assert.Equal(t, "email already exists", errprocess.Public(err))
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("username exists", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(nil, errprocess.NotFound("user not found")).Once()
		repo.On("FindByUser", ctx, &domain.UserQuery{Username: &username}).Return(&domain.User{UserID: "u-2"}, nil).Once()

		_, err := newTestUseCase(repo, redis).Register(ctx, input)
		assert.True(t, errprocess.Is(err, errprocess.KindConflict))
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(nil, errprocess.Internal(errors.New("down"), "find")).Once()

		_, err := newTestUseCase(repo, redis).Register(ctx, input)
		assert.True(t, errprocess.Is(err, errprocess.KindInternal))
	})

	t.Run("invalid input", func(t *testing.T) {
		cases := map[string]domain.RegisterInput{
			"no name":        {Username: "alice", Email: email, Password: "Secure#Pass1"},
			"short username": {Name: "A", Username: "al", Email: email, Password: "Secure#Pass1"},
			"bad email":      {Name: "A", Username: "alice", Email: "alice.example.com", Password: "Secure#Pass1"},
			"weak password":  {Name: "A", Username: "alice", Email: email, Password: "password"},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				repo, redis := new(MockUserRepo), new(MockRedisRepo)
				_, err := newTestUseCase(repo, redis).Register(ctx, in)
				assert.True(t, errprocess.Is(err, errprocess.KindValidation))
				repo.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestUserUseCase_Login(t *testing.T) {
	ctx := context.Background()
	email := "alice@example.com"
	hashed, err := encrypt.HashPassword("Secure#Pass1")
	require.NoError(t, err)
	logger.SetNewNop()

	t.Run("success", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		user := &domain.User{UserID: "u-1", Email: email, Password: hashed}
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(user, nil).Once()
		repo.On("UpdateUserStatus", ctx, user).Return(nil).Once()
		redis.On("Set", ctx, "u-1",
			mock.MatchedBy(func(s domain.UserSession) bool { return s.UserID == "u-1" && s.Token != "" }),
			mock.MatchedBy(func(ttl time.Duration) bool { return ttl > 59*time.Minute && ttl <= time.Hour }),
		).Return(nil).Once()

		res, err := newTestUseCase(repo, redis).Login(ctx, "Alice@example.com", "Secure#Pass1")
		require.NoError(t, err)
		assert.Equal(t, domain.UserStatusOnline, res.User.Status)

		id, err := token.NewVerifier(testSecret).Verify(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", id.UserID)
		repo.AssertExpectations(t)
		redis.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(nil, errprocess.NotFound("user not found")).Once()

		res, err := newTestUseCase(repo, redis).Login(ctx, email, "Secure#Pass1")
		assert.Nil(t, res)
		assert.True(t, errprocess.Is(err, errprocess.KindAuth))
	})

	t.Run("wrong password", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).Return(&domain.User{UserID: "u-1", Password: hashed}, nil).Once()

		_, err := newTestUseCase(repo, redis).Login(ctx, email, "Wrong#Pass1")
		assert.True(t, errprocess.Is(err, errprocess.KindAuth))
		redis.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("banned", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("FindByUser", ctx, &domain.UserQuery{Email: &email}).
			Return(&domain.User{UserID: "u-1", Password: hashed, Status: domain.UserStatusBan}, nil).Once()

		_, err := newTestUseCase(repo, redis).Login(ctx, email, "Secure#Pass1")
		assert.True(t, errprocess.Is(err, errprocess.KindForbidden))
	})
}

func TestUserUseCase_LogoutAndSession(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	t.Run("logout", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		redis.On("Del", ctx, "u-1").Return(nil).Once()
		repo.On("UpdateUserStatus", ctx, &domain.User{UserID: "u-1", Status: domain.UserStatusOffline}).Return(nil).Once()

		require.NoError(t, newTestUseCase(repo, redis).Logout(ctx, "u-1"))
		repo.AssertExpectations(t)
		redis.AssertExpectations(t)
	})

	t.Run("live session is extended", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		redis.On("GetTTL", ctx, "u-1").Return(120, nil).Once()
		redis.On("ExtendTTL", ctx, "u-1", 24*time.Hour).Return(nil).Once()

		assert.NoError(t, newTestUseCase(repo, redis).CheckSession(ctx, "u-1"))
		redis.AssertExpectations(t)
	})

	t.Run("expired session", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		redis.On("GetTTL", ctx, "u-1").Return(0, nil).Once()

		err := newTestUseCase(repo, redis).CheckSession(ctx, "u-1")
		assert.True(t, errprocess.Is(err, errprocess.KindAuth))
	})

	t.Run("missing key", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		redis.On("GetTTL", ctx, "u-1").Return(0, database.ErrRedisNil).Once()

		err := newTestUseCase(repo, redis).CheckSession(ctx, "u-1")
		assert.True(t, errprocess.Is(err, errprocess.KindAuth))
	})
}

func TestUserUseCase_Search(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	t.Run("too short", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		_, err := newTestUseCase(repo, redis).Search(ctx, " al ")
		assert.True(t, errprocess.Is(err, errprocess.KindValidation))
	})

	t.Run("no results", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("SearchByUsername", ctx, "zzz", 10).Return([]domain.User{}, nil).Once()
		_, err := newTestUseCase(repo, redis).Search(ctx, "zzz")
		assert.True(t, errprocess.Is(err, errprocess.KindNotFound))
	})

	t.Run("found", func(t *testing.T) {
		repo, redis := new(MockUserRepo), new(MockRedisRepo)
		repo.On("SearchByUsername", ctx, "ali", 10).Return([]domain.User{{UserID: "u-1", Username: "alice"}}, nil).Once()
		users, err := newTestUseCase(repo, redis).Search(ctx, "ali")
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

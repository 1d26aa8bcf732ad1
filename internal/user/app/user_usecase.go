package app

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"chat_sync_service/internal/user/domain"
	"chat_sync_service/internal/user/repository"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/encrypt"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	searchLimit    = 10
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserUseCase account and session operations of the auth service
type UserUseCase interface {
	Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	CheckSession(ctx context.Context, userID string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
	Search(ctx context.Context, username string) ([]domain.User, error)
}

type userUseCase struct {
	userRepo   repository.UserRepository
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.UserSession]
	issuer     *token.Issuer
	now        func() time.Time
}

// NewUserUseCase create UserUseCase
func NewUserUseCase(userRepo repository.UserRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.UserSession],
	issuer *token.Issuer,
) UserUseCase {
	return &userUseCase{
		userRepo:   userRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
		issuer:     issuer,
		now:        time.Now,
	}
}

func validateRegister(in *domain.RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	switch {
	case in.Name == "":
		return errprocess.Validation("name is required")
	case len(in.Username) < minUsernameLen || len(in.Username) > maxUsernameLen:
		return errprocess.Validation("username must be 3 to 50 characters")
	case !emailRe.MatchString(in.Email):
		return errprocess.Validation("invalid email")
	}
	if err := encrypt.ValidatePasswordStrength(in.Password); err != nil {
		return errprocess.Validation(err.Error())
	}
	return nil
}

// Register validate, reject duplicates, store the bcrypt hash
func (u *userUseCase) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	if err := validateRegister(&in); err != nil {
		return nil, err
	}

	if _, err := u.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &in.Email}); err == nil {
		return nil, errprocess.Conflict(nil, "email already exists")
	} else if !errprocess.Is(err, errprocess.KindNotFound) {
		return nil, err
	}
	if _, err := u.userRepo.FindByUser(ctx, &domain.UserQuery{Username: &in.Username}); err == nil {
		return nil, errprocess.Conflict(nil, "username already exists")
	} else if !errprocess.Is(err, errprocess.KindNotFound) {
		return nil, err
	}

	pw, err := encrypt.HashPassword(in.Password)
	if err != nil {
		return nil, errprocess.Internal(err, "hash password")
	}

	user := domain.User{
		UserID:      uuid.New().String(),
		Name:        in.Name,
		Username:    in.Username,
		Email:       in.Email,
		Password:    pw,
		Description: in.Description,
		Avatar:      in.Avatar,
	}
	if err := u.userRepo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}
	logger.Log.Info("user registered", zap.String("user_id", user.UserID), zap.String("username", user.Username))
	return &user, nil
}

// Login check the password, issue a token and keep the session in redis
func (u *userUseCase) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := u.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email})
	if err != nil {
		if errprocess.Is(err, errprocess.KindNotFound) {
			return nil, errprocess.Auth("invalid email or password")
		}
		return nil, err
	}
	if err := user.IsPasswordMatch(password); err != nil {
		logger.Log.Debug("password mismatch", zap.String("user_id", user.UserID))
		return nil, errprocess.Auth("invalid email or password")
	}
	if user.Status == domain.UserStatusBan {
		return nil, errprocess.Forbidden("account is banned")
	}

	signed, expiresAt, err := u.issuer.GenerateJWT(user.UserID, string(token.RoleUser))
	if err != nil {
		return nil, errprocess.Internal(err, "sign token")
	}

	now := u.now()
	ttl := u.sessionTTL
	if left := expiresAt.Sub(now); left > 0 && left < ttl {
		ttl = left
	}
	session := domain.UserSession{
		Token:        signed,
		UserID:       user.UserID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(ttl),
	}
	if err := u.redisRepo.Set(ctx, user.UserID, session, ttl); err != nil {
		return nil, errprocess.Internal(err, "store session")
	}

	user.Status = domain.UserStatusOnline
	if err := u.userRepo.UpdateUserStatus(ctx, user); err != nil {
		logger.Log.Warn("update status on login", zap.String("user_id", user.UserID), zap.Error(err))
	}

	return &domain.LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// Logout drop the session and mark the user offline
func (u *userUseCase) Logout(ctx context.Context, userID string) error {
	if err := u.redisRepo.Del(ctx, userID); err != nil {
		return errprocess.Internal(err, "delete session")
	}
	if err := u.userRepo.UpdateUserStatus(ctx, &domain.User{
		UserID: userID,
		Status: domain.UserStatusOffline,
	}); err != nil {
		return err
	}
	return nil
}

// CheckSession AuthError when the session is gone, otherwise extend it
func (u *userUseCase) CheckSession(ctx context.Context, userID string) error {
	ttl, err := u.redisRepo.GetTTL(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrRedisNil) {
			return errprocess.Auth("session expired")
		}
		return errprocess.Internal(err, "session ttl")
	}
	if ttl <= 0 {
		return errprocess.Auth("session expired")
	}
	if err := u.redisRepo.ExtendTTL(ctx, userID, u.sessionTTL); err != nil {
		logger.Log.Warn("extend session", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// Me profile of the caller
func (u *userUseCase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return u.userRepo.FindByUser(ctx, &domain.UserQuery{UserID: &userID})
}

// Search case insensitive username match, at most 10 results
func (u *userUseCase) Search(ctx context.Context, username string) ([]domain.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return nil, errprocess.Validation("username must be at least 3 characters long")
	}
	users, err := u.userRepo.SearchByUsername(ctx, username, searchLimit)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errprocess.NotFound("no users found")
	}
	return users, nil
}

package domain

import (
	"time"

	"chat_sync_service/pkg/encrypt"
)

// UserStatus presence flag kept on the users row
type UserStatus int

// 0=offline, 1=online, 2=ban
const (
	// UserStatusOffline logged out
	UserStatusOffline UserStatus = iota
	// UserStatusOnline holds a live session
	UserStatusOnline
	// UserStatusBan cannot log in
	UserStatusBan
)

// User account owned by the auth service, the chat service reads the same table
type User struct {
	ID          int64      `json:"-"`
	UserID      string     `json:"id"`
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	Description string     `json:"description,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UserSession login session stored in redis under the user id
type UserSession struct {
	Token        string    `json:"Token"`
	UserID       string    `json:"UserID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsPasswordMatch compare against the stored hash
func (u *User) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(u.Password, inputPwd)
}

// IsExpired session passed its expiry at now
func (s *UserSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiredAt)
}

// UserQuery conditions are joined with AND, nil fields are ignored
type UserQuery struct {
	UserID   *string `db:"user_id"`
	Email    *string `db:"email"`
	Username *string `db:"username"`
}

// RegisterInput register request
type RegisterInput struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}

// LoginResult token and profile returned by login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

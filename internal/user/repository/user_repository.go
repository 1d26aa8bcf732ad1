package repository

import (
	"context"
	"errors"
	"fmt"

	"chat_sync_service/internal/user/domain"
	errprocess "chat_sync_service/pkg/err"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          BIGSERIAL PRIMARY KEY,
	user_id     VARCHAR(36)  NOT NULL UNIQUE,
	name        VARCHAR(100) NOT NULL,
	username    VARCHAR(50)  NOT NULL UNIQUE,
	email       VARCHAR(255) NOT NULL UNIQUE,
	password    VARCHAR(255) NOT NULL,
	description TEXT         NOT NULL DEFAULT '',
	avatar      TEXT,
	status      SMALLINT     NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username));
`

// UserRepository definition users table access
type UserRepository interface {
	EnsureSchema(ctx context.Context) error
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUserStatus(ctx context.Context, user *domain.User) error
	FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error)
	SearchByUsername(ctx context.Context, fragment string, limit int) ([]domain.User, error)
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return errprocess.Internal(err, "userRepository.EnsureSchema")
	}
	return nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users(user_id, name, username, email, password, description, avatar)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		 RETURNING id, created_at`,
		user.UserID, user.Name, user.Username, user.Email, user.Password, user.Description, user.Avatar,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errprocess.Conflict(err, "email or username already exists")
		}
		return errprocess.Internal(err, "userRepository.CreateUser")
	}
	return nil
}

func (r *userRepository) UpdateUserStatus(ctx context.Context, user *domain.User) error {
	if _, err := r.db.Exec(ctx, "UPDATE users SET status = $1 WHERE user_id = $2", user.Status, user.UserID); err != nil {
		return errprocess.Internal(err, "userRepository.UpdateUserStatus")
	}
	return nil
}

const selectUser = "SELECT id, user_id, name, username, email, password, description, COALESCE(avatar, ''), status, created_at FROM users"

func scanUser(row pgx.Row, u *domain.User) error {
	return row.Scan(&u.ID, &u.UserID, &u.Name, &u.Username, &u.Email, &u.Password, &u.Description, &u.Avatar, &u.Status, &u.CreatedAt)
}

func (r *userRepository) FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	queryStr := selectUser + " WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if query.Email != nil {
		queryStr += fmt.Sprintf(" AND LOWER(email) = LOWER($%d)", paramCount)
		params = append(params, *query.Email)
		paramCount++
	}
	if query.UserID != nil {
		queryStr += fmt.Sprintf(" AND user_id = $%d", paramCount)
		params = append(params, *query.UserID)
		paramCount++
	}
	if query.Username != nil {
		queryStr += fmt.Sprintf(" AND LOWER(username) = LOWER($%d)", paramCount)
		params = append(params, *query.Username)
	}
	if len(params) == 0 {
		return nil, errprocess.Validation("empty user query")
	}

	var user domain.User
	if err := scanUser(r.db.QueryRow(ctx, queryStr, params...), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errprocess.NotFound("user not found")
		}
		return nil, errprocess.Internal(err, "userRepository.FindByUser")
	}
	return &user, nil
}

// SearchByUsername case insensitive substring match, ordered by username
func (r *userRepository) SearchByUsername(ctx context.Context, fragment string, limit int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		selectUser+" WHERE username ILIKE '%' || $1 || '%' ORDER BY username LIMIT $2",
		escapeLike(fragment), limit,
	)
	if err != nil {
		return nil, errprocess.Internal(err, "userRepository.SearchByUsername")
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, errprocess.Internal(err, "userRepository.SearchByUsername")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errprocess.Internal(err, "userRepository.SearchByUsername")
	}
	return users, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

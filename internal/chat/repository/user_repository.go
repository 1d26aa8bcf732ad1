package repository

import (
	"context"

	"chat_sync_service/internal/chat/domain"
	errprocess "chat_sync_service/pkg/err"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserDirectoryRepository read only view of the users table owned by the auth service
type UserDirectoryRepository interface {
	FindProfiles(ctx context.Context, userIDs []string) (map[string]domain.UserProfile, error)
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type userDirectoryRepository struct {
	db pgQuerier
}

// NewUserDirectoryRepository create a UserDirectoryRepository
func NewUserDirectoryRepository(db *pgxpool.Pool) UserDirectoryRepository {
	return &userDirectoryRepository{db: db}
}

// FindProfiles profiles keyed by user id, unknown ids are absent
func (r *userDirectoryRepository) FindProfiles(ctx context.Context, userIDs []string) (map[string]domain.UserProfile, error) {
	profiles := make(map[string]domain.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT user_id, name, username, COALESCE(avatar, '') FROM users WHERE user_id = ANY($1)",
		userIDs,
	)
	if err != nil {
		return nil, errprocess.Internal(err, "userDirectoryRepository.FindProfiles")
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Username, &p.Avatar); err != nil {
			return nil, errprocess.Internal(err, "userDirectoryRepository.FindProfiles")
		}
		profiles[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errprocess.Internal(err, "userDirectoryRepository.FindProfiles")
	}
	return profiles, nil
}

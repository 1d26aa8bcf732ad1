package repository

import (
	"context"
	"errors"

	"chat_sync_service/internal/attachment/domain"
	errprocess "chat_sync_service/pkg/err"

	"gorm.io/gorm"
)

// AttachmentRepo definition attachment records
type AttachmentRepo interface {
	AutoMigrate() error
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	Update(ctx context.Context, a *domain.Attachment) error
	FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error)
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo create AttachmentRepo
func NewAttachmentRepo(db *gorm.DB) AttachmentRepo {
	return &attachmentRepo{db: db}
}

// AutoMigrate create or extend the attachments table
func (r *attachmentRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Attachment{})
}

func (r *attachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errprocess.Conflict(err, "attachment already exists")
		}
		return errprocess.Internal(err, "create attachment")
	}
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.NotFound("attachment not found")
		}
		return nil, errprocess.Internal(err, "get attachment")
	}
	return &a, nil
}

// Update Save writes every column, the record is always loaded first
func (r *attachmentRepo) Update(ctx context.Context, a *domain.Attachment) error {
	if err := r.db.WithContext(ctx).Save(a).Error; err != nil {
		return errprocess.Internal(err, "update attachment")
	}
	return nil
}

// FindByStatus oldest first
func (r *attachmentRepo) FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error) {
	var list []domain.Attachment
	if err := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, errprocess.Internal(err, "find attachments")
	}
	return list, nil
}

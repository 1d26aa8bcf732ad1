package app

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"chat_sync_service/internal/attachment/domain"
	"chat_sync_service/internal/attachment/repository"
	"chat_sync_service/pkg/database"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// AttachmentUseCase attachment store operations
type AttachmentUseCase interface {
	Upload(ctx context.Context, in domain.UploadInput) (*domain.AttachmentView, error)
	Get(ctx context.Context, id string) (*domain.AttachmentView, error)
	// RequeuePending republish thumbnail jobs of records still waiting for one
	RequeuePending(ctx context.Context) (int, error)
}

type attachmentUseCase struct {
	minioClient   database.MinIOClientRepo
	repo          repository.AttachmentRepo
	rabbitChannel database.RabbitRepo
	queueName     string
	presignTTL    time.Duration
	maxSize       int64
}

// NewAttachmentUseCase create AttachmentUseCase
func NewAttachmentUseCase(minIO database.MinIOClientRepo,
	repo repository.AttachmentRepo,
	rabbitChannel database.RabbitRepo,
	queueName string,
	presignTTL time.Duration,
	maxSize int64,
) AttachmentUseCase {
	return &attachmentUseCase{
		minioClient:   minIO,
		repo:          repo,
		rabbitChannel: rabbitChannel,
		queueName:     queueName,
		presignTTL:    presignTTL,
		maxSize:       maxSize,
	}
}

// ObjectKey bucket key of an original upload
func ObjectKey(id, fileName string) string {
	return fmt.Sprintf("attachments/%s/%s", id, fileName)
}

// ThumbnailKey bucket key of a rendered thumbnail
func ThumbnailKey(id string) string {
	return fmt.Sprintf("thumbnails/%s.jpg", id)
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// Upload store the object, record it and queue a thumbnail when needed
func (s *attachmentUseCase) Upload(ctx context.Context, in domain.UploadInput) (*domain.AttachmentView, error) {
	fileName := cleanFileName(in.FileName)
	if fileName == "" {
		return nil, errprocess.Validation("file name required")
	}
	if in.File == nil || in.Size <= 0 {
		return nil, errprocess.Validation("empty file")
	}
	if in.Size > s.maxSize {
		return nil, errprocess.Validation(fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	contentType := in.ContentType
	if contentType == "" || contentType == defaultContentType {
		if byExt := mime.TypeByExtension(filepath.Ext(fileName)); byExt != "" {
			contentType = byExt
		} else {
			contentType = defaultContentType
		}
	}

	id := uuid.NewString()
	attachment := domain.Attachment{
		ID:          id,
		OwnerID:     in.OwnerID,
		FileName:    fileName,
		ContentType: contentType,
		FileType:    string(domain.FileTypeOf(contentType)),
		Size:        in.Size,
		ObjectKey:   ObjectKey(id, fileName),
		Status:      string(domain.AttachmentUploaded),
	}

	if err := s.minioClient.PutObject(ctx, attachment.ObjectKey, contentType, in.File, in.Size); err != nil {
		return nil, errprocess.Internal(err, "store attachment")
	}
	if err := s.repo.Create(ctx, &attachment); err != nil {
		return nil, err
	}

	if attachment.NeedsThumbnail() {
		if err := s.enqueue(attachment); err != nil {
			logger.Log.Error("enqueue thumbnail failed", zap.String("attachment_id", id), zap.Error(err))
			attachment.Status = string(domain.AttachmentFailed)
			if err := s.repo.Update(ctx, &attachment); err != nil {
				logger.Log.Error("mark attachment failed", zap.String("attachment_id", id), zap.Error(err))
			}
		}
	}

	logger.Log.Info("attachment uploaded",
		zap.String("attachment_id", id),
		zap.String("owner", in.OwnerID),
		zap.String("file_type", attachment.FileType),
		zap.Int64("size", in.Size))
	return s.view(ctx, &attachment)
}

// Get presign fresh urls for a stored attachment
func (s *attachmentUseCase) Get(ctx context.Context, id string) (*domain.AttachmentView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errprocess.Validation("invalid attachment id")
	}
	attachment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, attachment)
}

func (s *attachmentUseCase) RequeuePending(ctx context.Context) (int, error) {
	pending, err := s.repo.FindByStatus(ctx, domain.AttachmentUploaded)
	if err != nil {
		return 0, err
	}
	queued := 0
	for i := range pending {
		if !pending[i].NeedsThumbnail() || pending[i].ThumbnailKey != "" {
			continue
		}
		if err := s.enqueue(pending[i]); err != nil {
			return queued, errprocess.Internal(err, "requeue thumbnail job")
		}
		queued++
	}
	return queued, nil
}

func (s *attachmentUseCase) enqueue(a domain.Attachment) error {
	data, err := json.Marshal(domain.ThumbnailJob{
		AttachmentID: a.ID,
		ObjectKey:    a.ObjectKey,
		FileType:     a.FileType,
	})
	if err != nil {
		return err
	}
	return s.rabbitChannel.Publish(
		"",          // default exchange
		s.queueName, // routing key is the queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	)
}

func (s *attachmentUseCase) view(ctx context.Context, a *domain.Attachment) (*domain.AttachmentView, error) {
	url, err := s.minioClient.PresignGetURL(ctx, a.ObjectKey, s.presignTTL)
	if err != nil {
		return nil, errprocess.Internal(err, "presign attachment")
	}
	v := &domain.AttachmentView{
		ID:       a.ID,
		FileName: a.FileName,
		FileType: a.FileType,
		URL:      url,
		Size:     a.Size,
		Status:   a.Status,
	}
	if a.ThumbnailKey != "" && a.Status == string(domain.AttachmentReady) {
		thumb, err := s.minioClient.PresignGetURL(ctx, a.ThumbnailKey, s.presignTTL)
		if err != nil {
			return nil, errprocess.Internal(err, "presign thumbnail")
		}
		v.ThumbnailURL = thumb
	}
	return v, nil
}

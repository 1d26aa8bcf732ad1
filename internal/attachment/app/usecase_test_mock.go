package app

import (
	"context"
	"io"
	"time"

	"chat_sync_service/internal/attachment/domain"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

// MockMinIOClient mock database.MinIOClientRepo
type MockMinIOClient struct {
	mock.Mock
}

// PutObject mock PutObject, the reader is drained so callers see a real upload
func (m *MockMinIOClient) PutObject(ctx context.Context, objectName, contentType string, r io.Reader, size int64) error {
	data, _ := io.ReadAll(r)
	return m.Called(ctx, objectName, contentType, data, size).Error(0)
}

// GetObject mock GetObject
func (m *MockMinIOClient) GetObject(ctx context.Context, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectName)
	if args.Get(0) != nil {
		return args.Get(0).(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

// PresignGetURL mock PresignGetURL
func (m *MockMinIOClient) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// MockAttachmentRepo mock repository.AttachmentRepo
type MockAttachmentRepo struct {
	mock.Mock
}

// AutoMigrate mock AutoMigrate
func (m *MockAttachmentRepo) AutoMigrate() error {
	return m.Called().Error(0)
}

// Create mock Create
func (m *MockAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

// GetByID mock GetByID
func (m *MockAttachmentRepo) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// Update mock Update
func (m *MockAttachmentRepo) Update(ctx context.Context, a *domain.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

// FindByStatus mock FindByStatus
func (m *MockAttachmentRepo) FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRabbitRepo mock database.RabbitRepo
type MockRabbitRepo struct {
	mock.Mock
}

// GetRabbit mock GetRabbit
func (m *MockRabbitRepo) GetRabbit() *amqp.Channel {
	return nil
}

// Publish mock Publish
func (m *MockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

// MockRenderer mock ThumbnailRenderer
type MockRenderer struct {
	mock.Mock
}

// Render mock Render
func (m *MockRenderer) Render(ctx context.Context, fileType domain.FileType, src io.Reader) ([]byte, error) {
	args := m.Called(ctx, fileType)
	if args.Get(0) != nil {
		return args.Get(0).([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

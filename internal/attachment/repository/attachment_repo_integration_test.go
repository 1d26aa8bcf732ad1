package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"chat_sync_service/internal/attachment/domain"
	"chat_sync_service/pkg/database"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	testtool "chat_sync_service/pkg/test_tool"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	logger.SetNewNop()
	if !testtool.DockerAvailable() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image: "postgres:16",
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})
	if err != nil {
		fmt.Printf("postgres container: %v\n", err)
		os.Exit(m.Run())
	}

	testDB, err = database.NewPGConnection(database.Connection{
		ConnectStr:    fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port),
		RetryCount:    5,
		RetryInterval: 2,
	})
	if err != nil {
		fmt.Printf("gorm connect: %v\n", err)
		testDB = nil
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func requireGorm(t *testing.T) AttachmentRepo {
	t.Helper()
	if testing.Short() || testDB == nil {
		t.Skip("postgres container unavailable")
	}
	repo := NewAttachmentRepo(testDB)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestAttachmentRepo_Lifecycle(t *testing.T) {
	repo := requireGorm(t)
	ctx := context.Background()

	a := &domain.Attachment{
		ID:          uuid.NewString(),
		OwnerID:     "alice",
		FileName:    "cat.png",
		ContentType: "image/png",
		FileType:    string(domain.FileImage),
		Size:        42,
		Status:      string(domain.AttachmentUploaded),
	}
	a.ObjectKey = "attachments/" + a.ID + "/cat.png"
	require.NoError(t, repo.Create(ctx, a))
	assert.False(t, a.CreatedAt.IsZero())

	err := repo.Create(ctx, &domain.Attachment{ID: a.ID})
	assert.True(t, errprocess.Is(err, errprocess.KindConflict))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.FileName)
	assert.Equal(t, int64(42), got.Size)

	pending, err := repo.FindByStatus(ctx, domain.AttachmentUploaded)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, a.ID)

	got.Status = string(domain.AttachmentReady)
	got.ThumbnailKey = "thumbnails/" + a.ID + ".jpg"
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.AttachmentReady), again.Status)
	assert.Equal(t, got.ThumbnailKey, again.ThumbnailKey)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.True(t, errprocess.Is(err, errprocess.KindNotFound))
}

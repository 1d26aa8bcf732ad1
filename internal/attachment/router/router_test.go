package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat_sync_service/internal/attachment/app"
	"chat_sync_service/internal/attachment/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "router-secret"

func newAttachmentApp() (*fiber.App, *app.MockMinIOClient, *app.MockAttachmentRepo) {
	logger.SetNewNop()
	store, repo, rabbit := new(app.MockMinIOClient), new(app.MockAttachmentRepo), new(app.MockRabbitRepo)
	usecase := app.NewAttachmentUseCase(store, repo, rabbit, "thumbnail", time.Hour, 1<<20)

	r := fiber.New()
	RegisterRoutes(r, token.NewVerifier(secret), nil, app.NewAttachmentHandler(usecase))
	return r, store, repo
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	signed, _, err := token.NewIssuer(secret, "auth_service", time.Hour).GenerateJWT(userID, "user")
	require.NoError(t, err)
	return "Bearer " + signed
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/attachments", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAttachmentRoutes_RequireToken(t *testing.T) {
	r, _, _ := newAttachmentApp()
	resp, err := r.Test(multipartRequest(t, "file", "notes.txt", []byte("hi")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAttachmentRoutes_Upload(t *testing.T) {
	r, store, repo := newAttachmentApp()
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, []byte("hello"), int64(5)).Return(nil).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.OwnerID == "alice" && a.FileName == "notes.txt"
	})).Return(nil).Once()
	store.On("PresignGetURL", mock.Anything, mock.Anything, time.Hour).Return("https://minio/notes", nil).Once()

	req := multipartRequest(t, "file", "notes.txt", []byte("hello"))
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp, err := r.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var view domain.AttachmentView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "notes.txt", view.FileName)
	assert.Equal(t, "file", view.FileType)
	assert.Equal(t, "https://minio/notes", view.URL)
	assert.Equal(t, int64(5), view.Size)
	repo.AssertExpectations(t)
}

func TestAttachmentRoutes_UploadWithoutFile(t *testing.T) {
	r, _, _ := newAttachmentApp()
	req := multipartRequest(t, "other", "notes.txt", []byte("hello"))
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp, err := r.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttachmentRoutes_Get(t *testing.T) {
	r, store, repo := newAttachmentApp()
	id := uuid.NewString()
	repo.On("GetByID", mock.Anything, id).Return(&domain.Attachment{
		ID: id, FileName: "a.txt", FileType: "file", ObjectKey: app.ObjectKey(id, "a.txt"), Status: "uploaded",
	}, nil).Once()
	store.On("PresignGetURL", mock.Anything, app.ObjectKey(id, "a.txt"), time.Hour).Return("signed", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/attachments/"+id, nil)
	req.Header.Set("Authorization", bearer(t, "bob"))
	resp, err := r.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/attachments/bad-id", nil)
	req.Header.Set("Authorization", bearer(t, "bob"))
	resp, err = r.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

package comm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat_sync_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugLogFlag(t *testing.T) {
	logger.SetNewNop()
	app := fiber.New()
	app.Get("/", ConnectCheck("chat_service"))
	app.Post("/debug", DebugLogFlag)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "chat_service start!", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/debug?status=true", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, logger.Log.DebugMode())

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/debug?status=false", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, logger.Log.DebugMode())

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/debug?status=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

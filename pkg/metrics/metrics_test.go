package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(HTTPMetricsMiddleware())
	app.Get("/api/chats/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/chats/:id", "204"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chats/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/chats/:id", "204")))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "chat_http_requests_total")
}

func TestCounters(t *testing.T) {
	IncWSActive()
	IncWSActive()
	DecWSActive()
	assert.Equal(t, float64(1), testutil.ToFloat64(wsActiveConnections))

	before := testutil.ToFloat64(broadcastDeliveries.WithLabelValues("failed"))
	IncDelivery("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(broadcastDeliveries.WithLabelValues("failed")))
}

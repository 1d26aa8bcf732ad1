package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of registered websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of inbound websocket events.",
		},
		[]string{"event"},
	)
	broadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Per-connection broadcast deliveries.",
		},
		[]string{"result"},
	)
	eventPublishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_event_publish_errors_total",
			Help: "Chat events that could not be published.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		broadcastDeliveries,
		eventPublishErrors,
	)
}

// HTTPMetricsMiddleware count requests per route
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler /metrics endpoint
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// IncWSActive a connection registered
func IncWSActive() { wsActiveConnections.Inc() }

// DecWSActive a connection unregistered
func DecWSActive() { wsActiveConnections.Dec() }

// IncWSEvent inbound event received
func IncWSEvent(event string) { wsEventsTotal.WithLabelValues(event).Inc() }

// IncDelivery broadcast delivery result: ok | failed
func IncDelivery(result string) { broadcastDeliveries.WithLabelValues(result).Inc() }

// IncEventPublishError event dropped or failed
func IncEventPublishError() { eventPublishErrors.Inc() }

package router

import (
	"chat_sync_service/internal/attachment/app"
	"chat_sync_service/pkg/comm"
	"chat_sync_service/pkg/metrics"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes attachment service routes
func RegisterRoutes(r *fiber.App, verifier middlewares.TokenVerifier, limiter *middlewares.IPRateLimiter, attachmentHandler *app.AttachmentHandler) {
	r.Use(metrics.HTTPMetricsMiddleware())

	r.Get("/", comm.ConnectCheck("attachment service"))
	r.Post("/debug", comm.DebugLogFlag)
	r.Get("/metrics", metrics.Handler())

	attachments := r.Group("/attachments", middlewares.JWTMiddleware(verifier))
	if limiter != nil {
		attachments.Use(limiter.Handler())
	}
	attachments.Post("/", attachmentHandler.Upload)
	attachments.Get("/:id", attachmentHandler.Get)
}

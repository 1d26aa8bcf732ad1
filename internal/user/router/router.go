package router

import (
	"chat_sync_service/internal/user/app"
	"chat_sync_service/pkg/comm"
	"chat_sync_service/pkg/metrics"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes auth service routes
func RegisterRoutes(r *fiber.App, verifier middlewares.TokenVerifier, limiter *middlewares.IPRateLimiter, userHandler *app.UserHandler) {
	r.Use(metrics.HTTPMetricsMiddleware())

	r.Get("/", comm.ConnectCheck("auth service"))
	r.Post("/debug", comm.DebugLogFlag)
	r.Get("/metrics", metrics.Handler())

	auth := r.Group("/auth")
	if limiter != nil {
		auth.Use(limiter.Handler())
	}
	auth.Post("/register", userHandler.Register)
	auth.Post("/login", userHandler.Login)
	auth.Post("/logout", middlewares.JWTMiddleware(verifier), userHandler.Logout)

	users := r.Group("/users", middlewares.JWTMiddleware(verifier), userHandler.SessionMiddleware())
	users.Get("/", userHandler.Search)
	users.Get("/me", userHandler.Me)
}

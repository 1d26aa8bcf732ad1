package router

import (
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/pkg/comm"
	"chat_sync_service/pkg/metrics"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes chat service routes
// @title Chat Sync Service API
// @version 1.0
// @description REST surface of the chat service, realtime traffic goes through /ws
// @host localhost:8082
// @BasePath /
func RegisterRoutes(
	r *fiber.App,
	verifier middlewares.TokenVerifier,
	limiter *middlewares.IPRateLimiter,
	chatHandler *app.ChatHandler,
	chatWebsocket *app.ChatWebsocketHandler,
) {
	r.Use(metrics.HTTPMetricsMiddleware())

	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", comm.ConnectCheck("chat service"))
	r.Post("/debug", comm.DebugLogFlag)
	r.Get("/metrics", metrics.Handler())

	// token is verified by the coordinator so a bad token gets a close frame instead of a 401
	r.Get("/ws", chatWebsocket.Upgrade(), chatWebsocket.Handler())

	api := r.Group("/api")
	if limiter != nil {
		api.Use(limiter.Handler())
	}
	api.Use(middlewares.JWTMiddleware(verifier))

	api.Get("/chats", chatHandler.ListChats)
	api.Post("/chats/private", chatHandler.CreatePrivateChat)
	api.Post("/chats/group", chatHandler.CreateGroupChat)
	api.Get("/chats/:id", chatHandler.GetChat)
	api.Get("/chats/:id/messages", chatHandler.ListMessages)
	api.Post("/chats/:id/messages", chatHandler.SendMessage)
	api.Post("/chats/:id/read", chatHandler.MarkRead)
	api.Put("/chats/:id/status", chatHandler.SetStatus)
	api.Post("/chats/:id/members", chatHandler.AddMember)
	api.Delete("/chats/:id/members/:userId", chatHandler.RemoveMember)
	api.Put("/chats/:id/name", chatHandler.RenameGroup)
	api.Post("/chats/:id/leave", chatHandler.LeaveGroup)
	api.Post("/chats/:id/rebuild", chatHandler.RebuildLastMessage)

	api.Put("/messages/:id", chatHandler.EditMessage)
	api.Delete("/messages/:id", chatHandler.DeleteMessage)
}

package app

import (
	"context"
	"strconv"
	"time"

	"chat_sync_service/internal/chat/domain"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// ChatHandler REST surface of the chat service, every mutation goes through the coordinator
type ChatHandler struct {
	coordinator *SessionCoordinator
}

// NewChatHandler create ChatHandler
func NewChatHandler(coordinator *SessionCoordinator) *ChatHandler {
	return &ChatHandler{coordinator: coordinator}
}

// PrivateChatReq body of POST /chats/private
type PrivateChatReq struct {
	UserID string `json:"userId"`
}

// GroupChatReq body of POST /chats/group
type GroupChatReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Avatar      string   `json:"avatar"`
	MemberIDs   []string `json:"memberIds"`
}

// SendMessageReq body of POST /chats/:id/messages
type SendMessageReq struct {
	Content     string              `json:"content"`
	MessageType domain.MessageType  `json:"messageType"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	ReplyTo     string              `json:"replyToId,omitempty"`
	Metadata    domain.Metadata     `json:"metadata,omitempty"`
}

// EditMessageReq body of PUT /messages/:id
type EditMessageReq struct {
	Content string `json:"content"`
}

// StatusReq body of PUT /chats/:id/status
type StatusReq struct {
	Status domain.MemberStatus `json:"status"`
}

// MemberReq body of POST /chats/:id/members
type MemberReq struct {
	UserID string `json:"userId"`
}

// RenameReq body of PUT /chats/:id/name
type RenameReq struct {
	Name string `json:"name"`
}

func actorOf(c *fiber.Ctx) Actor {
	return Actor{UserID: middlewares.UserID(c)}
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func fail(c *fiber.Ctx, err error) error {
	status := errprocess.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		logger.Log.Debug("request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": errprocess.Public(err)})
}

func badBody(c *fiber.Ctx) error {
	return fail(c, errprocess.Validation("invalid request"))
}

// ListChats list chats of the caller
// @Summary List chats
// @Tags Chats
// @Produce json
// @Param includeArchived query bool false "include archived chats"
// @Success 200 {array} domain.Chat
// @Failure 401 {object} map[string]string
// @Router /api/chats [get]
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	includeArchived, _ := strconv.ParseBool(c.Query("includeArchived"))
	chats, err := h.coordinator.Chats().ListChatsForUser(ctx, actorOf(c).UserID, includeArchived)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chats)
}

// CreatePrivateChat find or create the private chat with userId
// @Summary Find or create a private chat
// @Tags Chats
// @Accept json
// @Produce json
// @Param request body PrivateChatReq true "other user"
// @Success 200 {object} domain.Chat
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/private [post]
func (h *ChatHandler) CreatePrivateChat(c *fiber.Ctx) error {
	var req PrivateChatReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.CreatePrivateChat(ctx, actorOf(c), req.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

// CreateGroupChat create a group, the caller becomes admin
// @Summary Create a group chat
// @Tags Chats
// @Accept json
// @Produce json
// @Param request body GroupChatReq true "group"
// @Success 201 {object} domain.Chat
// @Failure 400 {object} map[string]string
// @Router /api/chats/group [post]
func (h *ChatHandler) CreateGroupChat(c *fiber.Ctx) error {
	var req GroupChatReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.CreateGroup(ctx, actorOf(c), GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// GetChat single chat
// @Summary Get a chat
// @Tags Chats
// @Produce json
// @Param id path string true "chat id"
// @Success 200 {object} domain.Chat
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{id} [get]
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.GetChat(ctx, actorOf(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

// ListMessages page of messages, oldest first, the chat is marked read
// @Summary List messages
// @Tags Messages
// @Produce json
// @Param id path string true "chat id"
// @Param limit query int false "page size"
// @Param before query string false "RFC3339 cursor"
// @Success 200 {array} domain.Message
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/chats/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	page := domain.Page{Limit: c.QueryInt("limit", 0)}
	if before := c.Query("before"); before != "" {
		t, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			return fail(c, errprocess.Validation("before must be RFC3339"))
		}
		page.Before = &t
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	msgs, err := h.coordinator.ListMessages(ctx, actorOf(c), c.Params("id"), page)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage send a message without a websocket
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "chat id"
// @Param request body SendMessageReq true "message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.coordinator.Send(ctx, actorOf(c), MessageInput{
		ChatID:      c.Params("id"),
		Content:     req.Content,
		Type:        req.MessageType,
		Attachments: req.Attachments,
		ReplyTo:     req.ReplyTo,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// EditMessage sender edits the content
// @Summary Edit a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "message id"
// @Param request body EditMessageReq true "content"
// @Success 200 {object} domain.Message
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/messages/{id} [put]
func (h *ChatHandler) EditMessage(c *fiber.Ctx) error {
	var req EditMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.coordinator.Edit(ctx, actorOf(c), c.Params("id"), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage sender or group admin deletes
// @Summary Delete a message
// @Tags Messages
// @Param id path string true "message id"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.coordinator.Delete(ctx, actorOf(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkRead reset the caller's unread count
// @Summary Mark a chat read
// @Tags Chats
// @Produce json
// @Param id path string true "chat id"
// @Success 200 {object} domain.ReadPayload
// @Router /api/chats/{id}/read [post]
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	read, err := h.coordinator.MarkAsRead(ctx, actorOf(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(domain.ReadPayload{
		ChatID:            read.ChatID,
		UserID:            read.UserID,
		LastReadMessageID: read.LastReadMessageID,
		ReadAt:            read.ReadAt,
	})
}

// SetStatus archive, mute or activate the chat for the caller
// @Summary Set member status
// @Tags Chats
// @Accept json
// @Param id path string true "chat id"
// @Param request body StatusReq true "status"
// @Success 204
// @Failure 400 {object} map[string]string
// @Router /api/chats/{id}/status [put]
func (h *ChatHandler) SetStatus(c *fiber.Ctx) error {
	var req StatusReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.coordinator.SetMemberStatus(ctx, actorOf(c), c.Params("id"), req.Status); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMember admin adds a user to the group
// @Summary Add a group member
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "chat id"
// @Param request body MemberReq true "user"
// @Success 200 {object} domain.Chat
// @Failure 403 {object} map[string]string
// @Router /api/chats/{id}/members [post]
func (h *ChatHandler) AddMember(c *fiber.Ctx) error {
	var req MemberReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.AddMember(ctx, actorOf(c), c.Params("id"), req.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

// RemoveMember admin removes a user from the group
// @Summary Remove a group member
// @Tags Groups
// @Produce json
// @Param id path string true "chat id"
// @Param userId path string true "user id"
// @Success 200 {object} domain.Chat
// @Failure 403 {object} map[string]string
// @Router /api/chats/{id}/members/{userId} [delete]
func (h *ChatHandler) RemoveMember(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.RemoveMember(ctx, actorOf(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

// RenameGroup admin renames the group
// @Summary Rename a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "chat id"
// @Param request body RenameReq true "name"
// @Success 200 {object} domain.Chat
// @Router /api/chats/{id}/name [put]
func (h *ChatHandler) RenameGroup(c *fiber.Ctx) error {
	var req RenameReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.RenameGroup(ctx, actorOf(c), c.Params("id"), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

// LeaveGroup the caller leaves the group
// @Summary Leave a group
// @Tags Groups
// @Param id path string true "chat id"
// @Success 204
// @Router /api/chats/{id}/leave [post]
func (h *ChatHandler) LeaveGroup(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.coordinator.LeaveGroup(ctx, actorOf(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RebuildLastMessage admin recomputes the last message window
// @Summary Rebuild last message
// @Tags Groups
// @Produce json
// @Param id path string true "chat id"
// @Success 200 {object} domain.Chat
// @Router /api/chats/{id}/rebuild [post]
func (h *ChatHandler) RebuildLastMessage(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	chat, err := h.coordinator.Rebuild(ctx, actorOf(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(chat)
}

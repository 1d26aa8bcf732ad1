package app

import (
	"context"
	"time"

	"chat_sync_service/internal/user/domain"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

// UserHandler REST surface of the auth service
type UserHandler struct {
	Usecase UserUseCase
}

// NewUserHandler create UserHandler
func NewUserHandler(usecase UserUseCase) *UserHandler {
	return &UserHandler{Usecase: usecase}
}

// LoginReq body of POST /auth/login
type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func fail(c *fiber.Ctx, err error) error {
	status := errprocess.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": errprocess.Public(err)})
}

// Register create an account
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterInput true "account"
// @Success 201 {object} domain.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errprocess.Validation("invalid request"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.Usecase.Register(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login issue a token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "credentials"
// @Success 200 {object} domain.LoginResult
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errprocess.Validation("invalid request"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Usecase.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    res.Token,
		Expires:  res.ExpiresAt,
		HTTPOnly: true,
	})
	return c.JSON(res)
}

// Logout drop the session
// @Summary Logout
// @Tags Auth
// @Success 204
// @Router /auth/logout [post]
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Usecase.Logout(ctx, middlewares.UserID(c)); err != nil {
		return fail(c, err)
	}
	c.ClearCookie(middlewares.CookieToken)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me current profile
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} domain.User
// @Router /users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.Usecase.Me(ctx, middlewares.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// Search users by username
// @Summary Search users
// @Tags Users
// @Produce json
// @Param username query string true "at least 3 characters"
// @Success 200 {array} domain.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users [get]
func (h *UserHandler) Search(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Usecase.Search(ctx, c.Query("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// SessionMiddleware reject tokens whose redis session was dropped by logout
func (h *UserHandler) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := requestContext(c)
		defer cancel()
		if err := h.Usecase.CheckSession(ctx, middlewares.UserID(c)); err != nil {
			return fail(c, err)
		}
		return c.Next()
	}
}

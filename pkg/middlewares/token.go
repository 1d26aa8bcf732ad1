package middlewares

import (
	"strings"

	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenUserID set c.locals name for the verified user id
	TokenUserID = "UserID"
	//TokenRole set c.locals name for the verified role
	TokenRole = "role"
	//TokenIdentity set c.locals name for the whole token.Identity
	TokenIdentity = "identity"
)

// TokenVerifier verify a bearer token
type TokenVerifier interface {
	Verify(tokenStr string) (token.Identity, error)
}

// ExtractToken read token from Authorization header, query "auth" or cookie "auth_token"
func ExtractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := c.Query(QueryToken); t != "" {
		return t
	}
	return c.Cookies(CookieToken)
}

// JWTMiddleware validates the token and stores the identity in c.Locals
func JWTMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := verifier.Verify(ExtractToken(c))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": errprocess.Public(err),
			})
		}

		c.Locals(TokenUserID, id.UserID)
		c.Locals(TokenRole, id.Role)
		c.Locals(TokenIdentity, id)
		return c.Next()
	}
}

// UserID user id stored by JWTMiddleware
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenUserID).(string)
	return id
}

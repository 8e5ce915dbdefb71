package middlewares

import (
	"strings"

	t_token "chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware validates the JWT from query, cookie or Authorization header
// and stores the viewer uid in c.Locals(TokenMemberID).
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}
		if tokenStr == "" {
			tokenStr = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}

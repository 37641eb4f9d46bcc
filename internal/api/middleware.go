package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetflow/realtime/internal/auth"
)

const localUserID = "user_id"

// RequireAuth validates the bearer token and stashes the caller's user id in
// the request locals.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed authorization header")
		}
		claims, err := auth.ValidateToken(secret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(localUserID, claims.UserID())
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals(localUserID).(string)
	return uid
}

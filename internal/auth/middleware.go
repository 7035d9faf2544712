package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalUserID is the fiber.Ctx locals key the middleware stores the verified
// caller id under.
const LocalUserID = "user_id"

// Middleware authenticates every request before any handler runs. Missing or
// invalid credentials abort with 401 and no side effects.
func Middleware(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		userID, err := v.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// UserID returns the authenticated caller id set by Middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

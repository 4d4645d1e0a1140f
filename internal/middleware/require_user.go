package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/huddle-api/internal/utils"
)

// RequireUser rejects requests whose token did not carry a usable subject.
// It runs after JWTProtected, which accepts such tokens but sets no user id.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("user_id").(uint); !ok || id == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		return c.Next()
	}
}

package middleware

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// UserSyncFunc persists the identity supplied by the token.
type UserSyncFunc func(ctx context.Context, userID uint, name string) error

// SyncUser upserts the authenticated user the first time this process sees
// them. Failures are logged and retried on the next request.
func SyncUser(syncFn UserSyncFunc, logger zerolog.Logger) fiber.Handler {
	var seen sync.Map
	log := logger.With().Str("component", "identity_sync").Logger()

	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return c.Next()
		}
		if _, known := seen.Load(userID); known {
			return c.Next()
		}

		name, _ := c.Locals("user_name").(string)
		if err := syncFn(c.UserContext(), userID, name); err != nil {
			log.Warn().Err(err).Uint("user_id", userID).Msg("failed to sync user profile")
			return c.Next()
		}
		seen.Store(userID, struct{}{})

		return c.Next()
	}
}

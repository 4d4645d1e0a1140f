package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// UnreadHandler reports unread counters for the caller.
type UnreadHandler struct {
	unread service.UnreadService
	logger zerolog.Logger
}

// NewUnreadHandler constructs an unread handler.
func NewUnreadHandler(unread service.UnreadService, logger zerolog.Logger) *UnreadHandler {
	return &UnreadHandler{
		unread: unread,
		logger: logger.With().Str("component", "unread_handler").Logger(),
	}
}

// Register binds unread routes.
func (h *UnreadHandler) Register(router fiber.Router) {
	router.Get("/", h.counts)
}

func (h *UnreadHandler) counts(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	counts, err := h.unread.Counts(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "load unread counts")
	}
	return utils.SendSuccess(c, "unread counts", counts)
}

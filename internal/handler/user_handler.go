package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// UserHandler exposes the member directory and presence updates.
type UserHandler struct {
	users  service.UserService
	logger zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/presence", h.presence)
	router.Post("/status", h.status)
	router.Post("/heartbeat", h.heartbeat)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	users, err := h.users.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "list users")
	}
	return utils.SendSuccess(c, "users", users)
}

func (h *UserHandler) presence(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.PresenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.UpdatePresence(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "update presence")
	}
	return utils.SendSuccess(c, "presence updated", user)
}

func (h *UserHandler) status(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.StatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.UpdateStatus(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "update status")
	}
	return utils.SendSuccess(c, "status updated", user)
}

func (h *UserHandler) heartbeat(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	user, err := h.users.Heartbeat(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "heartbeat")
	}
	return utils.SendSuccess(c, "heartbeat recorded", user)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// ConversationHandler exposes direct message conversations.
type ConversationHandler struct {
	conversations service.ConversationService
	unread        service.UnreadService
	logger        zerolog.Logger
}

// NewConversationHandler constructs a conversation handler.
func NewConversationHandler(conversations service.ConversationService, unread service.UnreadService, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		unread:        unread,
		logger:        logger.With().Str("component", "conversation_handler").Logger(),
	}
}

// Register binds conversation routes.
func (h *ConversationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.open)
	router.Post("/:id/read", h.markRead)
}

func (h *ConversationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	conversations, err := h.conversations.List(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "list conversations")
	}
	return utils.SendSuccess(c, "conversations", conversations)
}

func (h *ConversationHandler) open(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.CreateDirectMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	conversation, err := h.conversations.Open(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "open conversation")
	}
	if conversation.Created {
		return utils.Created(c, "conversation created", conversation)
	}
	return utils.SendSuccess(c, "conversation", conversation)
}

func (h *ConversationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.unread.MarkConversationRead(requestContext(c), userID, conversationID); err != nil {
		return respondError(c, h.logger, err, "mark conversation read")
	}
	return utils.SendSuccess(c, "conversation marked read", nil)
}

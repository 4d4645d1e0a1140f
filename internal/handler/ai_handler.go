package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// AIHandler exposes timeline summaries and smart replies.
type AIHandler struct {
	assistant service.AssistantService
	logger    zerolog.Logger
}

// NewAIHandler constructs an AI handler.
func NewAIHandler(assistant service.AssistantService, logger zerolog.Logger) *AIHandler {
	return &AIHandler{
		assistant: assistant,
		logger:    logger.With().Str("component", "ai_handler").Logger(),
	}
}

// Register binds AI routes.
func (h *AIHandler) Register(router fiber.Router) {
	router.Post("/summarize", h.summarize)
	router.Post("/smart-replies", h.smartReplies)
}

func (h *AIHandler) summarize(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.SummarizeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	summary, err := h.assistant.Summarize(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "summarize")
	}
	return utils.SendSuccess(c, "summary", summary)
}

func (h *AIHandler) smartReplies(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.SmartReplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	replies, err := h.assistant.SmartReplies(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "smart replies")
	}
	return utils.SendSuccess(c, "smart replies", replies)
}

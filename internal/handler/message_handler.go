package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// MessageHandler exposes timeline reads, message writes and reactions.
type MessageHandler struct {
	feed      service.FeedService
	messages  service.MessageService
	reactions service.ReactionService
	logger    zerolog.Logger
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(feed service.FeedService, messages service.MessageService, reactions service.ReactionService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		feed:      feed,
		messages:  messages,
		reactions: reactions,
		logger:    logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds message routes. writeGuards run before sending a message and
// toggling a reaction.
func (h *MessageHandler) Register(router fiber.Router, writeGuards ...fiber.Handler) {
	router.Get("/", h.page)
	router.Get("/poll", h.poll)
	router.Post("/", guarded(writeGuards, h.send)...)
	router.Get("/:id/thread", h.thread)
	router.Patch("/:id", h.edit)
	router.Post("/:id/reactions", guarded(writeGuards, h.toggleReaction)...)
}

func (h *MessageHandler) page(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var query dto.FeedQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	messages, err := h.feed.Page(requestContext(c), userID, query)
	if err != nil {
		return respondError(c, h.logger, err, "load messages")
	}

	meta := fiber.Map{"count": len(messages)}
	if len(messages) > 0 {
		meta["oldest_id"] = messages[0].ID
	}
	return utils.OK(c, messages, "messages", meta)
}

func (h *MessageHandler) poll(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var query dto.PollQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	messages, err := h.feed.Poll(requestContext(c), userID, query)
	if err != nil {
		return respondError(c, h.logger, err, "poll messages")
	}

	return utils.OK(c, messages, "new messages", fiber.Map{"count": len(messages)})
}

func (h *MessageHandler) thread(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	parentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.feed.Thread(requestContext(c), userID, parentID)
	if err != nil {
		return respondError(c, h.logger, err, "load thread")
	}

	return utils.SendSuccess(c, "thread", messages)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.messages.Send(requestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "send message")
	}

	return utils.Created(c, "message sent", message)
}

func (h *MessageHandler) edit(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EditMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.messages.Edit(requestContext(c), userID, messageID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "edit message")
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *MessageHandler) toggleReaction(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReactionToggleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.reactions.Toggle(requestContext(c), userID, messageID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "toggle reaction")
	}

	return utils.SendSuccess(c, "reaction "+result.Action, result)
}

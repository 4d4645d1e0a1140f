package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// ChannelHandler exposes channel directory and membership endpoints.
type ChannelHandler struct {
	channels service.ChannelService
	unread   service.UnreadService
	logger   zerolog.Logger
}

// NewChannelHandler constructs a channel handler.
func NewChannelHandler(channels service.ChannelService, unread service.UnreadService, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		channels: channels,
		unread:   unread,
		logger:   logger.With().Str("component", "channel_handler").Logger(),
	}
}

// Register binds channel routes.
func (h *ChannelHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/join", h.join)
	router.Post("/:id/leave", h.leave)
	router.Post("/:id/read", h.markRead)
	router.Post("/:id/archive", h.archive)
	router.Get("/:id/members", h.members)
	router.Post("/:id/members", h.invite)
}

func (h *ChannelHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	channels, err := h.channels.List(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "list channels")
	}
	return utils.SendSuccess(c, "channels", channels)
}

func (h *ChannelHandler) create(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == 0 {
		return unauthenticated(c)
	}

	var payload dto.CreateChannelRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := h.channels.Create(requestContext(c), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err, "create channel")
	}
	return utils.Created(c, "channel created", channel)
}

func (h *ChannelHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	channel, err := h.channels.Get(requestContext(c), userID, channelID)
	if err != nil {
		return respondError(c, h.logger, err, "load channel")
	}
	return utils.SendSuccess(c, "channel", channel)
}

func (h *ChannelHandler) join(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	channel, err := h.channels.Join(requestContext(c), userID, channelID)
	if err != nil {
		return respondError(c, h.logger, err, "join channel")
	}
	return utils.SendSuccess(c, "joined channel", channel)
}

func (h *ChannelHandler) leave(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.channels.Leave(requestContext(c), userID, channelID); err != nil {
		return respondError(c, h.logger, err, "leave channel")
	}
	return utils.SendSuccess(c, "left channel", nil)
}

func (h *ChannelHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.unread.MarkChannelRead(requestContext(c), userID, channelID); err != nil {
		return respondError(c, h.logger, err, "mark channel read")
	}
	return utils.SendSuccess(c, "channel marked read", nil)
}

func (h *ChannelHandler) archive(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.channels.Archive(requestContext(c), actor, channelID); err != nil {
		return respondError(c, h.logger, err, "archive channel")
	}
	return utils.SendSuccess(c, "channel archived", nil)
}

func (h *ChannelHandler) members(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	members, err := h.channels.Members(requestContext(c), userID, channelID)
	if err != nil {
		return respondError(c, h.logger, err, "list members")
	}
	return utils.SendSuccess(c, "channel members", members)
}

func (h *ChannelHandler) invite(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == 0 {
		return unauthenticated(c)
	}
	channelID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.InviteMemberRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	added, err := h.channels.Invite(requestContext(c), actor, channelID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "invite member")
	}
	if !added {
		return utils.SendSuccess(c, "already a member", fiber.Map{"added": false})
	}
	return utils.Created(c, "member added", fiber.Map{"added": true})
}

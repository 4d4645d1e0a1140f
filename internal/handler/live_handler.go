package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

const liveTargetLocal = "live_target"

// LiveHandler upgrades readers of a timeline to a websocket push feed.
type LiveHandler struct {
	live   service.LiveService
	feed   service.FeedService
	logger zerolog.Logger
}

// NewLiveHandler creates a live feed handler.
func NewLiveHandler(live service.LiveService, feed service.FeedService, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		live:   live,
		feed:   feed,
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the websocket route. Access to the timeline is checked
// before the upgrade so refusals are plain HTTP errors.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", h.authorizeUpgrade)
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *LiveHandler) authorizeUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	target, err := parseLiveTarget(c.Query("channel_id"), c.Query("conversation_id"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.feed.Authorize(requestContext(c), userID, target); err != nil {
		return respondError(c, h.logger, err, "authorize live feed")
	}

	c.Locals(liveTargetLocal, target)
	return c.Next()
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	target, ok := conn.Locals(liveTargetLocal).(models.Target)
	if userID == 0 || !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		_ = conn.Close()
		return
	}

	requestID, _ := conn.Locals("request_id").(string)
	logger := h.logger.With().
		Uint("user_id", userID).
		Str("target", target.Key()).
		Str("request_id", requestID).
		Logger()

	logger.Info().Msg("live websocket connected")
	h.live.ServeConnection(conn, service.LiveConnectionOptions{
		UserID:    userID,
		Target:    target,
		RequestID: requestID,
	})
	logger.Info().Msg("live websocket disconnected")
}

func parseLiveTarget(channelRaw, conversationRaw string) (models.Target, error) {
	var target models.Target
	if value := strings.TrimSpace(channelRaw); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return models.Target{}, fiber.NewError(fiber.StatusBadRequest, "invalid channel_id")
		}
		target.ChannelID = uint(parsed)
	}
	if value := strings.TrimSpace(conversationRaw); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return models.Target{}, fiber.NewError(fiber.StatusBadRequest, "invalid conversation_id")
		}
		target.ConversationID = uint(parsed)
	}
	return target, nil
}

package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

const replayLimit = 50

// NotificationHandler serves the notification inbox and its SSE stream.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler instance. keepAlive controls the
// comment frames written to idle streams.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stream", h.stream)
	router.Patch("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	notifications, err := h.service.List(requestContext(c), userID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

// stream pushes notifications as server-sent events. A reconnecting client
// that sends Last-Event-ID first receives what it missed, up to replayLimit.
func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	lastSeen, err := lastEventID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid Last-Event-ID")
	}

	// subscribe before reading the backlog so nothing falls between the two
	live, cleanup := h.service.Subscribe(userID)

	var backlog []dto.NotificationResponse
	if lastSeen > 0 {
		recent, err := h.service.List(requestContext(c), userID, replayLimit, 0)
		if err != nil {
			cleanup()
			return respondError(c, h.logger, err, "replay notifications")
		}
		for i := len(recent) - 1; i >= 0; i-- {
			if recent[i].ID > lastSeen {
				backlog = append(backlog, recent[i])
			}
		}
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	logger := requestLogger(h.logger, c).With().Uint("user_id", userID).Logger()
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer cleanup()

		out := sseWriter{w: w}
		if err := out.retry(keepAlive); err != nil {
			return
		}

		sent := lastSeen
		send := func(n dto.NotificationResponse) error {
			if n.ID != 0 && n.ID <= sent {
				return nil
			}
			if err := out.event(n.ID, "notification", n); err != nil {
				return err
			}
			if n.ID > sent {
				sent = n.ID
			}
			return nil
		}

		for _, n := range backlog {
			if err := send(n); err != nil {
				logger.Debug().Err(err).Msg("notification stream closed during replay")
				return
			}
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case n, ok := <-live:
				if !ok {
					return
				}
				if err := send(n); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed")
					return
				}
			case now := <-ticker.C:
				if err := out.comment("keep-alive " + now.UTC().Format(time.RFC3339)); err != nil {
					logger.Debug().Err(err).Msg("notification stream closed during keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userID)
	if err != nil {
		return respondError(c, h.logger, err, "mark notification read")
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func lastEventID(c *fiber.Ctx) (uint, error) {
	raw := strings.TrimSpace(c.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("last_event_id"))
	}
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// sseWriter frames server-sent events onto a streamed response body.
type sseWriter struct {
	w *bufio.Writer
}

func (s sseWriter) event(id uint, name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", id, name, payload); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.w.Flush()
}

// retry tells EventSource clients how long to wait before reconnecting.
func (s sseWriter) retry(d time.Duration) error {
	if _, err := fmt.Fprintf(s.w, "retry: %d\n\n", d.Milliseconds()); err != nil {
		return err
	}
	return s.w.Flush()
}

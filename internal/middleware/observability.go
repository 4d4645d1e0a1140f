package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/observability"
)

// Observability records request metrics and writes one structured log line
// per API call. Streaming endpoints stay open for minutes and are skipped.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Path()
		if !strings.HasPrefix(path, "/api/") || longLived(path) {
			return err
		}

		elapsed := time.Since(start)
		method := c.Method()
		route := path
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		status := c.Response().StatusCode()
		code := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, code).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			observability.HTTPErrors().WithLabelValues(method, route, code).Inc()
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			observability.HTTPErrors().WithLabelValues(method, route, code).Inc()
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
			event = event.Uint("user_id", id)
		}
		event.
			Str("request_id", GetRequestID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request served")

		return err
	}
}

func longLived(path string) bool {
	return strings.HasSuffix(path, "/live/ws") || strings.HasSuffix(path, "/notifications/stream")
}

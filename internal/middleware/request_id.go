package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDLocal     = "request_id"
	maxRequestIDLength = 64
)

type requestIDKey struct{}

// RequestID tags every request with an identifier that follows it into logs,
// live sessions and service contexts. A well-formed client value is reused.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := acceptRequestID(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(requestIDLocal, id)
		c.Set(RequestIDHeader, id)
		c.SetUserContext(WithRequestID(c.UserContext(), id))

		return c.Next()
	}
}

// GetRequestID returns the identifier bound to the active request.
func GetRequestID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(requestIDLocal).(string); ok {
		return id
	}
	return RequestIDFrom(c.UserContext())
}

// RequestIDFrom extracts the identifier stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// acceptRequestID drops client values that would be unsafe to echo into logs.
func acceptRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLength {
		return ""
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ""
		}
	}
	return raw
}

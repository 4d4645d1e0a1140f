package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/middleware"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.WithRequestID(ctx, middleware.GetRequestID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if id := middleware.GetRequestID(c); id != "" {
			logger = base.With().Str("request_id", id).Logger()
		}
	}
	return &logger
}

func unauthenticated(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
}

// respondError maps the service error taxonomy onto HTTP statuses. Unexpected
// errors are logged and reported without their details.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		details := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
		}
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrValidation):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstream):
		requestLogger(logger, c).Warn().Err(err).Msg(action + " upstream failure")
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(action + " failed")
		return utils.SendError(c, fiber.StatusInternalServerError, action+" failed")
	}
}

func guarded(guards []fiber.Handler, final fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, final)
}

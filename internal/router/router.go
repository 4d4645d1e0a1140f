package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/huddle-api/internal/config"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/middleware"
	"github.com/noah-isme/huddle-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MessageHandler      *handler.MessageHandler
	ChannelHandler      *handler.ChannelHandler
	ConversationHandler *handler.ConversationHandler
	UserHandler         *handler.UserHandler
	UnreadHandler       *handler.UnreadHandler
	SearchHandler       *handler.SearchHandler
	AIHandler           *handler.AIHandler
	UploadHandler       *handler.UploadHandler
	NotificationHandler *handler.NotificationHandler
	LiveHandler         *handler.LiveHandler

	JWTMiddleware      fiber.Handler
	IdentityMiddleware fiber.Handler
	// WriteLimiter guards message sends and reaction toggles.
	WriteLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	protected := []fiber.Handler{passThrough(deps.JWTMiddleware), passThrough(deps.IdentityMiddleware)}
	if deps.JWTMiddleware != nil {
		protected = append(protected, middleware.RequireUser())
	}
	group := func(path string) fiber.Router {
		return api.Group(path, protected...)
	}

	var writeGuards []fiber.Handler
	if deps.WriteLimiter != nil {
		writeGuards = append(writeGuards, deps.WriteLimiter)
	}

	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(group("/messages"), writeGuards...)
	}
	if deps.ChannelHandler != nil {
		deps.ChannelHandler.Register(group("/channels"))
	}
	if deps.ConversationHandler != nil {
		deps.ConversationHandler.Register(group("/conversations"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(group("/users"))
	}
	if deps.UnreadHandler != nil {
		deps.UnreadHandler.Register(group("/unread"))
	}
	if deps.SearchHandler != nil {
		deps.SearchHandler.Register(group("/search"))
	}
	if deps.AIHandler != nil {
		deps.AIHandler.Register(group("/ai"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(group("/files"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(group("/notifications"))
	}
	if deps.LiveHandler != nil {
		deps.LiveHandler.Register(group("/live"))
	}
}

func passThrough(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}

package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the global middleware chain.
type Config struct {
	Logger       zerolog.Logger
	AllowOrigins string
}

// Register attaches the middleware every route shares.
func Register(app *fiber.App, cfg Config) {
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			cfg.Logger.Error().
				Str("request_id", GetRequestID(c)).
				Interface("panic", e).
				Msg("handler panicked")
		},
	}))
	app.Use(RequestID())
	app.Use(Observability(cfg.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + RequestIDHeader,
		AllowMethods:  "GET,POST,PATCH,OPTIONS",
		ExposeHeaders: RequestIDHeader,
	}))
}

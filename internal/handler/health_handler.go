package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/huddle-api/internal/config"
	"github.com/noah-isme/huddle-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Uptime      string    `json:"uptime"`
}

// HealthCheck reports service identity and uptime.
func HealthCheck(cfg config.Config) fiber.Handler {
	started := time.Now()
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Uptime:      time.Since(started).Truncate(time.Second).String(),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

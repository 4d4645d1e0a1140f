package handler_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/config"
	"github.com/noah-isme/huddle-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{
		AppName: "Huddle API",
		AppEnv:  "test",
	}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	assert.True(t, body.Success)

	var payload handler.HealthResponse
	require.NoError(t, json.Unmarshal(body.Data, &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, cfg.AppName, payload.Service)
	assert.Equal(t, cfg.AppEnv, payload.Environment)
	assert.NotEmpty(t, payload.Uptime)
	assert.WithinDuration(t, time.Now().UTC(), payload.Timestamp, 2*time.Second)
}

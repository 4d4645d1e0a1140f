package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/config"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/middleware"
	"github.com/noah-isme/huddle-api/internal/router"
	"github.com/noah-isme/huddle-api/internal/service"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{AppName: "Huddle API", AppEnv: "test", JWTSecret: "secret"}
	logger := zerolog.Nop()

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		UnreadHandler: handler.NewUnreadHandler(service.NewUnreadService(nil, nil, nil, nil, 0, logger), logger),
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})
	return app
}

func TestRouterServesHealthWithoutToken(t *testing.T) {
	app := newApp(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, "Huddle API", resp.Header.Get("X-Application"))
}

func TestRouterExposesMetrics(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouterProtectsAPIRoutes(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/unread", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRouterRejectsTokensWithoutSubject(t *testing.T) {
	app := newApp(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": "ghost"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unread", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

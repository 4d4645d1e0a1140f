package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	MessagesSent().WithLabelValues("channel", "top_level").Inc()
	PollBatchSize().Observe(3)
	AssistantCalls().WithLabelValues("summarize", "ok").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "huddle_messages_sent_total")
	require.Contains(t, string(body), "huddle_poll_batch_size")
	require.Contains(t, string(body), `huddle_assistant_calls_total{operation="summarize",outcome="ok"}`)
}

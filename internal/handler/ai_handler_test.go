package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/service"
)

type assistantServiceStub struct {
	service.AssistantService
	lastSummary dto.SummarizeRequest
}

func (s *assistantServiceStub) Summarize(_ context.Context, _ uint, payload dto.SummarizeRequest) (dto.SummaryResponse, error) {
	s.lastSummary = payload
	return dto.SummaryResponse{Available: false, Summary: "unavailable"}, nil
}

func (s *assistantServiceStub) SmartReplies(context.Context, uint, dto.SmartReplyRequest) (dto.SmartReplyResponse, error) {
	return dto.SmartReplyResponse{Available: true, Suggestions: []string{}}, nil
}

type searchStub struct {
	service.SearchService
	lastQuery dto.SearchQuery
}

func (s *searchStub) Search(_ context.Context, _ uint, query dto.SearchQuery) (dto.SearchResponse, error) {
	s.lastQuery = query
	return dto.SearchResponse{Messages: []dto.MessageResponse{}, Channels: []dto.ChannelResponse{}, Users: []dto.UserResponse{}}, nil
}

func TestAIHandler_DegradedSummaryIsStillOK(t *testing.T) {
	svc := &assistantServiceStub{}
	app := fiber.New()
	handler.NewAIHandler(svc, testLogger()).Register(app.Group("/api/v1/ai", withUser))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/summarize", strings.NewReader(`{"channel_id":4,"limit":20}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.SummarizeRequest{ChannelID: 4, Limit: 20}, svc.lastSummary)

	var body envelope
	decodeResponse(t, resp, &body)
	require.JSONEq(t, `{"available":false,"summary":"unavailable","message_count":0}`, string(body.Data))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ai/smart-replies", strings.NewReader(`{"conversation_id":2}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", "1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decodeResponse(t, resp, &body)
	require.JSONEq(t, `{"available":true,"suggestions":[]}`, string(body.Data))
}

func TestSearchHandler_ParsesFilters(t *testing.T) {
	svc := &searchStub{}
	app := fiber.New()
	handler.NewSearchHandler(svc, testLogger()).Register(app.Group("/api/v1/search", withUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=launch&channel_id=3&from_user_id=9", nil)
	req.Header.Set("X-Test-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, dto.SearchQuery{Query: "launch", ChannelID: 3, FromUserID: 9}, svc.lastQuery)
}

package handler_test

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/service"
)

type notificationStub struct {
	service.NotificationService
	lastLimit  int
	lastOffset int
	stream     chan dto.NotificationResponse
	cleaned    chan struct{}
	recent     []dto.NotificationResponse
	err        error
}

func (s *notificationStub) List(_ context.Context, _ uint, limit, offset int) ([]dto.NotificationResponse, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if s.recent != nil {
		return s.recent, s.err
	}
	return []dto.NotificationResponse{{ID: 1, Type: "mention", Message: "hi"}}, s.err
}

func (s *notificationStub) MarkRead(_ context.Context, id, userID uint) (dto.NotificationResponse, error) {
	if s.err != nil {
		return dto.NotificationResponse{}, s.err
	}
	return dto.NotificationResponse{ID: id, UserID: userID, Read: true}, nil
}

func (s *notificationStub) Subscribe(uint) (<-chan dto.NotificationResponse, func()) {
	return s.stream, func() { close(s.cleaned) }
}

func newNotificationApp(svc *notificationStub) *fiber.App {
	app := fiber.New()
	handler.NewNotificationHandler(svc, testLogger(), time.Minute).Register(app.Group("/api/v1/notifications", withUser))
	return app
}

func TestNotificationHandler_List(t *testing.T) {
	svc := &notificationStub{}
	app := newNotificationApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=5&offset=10", nil)
	req.Header.Set("X-Test-User", "7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 5, svc.lastLimit)
	require.Equal(t, 10, svc.lastOffset)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=many", nil)
	req.Header.Set("X-Test-User", "7")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationHandler_MarkReadNotFound(t *testing.T) {
	app := newNotificationApp(&notificationStub{err: fmt.Errorf("%w: notification", service.ErrNotFound)})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/3/read", nil)
	req.Header.Set("X-Test-User", "7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandler_StreamWritesEvents(t *testing.T) {
	svc := &notificationStub{
		stream:  make(chan dto.NotificationResponse, 1),
		cleaned: make(chan struct{}),
	}
	svc.stream <- dto.NotificationResponse{ID: 42, UserID: 7, Type: "thread_reply", Message: "new reply"}
	close(svc.stream)
	app := newNotificationApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	req.Header.Set("X-Test-User", "7")
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Contains(t, lines, "id: 42")
	require.Contains(t, lines, "event: notification")

	var data string
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.Contains(t, data, `"type":"thread_reply"`)

	select {
	case <-svc.cleaned:
	case <-time.After(time.Second):
		t.Fatal("stream cleanup was not called")
	}
}

func TestNotificationHandler_StreamReplaysMissedEvents(t *testing.T) {
	svc := &notificationStub{
		stream:  make(chan dto.NotificationResponse, 2),
		cleaned: make(chan struct{}),
		recent: []dto.NotificationResponse{
			{ID: 5, UserID: 7, Type: "mention"},
			{ID: 4, UserID: 7, Type: "mention"},
			{ID: 3, UserID: 7, Type: "mention"},
		},
	}
	svc.stream <- dto.NotificationResponse{ID: 5, UserID: 7, Type: "mention"}
	svc.stream <- dto.NotificationResponse{ID: 6, UserID: 7, Type: "direct_message"}
	close(svc.stream)
	app := newNotificationApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	req.Header.Set("X-Test-User", "7")
	req.Header.Set("Last-Event-ID", "3")
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ids []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "id: ") {
			ids = append(ids, strings.TrimPrefix(line, "id: "))
		}
	}
	require.Equal(t, []string{"4", "5", "6"}, ids)
	require.Equal(t, 50, svc.lastLimit)
}

func TestNotificationHandler_StreamRejectsBadLastEventID(t *testing.T) {
	app := newNotificationApp(&notificationStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	req.Header.Set("X-Test-User", "7")
	req.Header.Set("Last-Event-ID", "yesterday")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

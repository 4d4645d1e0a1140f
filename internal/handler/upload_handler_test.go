package handler_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/service"
)

type mockUploadService struct {
	lastUserID uint
	response   dto.UploadResponse
	err        error
}

func (m *mockUploadService) Upload(_ context.Context, userID uint, file *multipart.FileHeader) (dto.UploadResponse, error) {
	if file != nil {
		if _, err := file.Open(); err != nil {
			return dto.UploadResponse{}, err
		}
	}
	m.lastUserID = userID
	if m.err != nil {
		return dto.UploadResponse{}, m.err
	}
	return m.response, nil
}

func multipartFile(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newUploadApp(svc *mockUploadService) *fiber.App {
	app := fiber.New()
	handler.NewUploadHandler(svc, testLogger()).Register(app.Group("/api/v1/files", withUser))
	return app
}

func TestUploadHandler_Success(t *testing.T) {
	svc := &mockUploadService{response: dto.UploadResponse{URL: "https://cdn.example.com/plan.pdf", SizeBytes: 3, MimeType: "application/pdf", FileName: "plan.pdf"}}
	app := newUploadApp(svc)

	body, contentType := multipartFile(t, "plan.pdf", []byte("pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Test-User", "7")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool               `json:"success"`
		Data    dto.UploadResponse `json:"data"`
		Message string             `json:"message"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "upload successful", response.Message)
	require.Equal(t, uint(7), svc.lastUserID)
	require.Equal(t, svc.response.URL, response.Data.URL)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	app := newUploadApp(&mockUploadService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", nil)
	req.Header.Set("X-Test-User", "7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "too_large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "type", err: service.ErrUploadTypeNotAllowed, statusCode: fiber.StatusBadRequest},
		{name: "scan", err: service.ErrUploadScanFailed, statusCode: fiber.StatusBadRequest},
		{name: "disabled", err: service.ErrUploadsDisabled, statusCode: fiber.StatusBadGateway},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUploadApp(&mockUploadService{err: tc.err})

			body, contentType := multipartFile(t, "doc.pdf", []byte("pdf"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("X-Test-User", "7")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

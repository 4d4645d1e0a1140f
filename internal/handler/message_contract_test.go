package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	return schema
}

func TestMessagePageContract(t *testing.T) {
	schema := compileSchema(t, "message_page.schema.json")

	now := time.Now().UTC()
	channelID := uint(2)
	feed := &feedStub{messages: []dto.MessageResponse{
		{
			ID:         10,
			ChannelID:  &channelID,
			UserID:     1,
			Content:    "Kickoff notes",
			Type:       models.MessageText,
			ReplyCount: 2,
			CreatedAt:  now.Add(-time.Minute),
			UpdatedAt:  now.Add(-time.Minute),
			Author:     dto.AuthorSummary{ID: 1, Name: "Ada", Presence: models.PresenceOnline, StatusEmoji: "🚀"},
			Reactions:  []dto.ReactionSummary{{Emoji: "👍", Count: 2, UserIDs: []uint{1, 3}}},
		},
		{
			ID:        11,
			ChannelID: &channelID,
			UserID:    99,
			Content:   "plan.pdf",
			Type:      models.MessageFile,
			CreatedAt: now,
			UpdatedAt: now,
			Attachment: &dto.AttachmentResponse{
				URL:       "https://cdn.example.com/plan.pdf",
				FileName:  "plan.pdf",
				MimeType:  "application/pdf",
				SizeBytes: 2048,
			},
			Author:    dto.UnknownAuthor(99),
			Reactions: []dto.ReactionSummary{},
		},
	}}
	app := newMessageApp(feed, &messageStub{}, &reactionStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?channel_id=2", nil)
	req.Header.Set("X-Test-User", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

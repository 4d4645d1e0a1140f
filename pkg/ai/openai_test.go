package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIAssistantSuggestReplies(t *testing.T) {
	server := fakeCompletionServer(t, http.StatusOK, "```json\n[\"Yes\", \"No\", \"Maybe\", \"Later\"]\n```")
	assistant, err := NewOpenAIAssistant(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	suggestions, err := assistant.SuggestReplies(context.Background(), []TranscriptLine{{Author: "Ada", Content: "ship?"}})
	require.NoError(t, err)
	require.Equal(t, []string{"Yes", "No", "Maybe"}, suggestions)
}

func TestOpenAIAssistantSummarizeSurfacesUpstreamErrors(t *testing.T) {
	server := fakeCompletionServer(t, http.StatusInternalServerError, "")
	assistant, err := NewOpenAIAssistant(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = assistant.Summarize(context.Background(), []TranscriptLine{{Author: "Ada", Content: "hi"}})
	require.Error(t, err)
}

func TestNewOpenAIAssistantRequiresKey(t *testing.T) {
	_, err := NewOpenAIAssistant(OpenAIConfig{})
	require.Error(t, err)
}

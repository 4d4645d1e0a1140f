package ai

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxReplySuggestions caps how many suggestions are surfaced.
const MaxReplySuggestions = 3

const replySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"type": "string", "minLength": 1}
}`

var replySchema = jsonschema.MustCompileString("replies.schema.json", replySchemaJSON)

// ParseReplySuggestions extracts reply suggestions from raw model output.
// Markdown code fences are stripped, the payload must be a JSON array of
// strings, and at most MaxReplySuggestions entries are kept. Anything else
// yields an empty list.
func ParseReplySuggestions(raw string) []string {
	payload := stripCodeFence(raw)
	if payload == "" {
		return []string{}
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return []string{}
	}
	if err := replySchema.Validate(decoded); err != nil {
		return []string{}
	}

	items := decoded.([]interface{})
	suggestions := make([]string, 0, MaxReplySuggestions)
	for _, item := range items {
		text := strings.TrimSpace(item.(string))
		if text == "" {
			continue
		}
		suggestions = append(suggestions, text)
		if len(suggestions) == MaxReplySuggestions {
			break
		}
	}
	return suggestions
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if newline := strings.Index(text, "\n"); newline >= 0 {
		// drop the language tag, e.g. ```json
		text = text[newline+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plainText strips markup from user input and returns the text the user
// actually typed. bluemonday escapes entities in its output; stored content
// is plain text, so they are decoded again before trimming.
func plainText(policy *bluemonday.Policy, raw string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(raw)))
}

package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no assistant backend is configured.
var ErrUnavailable = errors.New("assistant unavailable")

// TranscriptLine is one message rendered for the model.
type TranscriptLine struct {
	Author  string
	Content string
}

// Assistant is the language-model collaborator used by the messaging API.
type Assistant interface {
	Summarize(ctx context.Context, transcript []TranscriptLine) (string, error)
	SuggestReplies(ctx context.Context, transcript []TranscriptLine) ([]string, error)
}

// Disabled is an Assistant that always reports ErrUnavailable.
type Disabled struct{}

// Summarize implements Assistant.
func (Disabled) Summarize(context.Context, []TranscriptLine) (string, error) {
	return "", ErrUnavailable
}

// SuggestReplies implements Assistant.
func (Disabled) SuggestReplies(context.Context, []TranscriptLine) ([]string, error) {
	return nil, ErrUnavailable
}

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "huddle",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of assistant requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huddle",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed assistant requests",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/huddle-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_assistant").Logger(),
	}, nil
}

// Summarize asks the model for a short digest of the transcript.
func (a *OpenAIAssistant) Summarize(ctx context.Context, transcript []TranscriptLine) (string, error) {
	content, err := a.complete(ctx, "summarize", summarySystemPrompt, renderTranscript(transcript))
	if err != nil {
		return "", err
	}
	return content, nil
}

// SuggestReplies asks the model for short replies to the latest message.
func (a *OpenAIAssistant) SuggestReplies(ctx context.Context, transcript []TranscriptLine) ([]string, error) {
	content, err := a.complete(ctx, "smart_reply", replySystemPrompt, renderTranscript(transcript))
	if err != nil {
		return nil, err
	}

	suggestions := ParseReplySuggestions(content)
	if len(suggestions) == 0 {
		a.logger.Debug().Str("model", a.cfg.Model).Msg("model returned no usable reply suggestions")
	}
	return suggestions, nil
}

func (a *OpenAIAssistant) complete(parent context.Context, operation, system, prompt string) (string, error) {
	ctx, span := a.tracer.Start(parent, "openai."+operation, trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	aiDuration.WithLabelValues(a.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai %s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const summarySystemPrompt = "You summarize team chat conversations. Reply with a concise summary of the key points, " +
	"decisions and open questions. Use plain text and at most five sentences."

const replySystemPrompt = "You suggest short replies for the last message of a team chat. Respond only with a JSON array " +
	"of up to three short reply strings, for example [\"Sounds good!\", \"I'll take a look\"]."

func renderTranscript(transcript []TranscriptLine) string {
	builder := strings.Builder{}
	for _, line := range transcript {
		builder.WriteString(line.Author)
		builder.WriteString(": ")
		builder.WriteString(line.Content)
		builder.WriteString("\n")
	}
	return builder.String()
}

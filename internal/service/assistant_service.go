package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
	"github.com/noah-isme/huddle-api/pkg/ai"
)

const (
	defaultSummaryWindow = 50
	smartReplyWindow     = 10

	emptySummary       = "No messages to summarize."
	unavailableSummary = "The assistant is unavailable right now. Please try again later."
)

// AssistantService runs language-model helpers over a timeline.
type AssistantService interface {
	Summarize(ctx context.Context, userID uint, payload dto.SummarizeRequest) (dto.SummaryResponse, error)
	SmartReplies(ctx context.Context, userID uint, payload dto.SmartReplyRequest) (dto.SmartReplyResponse, error)
}

type assistantService struct {
	assistant ai.Assistant
	messages  repository.MessageRepository
	enricher  MessageEnricher
	access    timelineAccess
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAssistantService constructs the assistant service. A nil assistant
// reports every request as unavailable.
func NewAssistantService(
	assistant ai.Assistant,
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
	enricher MessageEnricher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AssistantService {
	if assistant == nil {
		assistant = ai.Disabled{}
	}
	return &assistantService{
		assistant: assistant,
		messages:  messages,
		enricher:  enricher,
		access:    timelineAccess{channels: channels, conversations: conversations},
		validator: validate,
		logger:    logger.With().Str("component", "assistant_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/assistant"),
	}
}

func (s *assistantService) Summarize(ctx context.Context, userID uint, payload dto.SummarizeRequest) (dto.SummaryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.summarize", trace.WithAttributes(attribute.String("target", payload.Target().Key())))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SummaryResponse{}, err
	}

	window := payload.Limit
	if window == 0 {
		window = defaultSummaryWindow
	}

	transcript, err := s.transcript(ctx, userID, payload.Target(), window)
	if err != nil {
		return dto.SummaryResponse{}, err
	}
	if len(transcript) == 0 {
		observability.AssistantCalls().WithLabelValues("summarize", "empty").Inc()
		return dto.SummaryResponse{Available: true, Summary: emptySummary}, nil
	}

	summary, err := s.assistant.Summarize(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		observability.AssistantCalls().WithLabelValues("summarize", assistantOutcome(err)).Inc()
		s.logger.Warn().Err(err).Str("target", payload.Target().Key()).Msg("summary unavailable")
		return dto.SummaryResponse{Available: false, Summary: unavailableSummary, MessageCount: len(transcript)}, nil
	}
	observability.AssistantCalls().WithLabelValues("summarize", "ok").Inc()
	return dto.SummaryResponse{Available: true, Summary: summary, MessageCount: len(transcript)}, nil
}

func (s *assistantService) SmartReplies(ctx context.Context, userID uint, payload dto.SmartReplyRequest) (dto.SmartReplyResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.smart_replies", trace.WithAttributes(attribute.String("target", payload.Target().Key())))
	defer span.End()

	transcript, err := s.transcript(ctx, userID, payload.Target(), smartReplyWindow)
	if err != nil {
		return dto.SmartReplyResponse{}, err
	}
	if len(transcript) == 0 {
		observability.AssistantCalls().WithLabelValues("smart_replies", "empty").Inc()
		return dto.SmartReplyResponse{Available: true, Suggestions: []string{}}, nil
	}

	suggestions, err := s.assistant.SuggestReplies(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		observability.AssistantCalls().WithLabelValues("smart_replies", assistantOutcome(err)).Inc()
		s.logger.Warn().Err(err).Str("target", payload.Target().Key()).Msg("smart replies unavailable")
		return dto.SmartReplyResponse{Available: false, Suggestions: []string{}}, nil
	}
	observability.AssistantCalls().WithLabelValues("smart_replies", "ok").Inc()
	if suggestions == nil {
		suggestions = []string{}
	}
	if len(suggestions) > ai.MaxReplySuggestions {
		suggestions = suggestions[:ai.MaxReplySuggestions]
	}
	return dto.SmartReplyResponse{Available: true, Suggestions: suggestions}, nil
}

// transcript renders the newest window of top-level messages oldest-first.
func (s *assistantService) transcript(ctx context.Context, userID uint, target models.Target, window int) ([]ai.TranscriptLine, error) {
	if err := s.access.canRead(ctx, userID, target); err != nil {
		return nil, err
	}

	page, err := s.messages.Page(ctx, target, window, 0)
	if err != nil {
		return nil, err
	}

	lines := make([]ai.TranscriptLine, 0, len(page))
	for _, message := range s.enricher.Enrich(ctx, page) {
		lines = append(lines, ai.TranscriptLine{Author: message.Author.Name, Content: message.Content})
	}
	return lines, nil
}

func assistantOutcome(err error) string {
	if errors.Is(err, ai.ErrUnavailable) {
		return "disabled"
	}
	return "unavailable"
}

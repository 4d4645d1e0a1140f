package service

import (
	"context"
	"errors"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/feed"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// ReactionService toggles emoji reactions on messages.
type ReactionService interface {
	Toggle(ctx context.Context, userID, messageID uint, payload dto.ReactionToggleRequest) (dto.ReactionToggleResponse, error)
}

type reactionService struct {
	reactions repository.ReactionRepository
	messages  repository.MessageRepository
	access    timelineAccess
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewReactionService constructs a reaction service.
func NewReactionService(
	reactions repository.ReactionRepository,
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) ReactionService {
	return &reactionService{
		reactions: reactions,
		messages:  messages,
		access:    timelineAccess{channels: channels, conversations: conversations},
		validator: validate,
		logger:    logger.With().Str("component", "reaction_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/reaction"),
	}
}

func (s *reactionService) Toggle(ctx context.Context, userID, messageID uint, payload dto.ReactionToggleRequest) (dto.ReactionToggleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "reactions.toggle", trace.WithAttributes(
		attribute.Int("message_id", int(messageID)),
		attribute.Int("user_id", int(userID)),
	))
	defer span.End()

	payload.Emoji = strings.TrimSpace(payload.Emoji)
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReactionToggleResponse{}, err
	}
	if !isSingleEmoji(payload.Emoji) {
		return dto.ReactionToggleResponse{}, validationError("emoji", "must be a single emoji")
	}

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return dto.ReactionToggleResponse{}, translateStoreError(err, "message")
	}
	if err := s.access.canWrite(ctx, userID, message.Target()); err != nil {
		return dto.ReactionToggleResponse{}, err
	}

	added, err := s.reactions.Toggle(ctx, messageID, userID, payload.Emoji)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrToggleContended) {
			return dto.ReactionToggleResponse{}, conflictError("reaction is being toggled concurrently")
		}
		return dto.ReactionToggleResponse{}, err
	}

	action := dto.ReactionRemoved
	if added {
		action = dto.ReactionAdded
	}
	observability.ReactionToggles().WithLabelValues(action).Inc()

	response := dto.ReactionToggleResponse{
		MessageID: messageID,
		Emoji:     payload.Emoji,
		Action:    action,
		Reactions: []dto.ReactionSummary{},
	}

	rows, err := s.reactions.ListByMessages(ctx, []uint{messageID})
	if err != nil {
		s.logger.Warn().Err(err).Uint("message_id", messageID).Msg("failed to load reaction tally after toggle")
		return response, nil
	}
	if tally, ok := feed.Tally(rows)[messageID]; ok {
		response.Reactions = tally
	}
	return response, nil
}

// isSingleEmoji accepts exactly one emoji grapheme, including modifier and ZWJ sequences.
func isSingleEmoji(value string) bool {
	found := gomoji.CollectAll(value)
	return len(found) == 1 && found[0].Character == value
}

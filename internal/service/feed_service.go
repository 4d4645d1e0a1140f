package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/feed"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// FeedService composes enriched timelines for channels and conversations.
type FeedService interface {
	Page(ctx context.Context, viewerID uint, query dto.FeedQuery) ([]dto.MessageResponse, error)
	Poll(ctx context.Context, viewerID uint, query dto.PollQuery) ([]dto.MessageResponse, error)
	Thread(ctx context.Context, viewerID, parentID uint) ([]dto.MessageResponse, error)
	Authorize(ctx context.Context, viewerID uint, target models.Target) error
	Enrich(ctx context.Context, messages []models.Message) []dto.MessageResponse
}

type feedService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
	access    timelineAccess
	validator *validator.Validate
	pageLimit int
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewFeedService constructs the feed composer.
func NewFeedService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	reactions repository.ReactionRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
	validate *validator.Validate,
	pageLimit int,
	logger zerolog.Logger,
) FeedService {
	if pageLimit <= 0 {
		pageLimit = repository.DefaultPageLimit
	}
	return &feedService{
		messages:  messages,
		users:     users,
		reactions: reactions,
		access:    timelineAccess{channels: channels, conversations: conversations},
		validator: validate,
		pageLimit: pageLimit,
		logger:    logger.With().Str("component", "feed_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/feed"),
	}
}

func (s *feedService) Page(ctx context.Context, viewerID uint, query dto.FeedQuery) ([]dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feed.page", trace.WithAttributes(
		attribute.String("target", query.Target().Key()),
		attribute.Int("before", int(query.Before)),
	))
	defer span.End()

	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}
	if query.Limit < 0 {
		return nil, validationError("limit", "must not be negative")
	}
	if err := s.access.canRead(ctx, viewerID, query.Target()); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit == 0 {
		limit = s.pageLimit
	}

	page, err := s.messages.Page(ctx, query.Target(), limit, query.Before)
	if err != nil {
		return nil, err
	}
	return s.Enrich(ctx, page), nil
}

func (s *feedService) Poll(ctx context.Context, viewerID uint, query dto.PollQuery) ([]dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feed.poll", trace.WithAttributes(
		attribute.String("target", query.Target().Key()),
		attribute.Int("after", int(query.After)),
	))
	defer span.End()

	if err := s.access.canRead(ctx, viewerID, query.Target()); err != nil {
		return nil, err
	}

	batch, err := s.messages.NewSince(ctx, query.Target(), query.After)
	if err != nil {
		return nil, err
	}

	observability.PollsServed().Inc()
	observability.PollBatchSize().Observe(float64(len(batch)))
	return s.Enrich(ctx, batch), nil
}

// Thread returns the parent followed by its replies. A missing parent yields
// an empty thread rather than an error.
func (s *feedService) Thread(ctx context.Context, viewerID, parentID uint) ([]dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feed.thread", trace.WithAttributes(attribute.Int("parent_id", int(parentID))))
	defer span.End()

	thread, err := s.messages.Thread(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(thread) == 0 {
		return []dto.MessageResponse{}, nil
	}
	if err := s.access.canRead(ctx, viewerID, thread[0].Target()); err != nil {
		return nil, err
	}
	return s.Enrich(ctx, thread), nil
}

func (s *feedService) Authorize(ctx context.Context, viewerID uint, target models.Target) error {
	return s.access.canRead(ctx, viewerID, target)
}

// Enrich attaches authors and reaction tallies using one batched lookup each.
// Lookup failures are logged and degrade to placeholder data.
func (s *feedService) Enrich(ctx context.Context, messages []models.Message) []dto.MessageResponse {
	responses := make([]dto.MessageResponse, 0, len(messages))
	if len(messages) == 0 {
		return responses
	}

	authorIDs := make([]uint, 0, len(messages))
	messageIDs := make([]uint, 0, len(messages))
	seen := make(map[uint]struct{}, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
		if _, ok := seen[message.UserID]; ok {
			continue
		}
		seen[message.UserID] = struct{}{}
		authorIDs = append(authorIDs, message.UserID)
	}

	authors := make(map[uint]dto.AuthorSummary, len(authorIDs))
	users, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		s.logger.Warn().Err(err).Int("authors", len(authorIDs)).Msg("author lookup failed, using placeholders")
	}
	for _, user := range users {
		authors[user.ID] = dto.NewAuthorSummary(user)
	}

	var tallies map[uint][]dto.ReactionSummary
	reactions, err := s.reactions.ListByMessages(ctx, messageIDs)
	if err != nil {
		s.logger.Warn().Err(err).Int("messages", len(messageIDs)).Msg("reaction lookup failed, omitting tallies")
	} else {
		tallies = feed.Tally(reactions)
	}

	for _, message := range messages {
		response := dto.NewMessageResponse(message)
		if author, ok := authors[message.UserID]; ok {
			response.Author = author
		}
		if tally, ok := tallies[message.ID]; ok {
			response.Reactions = tally
		}
		responses = append(responses, response)
	}
	return responses
}

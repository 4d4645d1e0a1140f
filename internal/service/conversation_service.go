package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// ConversationService resolves and lists direct-message conversations.
type ConversationService interface {
	Open(ctx context.Context, userID uint, payload dto.CreateDirectMessageRequest) (dto.ConversationResponse, error)
	List(ctx context.Context, userID uint) ([]dto.ConversationResponse, error)
}

type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	enricher      MessageEnricher
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewConversationService constructs a conversation service.
func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	enricher MessageEnricher,
	validate *validator.Validate,
	logger zerolog.Logger,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		enricher:      enricher,
		validator:     validate,
		logger:        logger.With().Str("component", "conversation_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/huddle-api/internal/service/conversation"),
	}
}

// Open returns the caller's DM with the other user, creating it on first use.
func (s *conversationService) Open(ctx context.Context, userID uint, payload dto.CreateDirectMessageRequest) (dto.ConversationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "conversations.open", trace.WithAttributes(
		attribute.Int("user_id", int(userID)),
		attribute.Int("other_id", int(payload.UserID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ConversationResponse{}, err
	}
	if payload.UserID == userID {
		return dto.ConversationResponse{}, validationError("user_id", "cannot open a conversation with yourself")
	}
	if _, err := s.users.FindByID(ctx, payload.UserID); err != nil {
		return dto.ConversationResponse{}, translateStoreError(err, "user")
	}

	conversation, created, err := s.conversations.FindOrCreateDM(ctx, userID, payload.UserID)
	if err != nil {
		span.RecordError(err)
		return dto.ConversationResponse{}, err
	}
	if created {
		s.logger.Info().Uint("conversation_id", conversation.ID).Msg("direct message opened")
	}

	responses, err := s.describe(ctx, userID, []models.Conversation{conversation})
	if err != nil {
		return dto.ConversationResponse{}, err
	}
	response := responses[0]
	response.Created = created
	return response, nil
}

// List returns the caller's conversations, most recently active first.
func (s *conversationService) List(ctx context.Context, userID uint) ([]dto.ConversationResponse, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, userID, conversations)
}

func (s *conversationService) describe(ctx context.Context, viewerID uint, conversations []models.Conversation) ([]dto.ConversationResponse, error) {
	responses := make([]dto.ConversationResponse, 0, len(conversations))
	if len(conversations) == 0 {
		return responses, nil
	}

	ids := make([]uint, 0, len(conversations))
	for _, conversation := range conversations {
		ids = append(ids, conversation.ID)
	}

	participants, err := s.conversations.Participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	byConversation := make(map[uint][]uint, len(conversations))
	userIDs := make([]uint, 0, len(participants))
	for _, participant := range participants {
		if participant.UserID == viewerID {
			continue
		}
		byConversation[participant.ConversationID] = append(byConversation[participant.ConversationID], participant.UserID)
		userIDs = append(userIDs, participant.UserID)
	}

	summaries := make(map[uint]dto.AuthorSummary, len(userIDs))
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("participant lookup failed, using placeholders")
	}
	for _, user := range users {
		summaries[user.ID] = dto.NewAuthorSummary(user)
	}

	latest, err := s.messages.LatestByConversations(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("last message lookup failed")
		latest = nil
	}
	lastMessages := make([]models.Message, 0, len(latest))
	for _, id := range ids {
		if message, ok := latest[id]; ok {
			lastMessages = append(lastMessages, message)
		}
	}
	enriched := make(map[uint]dto.MessageResponse, len(lastMessages))
	for _, message := range s.enricher.Enrich(ctx, lastMessages) {
		if message.ConversationID != nil {
			enriched[*message.ConversationID] = message
		}
	}

	for _, conversation := range conversations {
		response := dto.ConversationResponse{
			ID:           conversation.ID,
			Type:         conversation.Type,
			Participants: make([]dto.AuthorSummary, 0, len(byConversation[conversation.ID])),
			CreatedAt:    conversation.CreatedAt,
			UpdatedAt:    conversation.UpdatedAt,
		}
		for _, participantID := range byConversation[conversation.ID] {
			summary, ok := summaries[participantID]
			if !ok {
				summary = dto.UnknownAuthor(participantID)
			}
			response.Participants = append(response.Participants, summary)
		}
		if last, ok := enriched[conversation.ID]; ok {
			last := last
			response.LastMessage = &last
		}
		responses = append(responses, response)
	}
	return responses, nil
}

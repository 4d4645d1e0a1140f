package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/repository"
)

const (
	searchMessageLimit = 20
	searchEntityLimit  = 10
)

// SearchService scans messages, channels and users visible to the caller.
type SearchService interface {
	Search(ctx context.Context, viewerID uint, query dto.SearchQuery) (dto.SearchResponse, error)
}

type searchService struct {
	repo      repository.SearchRepository
	enricher  MessageEnricher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSearchService constructs a search service.
func NewSearchService(repo repository.SearchRepository, enricher MessageEnricher, validate *validator.Validate, logger zerolog.Logger) SearchService {
	return &searchService{
		repo:      repo,
		enricher:  enricher,
		validator: validate,
		logger:    logger.With().Str("component", "search_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/search"),
	}
}

func (s *searchService) Search(ctx context.Context, viewerID uint, query dto.SearchQuery) (dto.SearchResponse, error) {
	query.Query = strings.TrimSpace(query.Query)
	if err := s.validator.Struct(query); err != nil {
		return dto.SearchResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "search.query", trace.WithAttributes(attribute.Int("query_length", len(query.Query))))
	defer span.End()

	messages, err := s.repo.Messages(ctx, repository.MessageSearchFilter{
		Query:      query.Query,
		ViewerID:   viewerID,
		ChannelID:  query.ChannelID,
		FromUserID: query.FromUserID,
		Limit:      searchMessageLimit,
	})
	if err != nil {
		return dto.SearchResponse{}, err
	}

	channels, err := s.repo.Channels(ctx, viewerID, query.Query, searchEntityLimit)
	if err != nil {
		return dto.SearchResponse{}, err
	}

	users, err := s.repo.Users(ctx, query.Query, searchEntityLimit)
	if err != nil {
		return dto.SearchResponse{}, err
	}

	response := dto.SearchResponse{
		Messages: s.enricher.Enrich(ctx, messages),
		Channels: make([]dto.ChannelResponse, 0, len(channels)),
		Users:    dto.NewUserResponseSlice(users),
	}
	for _, channel := range channels {
		// is_member is not tracked for search hits
		response.Channels = append(response.Channels, dto.NewChannelResponse(channel, false))
	}
	return response, nil
}

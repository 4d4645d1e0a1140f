package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// UnreadService derives unread counts from read cursors and advances them.
type UnreadService interface {
	Counts(ctx context.Context, userID uint) (dto.UnreadCountsResponse, error)
	MarkChannelRead(ctx context.Context, userID, channelID uint) error
	MarkConversationRead(ctx context.Context, userID, conversationID uint) error
	Invalidate(ctx context.Context, target models.Target)
}

type unreadService struct {
	messages      repository.MessageRepository
	channels      repository.ChannelRepository
	conversations repository.ConversationRepository
	redis         *redis.Client
	cacheTTL      time.Duration
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewUnreadService constructs the unread counter. When redisClient is nil
// every call recomputes counts from the store.
func NewUnreadService(
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) UnreadService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &unreadService{
		messages:      messages,
		channels:      channels,
		conversations: conversations,
		redis:         redisClient,
		cacheTTL:      cacheTTL,
		logger:        logger.With().Str("component", "unread_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/huddle-api/internal/service/unread"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *unreadService) Counts(ctx context.Context, userID uint) (dto.UnreadCountsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "unread.counts", trace.WithAttributes(attribute.Int("user_id", int(userID))))
	defer span.End()

	memberships, err := s.channels.ListMemberships(ctx, userID)
	if err != nil {
		return dto.UnreadCountsResponse{}, err
	}

	channelCounts, err := s.channelCounts(ctx, userID, memberships)
	if err != nil {
		return dto.UnreadCountsResponse{}, err
	}

	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return dto.UnreadCountsResponse{}, err
	}
	conversationIDs := make([]uint, 0, len(conversations))
	for _, conversation := range conversations {
		conversationIDs = append(conversationIDs, conversation.ID)
	}
	conversationCounts, err := s.messages.CountUnreadConversations(ctx, userID, conversationIDs)
	if err != nil {
		return dto.UnreadCountsResponse{}, err
	}

	response := dto.UnreadCountsResponse{
		Channels:      make(map[uint]int64, len(memberships)),
		Conversations: make(map[uint]int64, len(conversationIDs)),
	}
	for _, membership := range memberships {
		response.Channels[membership.ChannelID] = channelCounts[membership.ChannelID]
	}
	for _, id := range conversationIDs {
		response.Conversations[id] = conversationCounts[id]
	}
	return response, nil
}

// channelCounts serves counts from the cache where possible. A cache key
// embeds the member's read cursor and the channel's message generation, so
// marking read or appending a message makes older entries unreachable.
func (s *unreadService) channelCounts(ctx context.Context, userID uint, memberships []models.ChannelMember) (map[uint]int64, error) {
	channelIDs := make([]uint, 0, len(memberships))
	for _, membership := range memberships {
		channelIDs = append(channelIDs, membership.ChannelID)
	}
	if s.redis == nil || len(memberships) == 0 {
		return s.messages.CountUnread(ctx, userID, channelIDs)
	}

	keys, err := s.cacheKeys(ctx, userID, memberships)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unread cache unavailable, recomputing")
		return s.messages.CountUnread(ctx, userID, channelIDs)
	}

	cached, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("unread cache read failed, recomputing")
		return s.messages.CountUnread(ctx, userID, channelIDs)
	}

	counts := make(map[uint]int64, len(memberships))
	missing := make([]uint, 0)
	missingKeys := make(map[uint]string)
	for i, value := range cached {
		channelID := memberships[i].ChannelID
		if raw, ok := value.(string); ok {
			if parsed, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				counts[channelID] = parsed
				observability.UnreadCache().WithLabelValues("hit").Inc()
				continue
			}
		}
		observability.UnreadCache().WithLabelValues("miss").Inc()
		missing = append(missing, channelID)
		missingKeys[channelID] = keys[i]
	}
	if len(missing) == 0 {
		return counts, nil
	}

	fresh, err := s.messages.CountUnread(ctx, userID, missing)
	if err != nil {
		return nil, err
	}

	pipe := s.redis.Pipeline()
	for _, channelID := range missing {
		counts[channelID] = fresh[channelID]
		pipe.Set(ctx, missingKeys[channelID], fresh[channelID], s.cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store unread counts in cache")
	}
	return counts, nil
}

func (s *unreadService) cacheKeys(ctx context.Context, userID uint, memberships []models.ChannelMember) ([]string, error) {
	genKeys := make([]string, 0, len(memberships))
	for _, membership := range memberships {
		genKeys = append(genKeys, generationKey(membership.ChannelID))
	}

	generations, err := s.redis.MGet(ctx, genKeys...).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(memberships))
	for i, membership := range memberships {
		generation := "0"
		if raw, ok := generations[i].(string); ok {
			generation = raw
		}
		keys = append(keys, fmt.Sprintf("unread:%d:%d:%d:%s",
			userID, membership.ChannelID, membership.LastReadAt.UnixNano(), generation))
	}
	return keys, nil
}

func generationKey(channelID uint) string {
	return fmt.Sprintf("unread:gen:channel:%d", channelID)
}

func (s *unreadService) MarkChannelRead(ctx context.Context, userID, channelID uint) error {
	ctx, span := s.tracer.Start(ctx, "unread.mark_channel_read", trace.WithAttributes(attribute.Int("channel_id", int(channelID))))
	defer span.End()

	return translateStoreError(s.channels.MarkRead(ctx, channelID, userID, s.now()), "channel membership")
}

func (s *unreadService) MarkConversationRead(ctx context.Context, userID, conversationID uint) error {
	ctx, span := s.tracer.Start(ctx, "unread.mark_conversation_read", trace.WithAttributes(attribute.Int("conversation_id", int(conversationID))))
	defer span.End()

	return translateStoreError(s.conversations.MarkRead(ctx, conversationID, userID, s.now()), "conversation participant")
}

// Invalidate bumps the channel generation so cached counts are recomputed.
// Conversation counts are never cached.
func (s *unreadService) Invalidate(ctx context.Context, target models.Target) {
	if s.redis == nil || !target.IsChannel() {
		return
	}
	if err := s.redis.Incr(ctx, generationKey(target.ChannelID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("target", target.Key()).Msg("failed to bump unread generation")
	}
}

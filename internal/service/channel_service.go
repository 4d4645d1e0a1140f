package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// WorkspaceAdminRole is the identity role allowed to moderate every channel.
const WorkspaceAdminRole = "admin"

// Actor is the authenticated caller of a moderation-sensitive operation.
type Actor struct {
	ID   uint
	Role string
}

// ChannelService manages channels and their memberships.
type ChannelService interface {
	Create(ctx context.Context, actor Actor, payload dto.CreateChannelRequest) (dto.ChannelResponse, error)
	List(ctx context.Context, userID uint) ([]dto.ChannelResponse, error)
	Get(ctx context.Context, userID, channelID uint) (dto.ChannelResponse, error)
	Join(ctx context.Context, userID, channelID uint) (dto.ChannelResponse, error)
	Leave(ctx context.Context, userID, channelID uint) error
	Members(ctx context.Context, userID, channelID uint) ([]dto.ChannelMemberResponse, error)
	Invite(ctx context.Context, actor Actor, channelID uint, payload dto.InviteMemberRequest) (bool, error)
	Archive(ctx context.Context, actor Actor, channelID uint) error
}

// LiveRevoker cuts a user off from a timeline's live feed.
type LiveRevoker interface {
	Revoke(ctx context.Context, userID uint, target models.Target)
}

type channelService struct {
	channels  repository.ChannelRepository
	users     repository.UserRepository
	access    timelineAccess
	live      LiveRevoker
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewChannelService constructs a channel service. live may be nil.
func NewChannelService(
	channels repository.ChannelRepository,
	users repository.UserRepository,
	conversations repository.ConversationRepository,
	live LiveRevoker,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChannelService {
	return &channelService{
		channels:  channels,
		users:     users,
		access:    timelineAccess{channels: channels, conversations: conversations},
		live:      live,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "channel_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/channel"),
	}
}

// NormalizeChannelName lowercases the name and replaces every character
// outside [a-z0-9-_] with a hyphen.
func NormalizeChannelName(name string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, lowered)
	normalized = strings.Trim(normalized, "-")

	if normalized == "" {
		return "", validationError("name", "must contain at least one letter or digit")
	}
	if len(normalized) > 100 {
		return "", validationError("name", "must be at most 100 characters")
	}
	return normalized, nil
}

func (s *channelService) Create(ctx context.Context, actor Actor, payload dto.CreateChannelRequest) (dto.ChannelResponse, error) {
	ctx, span := s.tracer.Start(ctx, "channels.create", trace.WithAttributes(attribute.Int("user_id", int(actor.ID))))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ChannelResponse{}, err
	}

	name, err := NormalizeChannelName(payload.Name)
	if err != nil {
		return dto.ChannelResponse{}, err
	}

	if _, err := s.channels.FindByName(ctx, name); err == nil {
		return dto.ChannelResponse{}, conflictError("channel name already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ChannelResponse{}, err
	}

	visibility := payload.Visibility
	if visibility == "" {
		visibility = models.ChannelPublic
	}

	channel := models.Channel{
		Name:        name,
		Description: plainText(s.sanitizer, payload.Description),
		Visibility:  visibility,
		CreatedBy:   actor.ID,
	}
	if err := s.channels.Create(ctx, &channel); err != nil {
		span.RecordError(err)
		return dto.ChannelResponse{}, translateStoreError(err, "channel")
	}

	s.logger.Info().Uint("channel_id", channel.ID).Str("name", channel.Name).Msg("channel created")
	return dto.NewChannelResponse(channel, true), nil
}

func (s *channelService) List(ctx context.Context, userID uint) ([]dto.ChannelResponse, error) {
	listings, err := s.channels.ListVisible(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChannelResponse, 0, len(listings))
	for _, listing := range listings {
		responses = append(responses, dto.NewChannelResponse(listing.Channel, listing.IsMember))
	}
	return responses, nil
}

func (s *channelService) Get(ctx context.Context, userID, channelID uint) (dto.ChannelResponse, error) {
	if err := s.access.canRead(ctx, userID, models.Target{ChannelID: channelID}); err != nil {
		return dto.ChannelResponse{}, err
	}

	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return dto.ChannelResponse{}, translateStoreError(err, "channel")
	}
	isMember, err := s.isMember(ctx, channelID, userID)
	if err != nil {
		return dto.ChannelResponse{}, err
	}
	return dto.NewChannelResponse(channel, isMember), nil
}

// Join enrols the caller in a public channel. Joining twice is a no-op.
func (s *channelService) Join(ctx context.Context, userID, channelID uint) (dto.ChannelResponse, error) {
	ctx, span := s.tracer.Start(ctx, "channels.join", trace.WithAttributes(attribute.Int("channel_id", int(channelID))))
	defer span.End()

	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return dto.ChannelResponse{}, translateStoreError(err, "channel")
	}
	if channel.IsArchived {
		return dto.ChannelResponse{}, forbiddenError("channel is archived")
	}
	if channel.Visibility != models.ChannelPublic {
		isMember, err := s.isMember(ctx, channelID, userID)
		if err != nil {
			return dto.ChannelResponse{}, err
		}
		if !isMember {
			return dto.ChannelResponse{}, forbiddenError("private channels require an invitation")
		}
		return dto.NewChannelResponse(channel, true), nil
	}

	if _, err := s.channels.AddMember(ctx, channelID, userID, models.MemberRoleMember); err != nil {
		return dto.ChannelResponse{}, err
	}
	return dto.NewChannelResponse(channel, true), nil
}

func (s *channelService) Leave(ctx context.Context, userID, channelID uint) error {
	removed, err := s.channels.RemoveMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return notFoundError("channel membership")
	}

	if s.live == nil {
		return nil
	}
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("channel_id", channelID).Msg("failed to load channel after leave")
		return nil
	}
	if channel.Visibility != models.ChannelPublic {
		s.live.Revoke(ctx, userID, models.Target{ChannelID: channelID})
	}
	return nil
}

func (s *channelService) Members(ctx context.Context, userID, channelID uint) ([]dto.ChannelMemberResponse, error) {
	if err := s.access.canRead(ctx, userID, models.Target{ChannelID: channelID}); err != nil {
		return nil, err
	}

	members, err := s.channels.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Uint("channel_id", channelID).Msg("member lookup failed, using placeholders")
	}
	summaries := make(map[uint]dto.AuthorSummary, len(users))
	for _, user := range users {
		summaries[user.ID] = dto.NewAuthorSummary(user)
	}

	responses := make([]dto.ChannelMemberResponse, 0, len(members))
	for _, member := range members {
		summary, ok := summaries[member.UserID]
		if !ok {
			summary = dto.UnknownAuthor(member.UserID)
		}
		responses = append(responses, dto.ChannelMemberResponse{
			UserID:     member.UserID,
			Role:       member.Role,
			JoinedAt:   member.JoinedAt,
			LastReadAt: member.LastReadAt,
			User:       summary,
		})
	}
	return responses, nil
}

// Invite adds another user. It reports whether a new membership was created.
func (s *channelService) Invite(ctx context.Context, actor Actor, channelID uint, payload dto.InviteMemberRequest) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "channels.invite", trace.WithAttributes(
		attribute.Int("channel_id", int(channelID)),
		attribute.Int("invitee_id", int(payload.UserID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return false, err
	}

	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return false, translateStoreError(err, "channel")
	}
	if channel.IsArchived {
		return false, forbiddenError("channel is archived")
	}
	if err := s.requireModerator(ctx, actor, channelID); err != nil {
		return false, err
	}
	if _, err := s.users.FindByID(ctx, payload.UserID); err != nil {
		return false, translateStoreError(err, "user")
	}

	return s.channels.AddMember(ctx, channelID, payload.UserID, models.MemberRoleMember)
}

func (s *channelService) Archive(ctx context.Context, actor Actor, channelID uint) error {
	ctx, span := s.tracer.Start(ctx, "channels.archive", trace.WithAttributes(attribute.Int("channel_id", int(channelID))))
	defer span.End()

	if _, err := s.channels.FindByID(ctx, channelID); err != nil {
		return translateStoreError(err, "channel")
	}
	if err := s.requireModerator(ctx, actor, channelID); err != nil {
		return err
	}
	if err := s.channels.Archive(ctx, channelID); err != nil {
		return translateStoreError(err, "channel")
	}

	s.logger.Info().Uint("channel_id", channelID).Uint("actor_id", actor.ID).Msg("channel archived")
	return nil
}

func (s *channelService) requireModerator(ctx context.Context, actor Actor, channelID uint) error {
	if actor.Role == WorkspaceAdminRole {
		return nil
	}
	member, err := s.channels.Membership(ctx, channelID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forbiddenError("only channel owners and admins may do this")
		}
		return err
	}
	if !member.CanModerate() {
		return forbiddenError("only channel owners and admins may do this")
	}
	return nil
}

func (s *channelService) isMember(ctx context.Context, channelID, userID uint) (bool, error) {
	_, err := s.channels.Membership(ctx, channelID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

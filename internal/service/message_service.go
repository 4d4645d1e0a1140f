package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/observability"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// NotificationPublisher exposes the subset of the notification service needed by senders.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// LivePublisher pushes timeline events to connected clients.
type LivePublisher interface {
	Publish(ctx context.Context, target models.Target, event dto.LiveEvent)
}

// UnreadInvalidator is told whenever a timeline receives a new top-level message.
type UnreadInvalidator interface {
	Invalidate(ctx context.Context, target models.Target)
}

// MessageEnricher attaches authors and reaction tallies to raw messages.
type MessageEnricher interface {
	Enrich(ctx context.Context, messages []models.Message) []dto.MessageResponse
}

// MessageService appends and edits messages.
type MessageService interface {
	Send(ctx context.Context, authorID uint, payload dto.SendMessageRequest) (dto.MessageResponse, error)
	Edit(ctx context.Context, authorID, messageID uint, payload dto.EditMessageRequest) (dto.MessageResponse, error)
}

type messageService struct {
	messages       repository.MessageRepository
	conversations  repository.ConversationRepository
	access         timelineAccess
	enricher       MessageEnricher
	unread         UnreadInvalidator
	live           LivePublisher
	notifications  NotificationPublisher
	validator      *validator.Validate
	logger         zerolog.Logger
	tracer         trace.Tracer
	sanitizer      *bluemonday.Policy
	mentionPattern *regexp.Regexp
}

// MessageServiceDeps groups the collaborators of the message service. Unread,
// Live and Notifications are optional.
type MessageServiceDeps struct {
	Messages      repository.MessageRepository
	Channels      repository.ChannelRepository
	Conversations repository.ConversationRepository
	Enricher      MessageEnricher
	Unread        UnreadInvalidator
	Live          LivePublisher
	Notifications NotificationPublisher
}

// NewMessageService constructs a message service.
func NewMessageService(deps MessageServiceDeps, validate *validator.Validate, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:       deps.Messages,
		conversations:  deps.Conversations,
		access:         timelineAccess{channels: deps.Channels, conversations: deps.Conversations},
		enricher:       deps.Enricher,
		unread:         deps.Unread,
		live:           deps.Live,
		notifications:  deps.Notifications,
		validator:      validate,
		logger:         logger.With().Str("component", "message_service").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/huddle-api/internal/service/message"),
		sanitizer:      bluemonday.StrictPolicy(),
		mentionPattern: regexp.MustCompile(`@([0-9]+)\b`),
	}
}

func (s *messageService) Send(ctx context.Context, authorID uint, payload dto.SendMessageRequest) (dto.MessageResponse, error) {
	target := payload.Target()
	ctx, span := s.tracer.Start(ctx, "messages.send", trace.WithAttributes(
		attribute.String("target", target.Key()),
		attribute.Int("author_id", int(authorID)),
		attribute.Bool("reply", payload.ParentID != nil),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}
	if !target.Valid() {
		return dto.MessageResponse{}, validationError("target", "must name exactly one of channel_id or conversation_id")
	}

	content := plainText(s.sanitizer, payload.Content)
	if content == "" && payload.Attachment == nil {
		return dto.MessageResponse{}, validationError("content", "must not be empty")
	}

	if err := s.access.canWrite(ctx, authorID, target); err != nil {
		return dto.MessageResponse{}, err
	}

	message := models.Message{
		UserID:   authorID,
		ParentID: payload.ParentID,
		Content:  content,
		Type:     models.MessageText,
	}
	target.Apply(&message)
	if attachment := payload.Attachment; attachment != nil {
		message.Type = models.MessageFile
		message.FileURL = attachment.URL
		message.FileName = strings.TrimSpace(attachment.FileName)
		message.FileMimeType = attachment.MimeType
		message.FileSize = attachment.SizeBytes
		if message.Content == "" {
			message.Content = message.FileName
		}
	}

	if err := s.messages.Append(ctx, &message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, repository.ErrParentNotFound):
			return dto.MessageResponse{}, notFoundError("parent message")
		case errors.Is(err, repository.ErrParentTargetMismatch):
			return dto.MessageResponse{}, validationError("parent_id", "belongs to a different timeline")
		default:
			return dto.MessageResponse{}, err
		}
	}

	placement := "top_level"
	if !message.IsTopLevel() {
		placement = "reply"
	}
	observability.MessagesSent().WithLabelValues(targetKind(target), placement).Inc()

	response := s.enricher.Enrich(ctx, []models.Message{message})[0]

	if message.IsTopLevel() {
		if s.unread != nil {
			s.unread.Invalidate(ctx, target)
		}
		if s.live != nil {
			s.live.Publish(ctx, target, dto.LiveEvent{Type: dto.LiveMessageCreated, Target: target.Key(), Message: &response})
		}
	}

	s.dispatchNotifications(ctx, message)

	s.logger.Debug().
		Uint("message_id", message.ID).
		Str("target", target.Key()).
		Str("placement", placement).
		Msg("message appended")

	return response, nil
}

func (s *messageService) Edit(ctx context.Context, authorID, messageID uint, payload dto.EditMessageRequest) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "messages.edit", trace.WithAttributes(attribute.Int("message_id", int(messageID))))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	existing, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return dto.MessageResponse{}, translateStoreError(err, "message")
	}
	if existing.UserID != authorID {
		return dto.MessageResponse{}, forbiddenError("only the author can edit a message")
	}

	content := plainText(s.sanitizer, payload.Content)
	if content == "" {
		return dto.MessageResponse{}, validationError("content", "must not be empty")
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, translateStoreError(err, "message")
	}

	response := s.enricher.Enrich(ctx, []models.Message{updated})[0]
	if updated.IsTopLevel() && s.live != nil {
		target := updated.Target()
		s.live.Publish(ctx, target, dto.LiveEvent{Type: dto.LiveMessageEdited, Target: target.Key(), Message: &response})
	}
	return response, nil
}

// dispatchNotifications tells the parent author about thread replies, every
// mentioned user about the mention and the other DM participants about a
// direct message. The author is never notified about their own message.
func (s *messageService) dispatchNotifications(ctx context.Context, message models.Message) {
	if s.notifications == nil {
		return
	}

	targets := make(map[uint]string)

	if message.ConversationID != nil && message.IsTopLevel() {
		participants, err := s.conversations.Participants(ctx, []uint{*message.ConversationID})
		if err != nil {
			s.logger.Warn().Err(err).Uint("conversation_id", *message.ConversationID).Msg("failed to load participants for notification")
		}
		for _, participant := range participants {
			targets[participant.UserID] = models.NotificationDirect
		}
	}

	if message.ParentID != nil {
		parent, err := s.messages.FindByID(ctx, *message.ParentID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("parent_id", *message.ParentID).Msg("failed to load parent for notification")
		} else {
			targets[parent.UserID] = models.NotificationThreadReply
		}
	}

	for _, mentioned := range s.extractMentions(message.Content) {
		if mentioned == message.UserID {
			continue
		}
		if err := s.access.canRead(ctx, mentioned, message.Target()); err != nil {
			if !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrNotFound) {
				s.logger.Warn().Err(err).Uint("user_id", mentioned).Msg("failed to check mention access")
			}
			continue
		}
		targets[mentioned] = models.NotificationMention
	}

	delete(targets, message.UserID)

	for userID, kind := range targets {
		payload := dto.NotificationCreateRequest{
			UserID:   userID,
			Type:     kind,
			Message:  notificationText(kind, message),
			Metadata: notificationMetadata(message),
		}
		if _, err := s.notifications.Publish(ctx, payload); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", userID).Str("type", kind).Msg("failed to publish message notification")
		}
	}
}

func (s *messageService) extractMentions(content string) []uint {
	matches := s.mentionPattern.FindAllStringSubmatch(content, -1)
	mentions := make([]uint, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil || id == 0 {
			continue
		}
		mentions = append(mentions, uint(id))
	}
	return mentions
}

func notificationText(kind string, message models.Message) string {
	preview := message.Content
	if len([]rune(preview)) > 80 {
		preview = string([]rune(preview)[:80]) + "..."
	}
	switch kind {
	case models.NotificationThreadReply:
		return fmt.Sprintf("New reply in your thread: %s", preview)
	case models.NotificationDirect:
		return fmt.Sprintf("New direct message: %s", preview)
	default:
		return fmt.Sprintf("You were mentioned: %s", preview)
	}
}

func notificationMetadata(message models.Message) map[string]interface{} {
	metadata := map[string]interface{}{
		"message_id": message.ID,
		"author_id":  message.UserID,
	}
	if message.ChannelID != nil {
		metadata["channel_id"] = *message.ChannelID
	}
	if message.ConversationID != nil {
		metadata["conversation_id"] = *message.ConversationID
	}
	if message.ParentID != nil {
		metadata["parent_id"] = *message.ParentID
	}
	return metadata
}

func targetKind(target models.Target) string {
	if target.IsChannel() {
		return "channel"
	}
	return "conversation"
}

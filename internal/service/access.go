package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// timelineAccess decides who may read from and write to a channel or
// conversation timeline.
type timelineAccess struct {
	channels      repository.ChannelRepository
	conversations repository.ConversationRepository
}

func (a timelineAccess) canRead(ctx context.Context, userID uint, target models.Target) error {
	if !target.Valid() {
		return validationError("target", "must name exactly one of channel_id or conversation_id")
	}
	if target.IsChannel() {
		channel, err := a.channels.FindByID(ctx, target.ChannelID)
		if err != nil {
			return translateStoreError(err, "channel")
		}
		if channel.Visibility == models.ChannelPublic {
			return nil
		}
		return a.requireChannelMember(ctx, target.ChannelID, userID)
	}
	return a.requireParticipant(ctx, target.ConversationID, userID)
}

func (a timelineAccess) canWrite(ctx context.Context, userID uint, target models.Target) error {
	if !target.Valid() {
		return validationError("target", "must name exactly one of channel_id or conversation_id")
	}
	if target.IsChannel() {
		channel, err := a.channels.FindByID(ctx, target.ChannelID)
		if err != nil {
			return translateStoreError(err, "channel")
		}
		if channel.IsArchived {
			return forbiddenError("channel is archived")
		}
		return a.requireChannelMember(ctx, target.ChannelID, userID)
	}
	return a.requireParticipant(ctx, target.ConversationID, userID)
}

func (a timelineAccess) requireChannelMember(ctx context.Context, channelID, userID uint) error {
	if _, err := a.channels.Membership(ctx, channelID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forbiddenError("not a member of this channel")
		}
		return err
	}
	return nil
}

func (a timelineAccess) requireParticipant(ctx context.Context, conversationID, userID uint) error {
	if _, err := a.conversations.FindByID(ctx, conversationID); err != nil {
		return translateStoreError(err, "conversation")
	}
	if _, err := a.conversations.Participant(ctx, conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forbiddenError("not a participant of this conversation")
		}
		return err
	}
	return nil
}

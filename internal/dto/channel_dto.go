package dto

import (
	"time"

	"github.com/noah-isme/huddle-api/internal/models"
)

// CreateChannelRequest creates a channel owned by the caller.
type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Visibility  string `json:"visibility" validate:"omitempty,oneof=public private"`
}

// InviteMemberRequest adds another user to a channel.
type InviteMemberRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ChannelResponse describes a channel as seen by the caller.
type ChannelResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	IsArchived  bool      `json:"is_archived"`
	CreatedBy   uint      `json:"created_by"`
	IsMember    bool      `json:"is_member"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChannelResponse converts a channel model.
func NewChannelResponse(channel models.Channel, isMember bool) ChannelResponse {
	return ChannelResponse{
		ID:          channel.ID,
		Name:        channel.Name,
		Description: channel.Description,
		Visibility:  channel.Visibility,
		IsArchived:  channel.IsArchived,
		CreatedBy:   channel.CreatedBy,
		IsMember:    isMember,
		CreatedAt:   channel.CreatedAt,
	}
}

// ChannelMemberResponse lists a member with display data.
type ChannelMemberResponse struct {
	UserID     uint          `json:"user_id"`
	Role       string        `json:"role"`
	JoinedAt   time.Time     `json:"joined_at"`
	LastReadAt time.Time     `json:"last_read_at"`
	User       AuthorSummary `json:"user"`
}

// UnreadCountsResponse maps timeline ids to their unread top-level messages.
type UnreadCountsResponse struct {
	Channels      map[uint]int64 `json:"channels"`
	Conversations map[uint]int64 `json:"conversations"`
}

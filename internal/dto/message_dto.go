package dto

import (
	"time"

	"github.com/noah-isme/huddle-api/internal/models"
)

// AttachmentPayload references a file previously stored through the upload endpoint.
type AttachmentPayload struct {
	URL       string `json:"url" validate:"required,url,max=2048"`
	FileName  string `json:"file_name" validate:"required,max=255"`
	MimeType  string `json:"mime_type" validate:"omitempty,max=128"`
	SizeBytes int64  `json:"size_bytes" validate:"gte=0"`
}

// SendMessageRequest appends a message to a channel or a conversation.
type SendMessageRequest struct {
	ChannelID      uint               `json:"channel_id"`
	ConversationID uint               `json:"conversation_id"`
	ParentID       *uint              `json:"parent_id"`
	Content        string             `json:"content" validate:"max=4000"`
	Attachment     *AttachmentPayload `json:"attachment" validate:"omitempty"`
}

// Target returns the timeline addressed by the request.
func (r SendMessageRequest) Target() models.Target {
	return models.Target{ChannelID: r.ChannelID, ConversationID: r.ConversationID}
}

// EditMessageRequest replaces the content of an existing message.
type EditMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// FeedQuery pages backwards through a timeline.
type FeedQuery struct {
	ChannelID      uint `query:"channel_id"`
	ConversationID uint `query:"conversation_id"`
	Limit          int  `query:"limit" validate:"max=100"`
	Before         uint `query:"before"`
}

// Target returns the timeline addressed by the query.
func (q FeedQuery) Target() models.Target {
	return models.Target{ChannelID: q.ChannelID, ConversationID: q.ConversationID}
}

// PollQuery asks for top-level messages newer than After.
type PollQuery struct {
	ChannelID      uint `query:"channel_id"`
	ConversationID uint `query:"conversation_id"`
	After          uint `query:"after"`
}

// Target returns the timeline addressed by the query.
func (q PollQuery) Target() models.Target {
	return models.Target{ChannelID: q.ChannelID, ConversationID: q.ConversationID}
}

// AuthorSummary is the display data attached to every message.
type AuthorSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Presence    string `json:"presence"`
	StatusEmoji string `json:"status_emoji,omitempty"`
}

// UnknownAuthor is used when a message's author cannot be resolved.
func UnknownAuthor(id uint) AuthorSummary {
	return AuthorSummary{ID: id, Name: "Unknown", Presence: models.PresenceOffline}
}

// NewAuthorSummary converts a user into its display summary.
func NewAuthorSummary(user models.User) AuthorSummary {
	presence := user.Presence
	if presence == "" {
		presence = models.PresenceOffline
	}
	return AuthorSummary{
		ID:          user.ID,
		Name:        user.Name,
		AvatarURL:   user.AvatarURL,
		Presence:    presence,
		StatusEmoji: user.StatusEmoji,
	}
}

// ReactionSummary groups every reaction using the same emoji.
type ReactionSummary struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []uint `json:"user_ids"`
}

// AttachmentResponse describes a file attached to a message.
type AttachmentResponse struct {
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

// MessageResponse is an enriched feed entry.
type MessageResponse struct {
	ID             uint                `json:"id"`
	ChannelID      *uint               `json:"channel_id,omitempty"`
	ConversationID *uint               `json:"conversation_id,omitempty"`
	ParentID       *uint               `json:"parent_id,omitempty"`
	UserID         uint                `json:"user_id"`
	Content        string              `json:"content"`
	Type           string              `json:"type"`
	IsEdited       bool                `json:"is_edited"`
	ReplyCount     int                 `json:"reply_count"`
	Attachment     *AttachmentResponse `json:"attachment,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Author         AuthorSummary       `json:"author"`
	Reactions      []ReactionSummary   `json:"reactions"`
}

// NewMessageResponse converts a model without enrichment. Author and
// reactions are filled in by the feed composer.
func NewMessageResponse(message models.Message) MessageResponse {
	response := MessageResponse{
		ID:             message.ID,
		ChannelID:      message.ChannelID,
		ConversationID: message.ConversationID,
		ParentID:       message.ParentID,
		UserID:         message.UserID,
		Content:        message.Content,
		Type:           message.Type,
		IsEdited:       message.IsEdited,
		ReplyCount:     message.ReplyCount,
		CreatedAt:      message.CreatedAt,
		UpdatedAt:      message.UpdatedAt,
		Author:         UnknownAuthor(message.UserID),
		Reactions:      []ReactionSummary{},
	}
	if message.FileURL != "" {
		response.Attachment = &AttachmentResponse{
			URL:       message.FileURL,
			FileName:  message.FileName,
			MimeType:  message.FileMimeType,
			SizeBytes: message.FileSize,
		}
	}
	return response
}

// ReactionToggleRequest toggles the caller's reaction on a message.
type ReactionToggleRequest struct {
	Emoji string `json:"emoji" validate:"required,max=64"`
}

// Reaction toggle outcomes.
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
)

// ReactionToggleResponse reports the toggle outcome and the fresh tally.
type ReactionToggleResponse struct {
	MessageID uint              `json:"message_id"`
	Emoji     string            `json:"emoji"`
	Action    string            `json:"action"`
	Reactions []ReactionSummary `json:"reactions"`
}

package dto

import "time"

// CreateDirectMessageRequest opens (or reopens) a DM with another user.
type CreateDirectMessageRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ConversationResponse describes a conversation for its participants.
type ConversationResponse struct {
	ID           uint             `json:"id"`
	Type         string           `json:"type"`
	Participants []AuthorSummary  `json:"participants"`
	LastMessage  *MessageResponse `json:"last_message,omitempty"`
	Created      bool             `json:"created,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

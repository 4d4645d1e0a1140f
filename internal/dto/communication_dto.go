package dto

import (
	"time"

	"github.com/noah-isme/huddle-api/internal/models"
)

// NotificationCreateRequest is the payload used to publish a notification.
type NotificationCreateRequest struct {
	UserID   uint                   `json:"user_id" validate:"required"`
	Type     string                 `json:"type" validate:"required,max=64"`
	Message  string                 `json:"message" validate:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Metadata:  map[string]interface{}(model.Metadata),
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// Live event kinds pushed over the websocket feed.
const (
	LiveMessageCreated = "message.created"
	LiveMessageEdited  = "message.edited"
	// LiveAccessRevoked travels between nodes only; it closes UserID's sockets on Target.
	LiveAccessRevoked  = "access.revoked"
)

// LiveEvent is pushed to websocket subscribers of a timeline.
type LiveEvent struct {
	Type    string           `json:"type"`
	Target  string           `json:"target"`
	Message *MessageResponse `json:"message,omitempty"`
	UserID  uint             `json:"user_id,omitempty"`
}

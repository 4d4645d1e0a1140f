package dto

import (
	"time"

	"github.com/noah-isme/huddle-api/internal/models"
)

// PresenceRequest updates the caller's presence.
type PresenceRequest struct {
	Presence string `json:"presence" validate:"required,oneof=online away offline"`
}

// StatusRequest sets the caller's custom status.
type StatusRequest struct {
	Status      string `json:"status" validate:"max=255"`
	StatusEmoji string `json:"status_emoji" validate:"max=32"`
}

// UserResponse is the public profile of a workspace member.
type UserResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status,omitempty"`
	StatusEmoji string    `json:"status_emoji,omitempty"`
	Presence    string    `json:"presence"`
	LastSeen    time.Time `json:"last_seen"`
}

// NewUserResponse converts a user model.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		Role:        user.Role,
		Status:      user.Status,
		StatusEmoji: user.StatusEmoji,
		Presence:    user.Presence,
		LastSeen:    user.LastSeen,
	}
}

// NewUserResponseSlice converts a slice of users.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

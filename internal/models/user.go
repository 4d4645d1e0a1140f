package models

import "time"

// Presence states reported by clients.
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceOffline = "offline"
)

// User is a workspace member as supplied by the identity provider.
type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string    `gorm:"size:255;index" json:"name"`
	Email       string    `gorm:"size:320" json:"email"`
	AvatarURL   string    `gorm:"size:512" json:"avatar_url"`
	Role        string    `gorm:"size:16;not null;default:user" json:"role"`
	Status      string    `gorm:"size:255" json:"status"`
	StatusEmoji string    `gorm:"size:32" json:"status_emoji"`
	Presence    string    `gorm:"size:16;not null;default:offline" json:"presence"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsValidPresence reports whether the value is a known presence state.
func IsValidPresence(value string) bool {
	switch value {
	case PresenceOnline, PresenceAway, PresenceOffline:
		return true
	default:
		return false
	}
}

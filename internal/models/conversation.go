package models

import (
	"fmt"
	"time"
)

// Conversation kinds.
const (
	ConversationDM    = "dm"
	ConversationGroup = "group"
)

// Conversation is a direct message thread between participants. A 1:1 DM
// carries a canonical DMKey so the unordered user pair is unique.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:16;not null;default:dm" json:"type"`
	Name      string    `gorm:"size:100" json:"name,omitempty"`
	DMKey     *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationParticipant links a user to a conversation with a read cursor.
type ConversationParticipant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;uniqueIndex:idx_conversation_participants_pair" json:"conversation_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_conversation_participants_pair;index" json:"user_id"`
	LastReadAt     time.Time `gorm:"not null" json:"last_read_at"`
	JoinedAt       time.Time `gorm:"not null" json:"joined_at"`
}

// DMKey returns the canonical key of the unordered pair {a, b}.
func DMKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

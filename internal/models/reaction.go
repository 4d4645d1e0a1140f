package models

import "time"

// Reaction is one user's emoji on one message. The triple is unique.
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_reactions_key;index" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reactions_key" json:"user_id"`
	Emoji     string    `gorm:"size:64;not null;uniqueIndex:idx_reactions_key" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

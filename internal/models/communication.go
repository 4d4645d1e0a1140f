package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotificationMention     = "mention"
	NotificationThreadReply = "thread_reply"
	NotificationDirect      = "direct_message"
)

// Notification is addressed to a single user and points back at a message.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	Type      string            `gorm:"size:64" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// All lists every model managed by the schema migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Channel{},
		&ChannelMember{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&Reaction{},
		&Notification{},
		&UploadRecord{},
	}
}

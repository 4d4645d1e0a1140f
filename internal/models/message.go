package models

import (
	"fmt"
	"time"
)

// Message kinds.
const (
	MessageText   = "text"
	MessageFile   = "file"
	MessageSystem = "system"
)

// Message is an append-only timeline entry. Exactly one of ChannelID and
// ConversationID is set. ReplyCount always equals the number of messages whose
// ParentID references this row.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ChannelID      *uint     `gorm:"index:idx_messages_channel" json:"channel_id,omitempty"`
	ConversationID *uint     `gorm:"index:idx_messages_conversation" json:"conversation_id,omitempty"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	ParentID       *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Type           string    `gorm:"size:16;not null;default:text" json:"type"`
	IsEdited       bool      `gorm:"not null;default:false" json:"is_edited"`
	ReplyCount     int       `gorm:"not null;default:0" json:"reply_count"`
	FileURL        string    `gorm:"type:text" json:"file_url,omitempty"`
	FileName       string    `gorm:"size:255" json:"file_name,omitempty"`
	FileMimeType   string    `gorm:"size:128" json:"file_mime_type,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Target returns the timeline the message belongs to.
func (m Message) Target() Target {
	var target Target
	if m.ChannelID != nil {
		target.ChannelID = *m.ChannelID
	}
	if m.ConversationID != nil {
		target.ConversationID = *m.ConversationID
	}
	return target
}

// IsTopLevel reports whether the message appears directly in a feed.
func (m Message) IsTopLevel() bool {
	return m.ParentID == nil
}

// Attachment describes a file uploaded ahead of a send.
type Attachment struct {
	URL      string
	Name     string
	MimeType string
	Size     int64
}

// Target identifies a channel or a conversation timeline. Zero means unset.
type Target struct {
	ChannelID      uint
	ConversationID uint
}

// Valid reports whether exactly one side of the target is set.
func (t Target) Valid() bool {
	return (t.ChannelID == 0) != (t.ConversationID == 0)
}

// IsChannel reports whether the target is a channel.
func (t Target) IsChannel() bool {
	return t.ChannelID != 0
}

// Key is the stable routing key used for live fan-out.
func (t Target) Key() string {
	if t.IsChannel() {
		return fmt.Sprintf("channel:%d", t.ChannelID)
	}
	return fmt.Sprintf("conversation:%d", t.ConversationID)
}

// Apply copies the target onto the message columns.
func (t Target) Apply(m *Message) {
	m.ChannelID = nil
	m.ConversationID = nil
	if t.ChannelID != 0 {
		id := t.ChannelID
		m.ChannelID = &id
	}
	if t.ConversationID != 0 {
		id := t.ConversationID
		m.ConversationID = &id
	}
}

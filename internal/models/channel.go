package models

import "time"

// Channel visibility values.
const (
	ChannelPublic  = "public"
	ChannelPrivate = "private"
)

// Channel membership roles.
const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// Channel is a named group timeline. Names are unique across the workspace.
type Channel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Visibility  string    `gorm:"size:16;not null;default:public" json:"visibility"`
	IsArchived  bool      `gorm:"not null;default:false;index" json:"is_archived"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChannelMember links a user to a channel and carries the read cursor.
type ChannelMember struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChannelID  uint      `gorm:"not null;uniqueIndex:idx_channel_members_pair" json:"channel_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_channel_members_pair;index" json:"user_id"`
	Role       string    `gorm:"size:16;not null;default:member" json:"role"`
	LastReadAt time.Time `gorm:"not null" json:"last_read_at"`
	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
}

// CanModerate reports whether the membership role may manage the channel.
func (m ChannelMember) CanModerate() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}

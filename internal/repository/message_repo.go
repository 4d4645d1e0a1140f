package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
)

// DefaultPageLimit is used when callers pass a non-positive page size.
const DefaultPageLimit = 50

// MessageRepository is the append-only store behind every timeline.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uint) (models.Message, error)
	Page(ctx context.Context, target models.Target, limit int, before uint) ([]models.Message, error)
	Thread(ctx context.Context, parentID uint) ([]models.Message, error)
	NewSince(ctx context.Context, target models.Target, afterID uint) ([]models.Message, error)
	UpdateContent(ctx context.Context, id uint, content string) (models.Message, error)
	LatestByConversations(ctx context.Context, conversationIDs []uint) (map[uint]models.Message, error)
	CountUnread(ctx context.Context, userID uint, channelIDs []uint) (map[uint]int64, error)
	CountUnreadConversations(ctx context.Context, userID uint, conversationIDs []uint) (map[uint]int64, error)
}

type messageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append inserts the message and, for replies, increments the parent's reply
// count in the same transaction. Replies to replies are attached to the
// top-level parent so threads stay one level deep.
func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if message.ParentID != nil {
			parent, err := findParent(tx, *message.ParentID)
			if err != nil {
				return err
			}
			if parent.ParentID != nil {
				parent, err = findParent(tx, *parent.ParentID)
				if err != nil {
					return err
				}
			}
			if parent.Target() != message.Target() {
				return ErrParentTargetMismatch
			}
			rootID := parent.ID
			message.ParentID = &rootID
		}

		if message.CreatedAt.IsZero() {
			message.CreatedAt = r.now()
		}
		if message.Type == "" {
			message.Type = models.MessageText
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		if message.ConversationID != nil {
			if err := tx.Model(&models.Conversation{}).
				Where("id = ?", *message.ConversationID).
				UpdateColumn("updated_at", message.CreatedAt).Error; err != nil {
				return err
			}
		}

		if message.ParentID == nil {
			return nil
		}

		return tx.Model(&models.Message{}).
			Where("id = ?", *message.ParentID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error
	})
}

func findParent(tx *gorm.DB, id uint) (models.Message, error) {
	var parent models.Message
	if err := tx.Where("id = ?", id).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Message{}, ErrParentNotFound
		}
		return models.Message{}, err
	}
	return parent, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) Page(ctx context.Context, target models.Target, limit int, before uint) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	query := r.db.WithContext(ctx).Scopes(targetScope(target)).Where("parent_id IS NULL")
	if before > 0 {
		query = query.Where("id < ?", before)
	}

	var messages []models.Message
	if err := query.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// Thread returns the top-level parent followed by its replies oldest first.
// Asking for a reply resolves to the thread it belongs to. A missing parent
// yields an empty result rather than an error.
func (r *messageRepository) Thread(ctx context.Context, parentID uint) ([]models.Message, error) {
	db := r.db.WithContext(ctx)

	var parent models.Message
	if err := db.Where("id = ?", parentID).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Message{}, nil
		}
		return nil, err
	}
	if parent.ParentID != nil {
		var root models.Message
		if err := db.Where("id = ?", *parent.ParentID).First(&root).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []models.Message{}, nil
			}
			return nil, err
		}
		parent = root
	}

	var replies []models.Message
	if err := db.Where("parent_id = ?", parent.ID).Order("created_at ASC").Order("id ASC").Find(&replies).Error; err != nil {
		return nil, err
	}

	return append([]models.Message{parent}, replies...), nil
}

func (r *messageRepository) NewSince(ctx context.Context, target models.Target, afterID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Scopes(targetScope(target)).
		Where("parent_id IS NULL").
		Where("id > ?", afterID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uint, content string) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&message).Error; err != nil {
			return err
		}
		message.Content = content
		message.IsEdited = true
		return tx.Model(&models.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"updated_at": r.now(),
		}).Error
	})
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) LatestByConversations(ctx context.Context, conversationIDs []uint) (map[uint]models.Message, error) {
	result := make(map[uint]models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	latestIDs := r.db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", conversationIDs).
		Where("parent_id IS NULL").
		Group("conversation_id")

	var messages []models.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latestIDs).Find(&messages).Error; err != nil {
		return nil, err
	}

	for _, message := range messages {
		if message.ConversationID != nil {
			result[*message.ConversationID] = message
		}
	}
	return result, nil
}

type unreadRow struct {
	TargetID uint
	Total    int64
}

// CountUnread counts top-level messages newer than the member's read cursor
// for each requested channel. Channels without unread messages map to zero.
func (r *messageRepository) CountUnread(ctx context.Context, userID uint, channelIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(channelIDs))
	if len(channelIDs) == 0 {
		return counts, nil
	}
	for _, id := range channelIDs {
		counts[id] = 0
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.channel_id AS target_id, COUNT(*) AS total").
		Joins("JOIN channel_members ON channel_members.channel_id = messages.channel_id AND channel_members.user_id = ?", userID).
		Where("messages.channel_id IN ?", channelIDs).
		Where("messages.parent_id IS NULL").
		Where("messages.created_at > channel_members.last_read_at").
		Group("messages.channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TargetID] = row.Total
	}
	return counts, nil
}

func (r *messageRepository) CountUnreadConversations(ctx context.Context, userID uint, conversationIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	for _, id := range conversationIDs {
		counts[id] = 0
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.conversation_id AS target_id, COUNT(*) AS total").
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = messages.conversation_id AND conversation_participants.user_id = ?", userID).
		Where("messages.conversation_id IN ?", conversationIDs).
		Where("messages.parent_id IS NULL").
		Where("messages.created_at > conversation_participants.last_read_at").
		Group("messages.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TargetID] = row.Total
	}
	return counts, nil
}

func targetScope(target models.Target) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if target.IsChannel() {
			return db.Where("channel_id = ?", target.ChannelID)
		}
		return db.Where("conversation_id = ?", target.ConversationID)
	}
}

package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
)

// MessageSearchFilter narrows a content scan to what the viewer may see.
type MessageSearchFilter struct {
	Query      string
	ViewerID   uint
	ChannelID  uint
	FromUserID uint
	Limit      int
}

// SearchRepository runs substring scans over messages, channels and users.
type SearchRepository interface {
	Messages(ctx context.Context, filter MessageSearchFilter) ([]models.Message, error)
	Channels(ctx context.Context, viewerID uint, term string, limit int) ([]models.Channel, error)
	Users(ctx context.Context, term string, limit int) ([]models.User, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository constructs a search repository backed by GORM.
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// visibleChannels selects ids of non-archived channels that are public or
// joined by the viewer.
func (r *searchRepository) visibleChannels(viewerID uint) *gorm.DB {
	memberships := r.db.Model(&models.ChannelMember{}).Select("channel_id").Where("user_id = ?", viewerID)
	return r.db.Model(&models.Channel{}).
		Select("id").
		Where("is_archived = ?", false).
		Where("visibility = ? OR id IN (?)", models.ChannelPublic, memberships)
}

func (r *searchRepository) Messages(ctx context.Context, filter MessageSearchFilter) ([]models.Message, error) {
	if strings.TrimSpace(filter.Query) == "" {
		return []models.Message{}, nil
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	conversations := r.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", filter.ViewerID)

	query := r.db.WithContext(ctx).
		Where("LOWER(content) LIKE ?", likePattern(filter.Query)).
		Where("(channel_id IN (?) OR conversation_id IN (?))", r.visibleChannels(filter.ViewerID), conversations)
	if filter.ChannelID > 0 {
		query = query.Where("channel_id = ?", filter.ChannelID)
	}
	if filter.FromUserID > 0 {
		query = query.Where("user_id = ?", filter.FromUserID)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *searchRepository) Channels(ctx context.Context, viewerID uint, term string, limit int) ([]models.Channel, error) {
	if strings.TrimSpace(term) == "" {
		return []models.Channel{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var channels []models.Channel
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.visibleChannels(viewerID)).
		Where("LOWER(name) LIKE ?", likePattern(term)).
		Order("name ASC").
		Limit(limit).
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *searchRepository) Users(ctx context.Context, term string, limit int) ([]models.User, error) {
	if strings.TrimSpace(term) == "" {
		return []models.User{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var users []models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", likePattern(term)).
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

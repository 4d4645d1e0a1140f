package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/huddle-api/internal/models"
)

// ChannelListing pairs a channel with the caller's membership flag.
type ChannelListing struct {
	models.Channel
	IsMember bool
}

// ChannelRepository persists channels, memberships and read cursors.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	FindByID(ctx context.Context, id uint) (models.Channel, error)
	FindByName(ctx context.Context, name string) (models.Channel, error)
	ListVisible(ctx context.Context, userID uint) ([]ChannelListing, error)
	Archive(ctx context.Context, id uint) error
	AddMember(ctx context.Context, channelID, userID uint, role string) (bool, error)
	RemoveMember(ctx context.Context, channelID, userID uint) (bool, error)
	Membership(ctx context.Context, channelID, userID uint) (models.ChannelMember, error)
	ListMembers(ctx context.Context, channelID uint) ([]models.ChannelMember, error)
	ListMemberships(ctx context.Context, userID uint) ([]models.ChannelMember, error)
	MarkRead(ctx context.Context, channelID, userID uint, at time.Time) error
}

type channelRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewChannelRepository constructs a channel repository backed by GORM.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the channel and enrols its creator as owner atomically.
func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(channel).Error; err != nil {
			return err
		}

		now := r.now()
		owner := models.ChannelMember{
			ChannelID:  channel.ID,
			UserID:     channel.CreatedBy,
			Role:       models.MemberRoleOwner,
			LastReadAt: now,
			JoinedAt:   now,
		}
		return tx.Create(&owner).Error
	})
}

func (r *channelRepository) FindByID(ctx context.Context, id uint) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (r *channelRepository) FindByName(ctx context.Context, name string) (models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error; err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

// ListVisible returns non-archived public channels plus the private channels
// the user belongs to, ordered by name.
func (r *channelRepository) ListVisible(ctx context.Context, userID uint) ([]ChannelListing, error) {
	memberships := r.db.Model(&models.ChannelMember{}).Select("channel_id").Where("user_id = ?", userID)

	var channels []models.Channel
	err := r.db.WithContext(ctx).
		Where("is_archived = ?", false).
		Where("visibility = ? OR id IN (?)", models.ChannelPublic, memberships).
		Order("name ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}

	var joined []uint
	if err := r.db.WithContext(ctx).Model(&models.ChannelMember{}).Where("user_id = ?", userID).Pluck("channel_id", &joined).Error; err != nil {
		return nil, err
	}
	member := make(map[uint]struct{}, len(joined))
	for _, id := range joined {
		member[id] = struct{}{}
	}

	listings := make([]ChannelListing, 0, len(channels))
	for _, channel := range channels {
		_, ok := member[channel.ID]
		listings = append(listings, ChannelListing{Channel: channel, IsMember: ok})
	}
	return listings, nil
}

func (r *channelRepository) Archive(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", id).Update("is_archived", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddMember enrols the user; an existing membership is left untouched and
// reported as not created.
func (r *channelRepository) AddMember(ctx context.Context, channelID, userID uint, role string) (bool, error) {
	now := r.now()
	member := models.ChannelMember{
		ChannelID:  channelID,
		UserID:     userID,
		Role:       role,
		LastReadAt: now,
		JoinedAt:   now,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *channelRepository) RemoveMember(ctx context.Context, channelID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&models.ChannelMember{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *channelRepository) Membership(ctx context.Context, channelID, userID uint) (models.ChannelMember, error) {
	var member models.ChannelMember
	err := r.db.WithContext(ctx).Where("channel_id = ? AND user_id = ?", channelID, userID).First(&member).Error
	if err != nil {
		return models.ChannelMember{}, err
	}
	return member, nil
}

func (r *channelRepository) ListMembers(ctx context.Context, channelID uint) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	if err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).Order("joined_at ASC").Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *channelRepository) ListMemberships(ctx context.Context, userID uint) ([]models.ChannelMember, error) {
	var members []models.ChannelMember
	err := r.db.WithContext(ctx).
		Select("channel_members.*").
		Joins("JOIN channels ON channels.id = channel_members.channel_id AND channels.is_archived = ?", false).
		Where("channel_members.user_id = ?", userID).
		Order("channel_members.channel_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// MarkRead moves the member's cursor to at. The cursor never moves backwards;
// a missing membership yields gorm.ErrRecordNotFound.
func (r *channelRepository) MarkRead(ctx context.Context, channelID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.ChannelMember
		if err := tx.Where("channel_id = ? AND user_id = ?", channelID, userID).First(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChannelMember{}).
			Where("id = ? AND last_read_at < ?", member.ID, at).
			Update("last_read_at", at).Error
	})
}

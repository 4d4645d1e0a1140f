package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/huddle-api/internal/models"
)

// ConversationRepository persists direct-message conversations.
type ConversationRepository interface {
	FindOrCreateDM(ctx context.Context, a, b uint) (models.Conversation, bool, error)
	FindByID(ctx context.Context, id uint) (models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	Participants(ctx context.Context, conversationIDs []uint) ([]models.ConversationParticipant, error)
	Participant(ctx context.Context, conversationID, userID uint) (models.ConversationParticipant, error)
	MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error
}

type conversationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewConversationRepository constructs a conversation repository backed by GORM.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// FindOrCreateDM returns the single conversation for the unordered pair
// {a, b}, creating it with both participants when absent. The canonical
// dm_key is unique, so racing callers converge on the same row.
func (r *conversationRepository) FindOrCreateDM(ctx context.Context, a, b uint) (models.Conversation, bool, error) {
	key := models.DMKey(a, b)

	var (
		conversation models.Conversation
		created      bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("dm_key = ?", key).First(&conversation).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conversation = models.Conversation{Type: models.ConversationDM, DMKey: &key}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&conversation)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			conversation = models.Conversation{}
			return tx.Where("dm_key = ?", key).First(&conversation).Error
		}

		created = true
		now := r.now()
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: a, LastReadAt: now, JoinedAt: now},
			{ConversationID: conversation.ID, UserID: b, LastReadAt: now, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return models.Conversation{}, false, err
	}

	return conversation, created, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Select("conversations.*").
		Joins("JOIN conversation_participants ON conversation_participants.conversation_id = conversations.id").
		Where("conversation_participants.user_id = ?", userID).
		Order("conversations.updated_at DESC").
		Order("conversations.id DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *conversationRepository) Participants(ctx context.Context, conversationIDs []uint) ([]models.ConversationParticipant, error) {
	if len(conversationIDs) == 0 {
		return []models.ConversationParticipant{}, nil
	}

	var participants []models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("conversation_id ASC").
		Order("id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *conversationRepository) Participant(ctx context.Context, conversationID, userID uint) (models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error
	if err != nil {
		return models.ConversationParticipant{}, err
	}
	return participant, nil
}

// MarkRead advances the participant's cursor; a missing participant yields
// gorm.ErrRecordNotFound.
func (r *conversationRepository) MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var participant models.ConversationParticipant
		if err := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&participant).Error; err != nil {
			return err
		}
		return tx.Model(&models.ConversationParticipant{}).
			Where("id = ? AND last_read_at < ?", participant.ID, at).
			Update("last_read_at", at).Error
	})
}

package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/huddle-api/internal/models"
)

const toggleAttempts = 5

var errToggleRaced = errors.New("reaction toggle raced")

// ReactionRepository stores per-user emoji reactions.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID uint, emoji string) (bool, error)
	ListByMessages(ctx context.Context, messageIDs []uint) ([]models.Reaction, error)
}

type reactionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReactionRepository constructs a reaction repository backed by GORM.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Toggle removes the (message, user, emoji) reaction if present and adds it
// otherwise. It reports true when the reaction was added. The unique index on
// the triple means a concurrent insert surfaces as a no-op, in which case the
// toggle is retried against the new state.
func (r *reactionRepository) Toggle(ctx context.Context, messageID, userID uint, emoji string) (bool, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		var added bool
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			removed := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
				Delete(&models.Reaction{})
			if removed.Error != nil {
				return removed.Error
			}
			if removed.RowsAffected > 0 {
				return nil
			}

			reaction := models.Reaction{
				MessageID: messageID,
				UserID:    userID,
				Emoji:     emoji,
				CreatedAt: r.now(),
			}
			inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction)
			if inserted.Error != nil {
				return inserted.Error
			}
			if inserted.RowsAffected == 0 {
				return errToggleRaced
			}
			added = true
			return nil
		})
		if errors.Is(err, errToggleRaced) {
			continue
		}
		if err != nil {
			return false, err
		}
		return added, nil
	}

	return false, ErrToggleContended
}

// ListByMessages returns reactions for the given messages in insertion order.
func (r *reactionRepository) ListByMessages(ctx context.Context, messageIDs []uint) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return []models.Reaction{}, nil
	}

	var reactions []models.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

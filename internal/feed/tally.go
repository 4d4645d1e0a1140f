package feed

import (
	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
)

// Tally groups reaction rows by message and emoji. Emojis keep the order of
// their first reaction and user ids keep insertion order.
func Tally(reactions []models.Reaction) map[uint][]dto.ReactionSummary {
	grouped := make(map[uint][]dto.ReactionSummary)
	index := make(map[uint]map[string]int)

	for _, reaction := range reactions {
		positions, ok := index[reaction.MessageID]
		if !ok {
			positions = make(map[string]int)
			index[reaction.MessageID] = positions
		}

		pos, ok := positions[reaction.Emoji]
		if !ok {
			pos = len(grouped[reaction.MessageID])
			positions[reaction.Emoji] = pos
			grouped[reaction.MessageID] = append(grouped[reaction.MessageID], dto.ReactionSummary{
				Emoji:   reaction.Emoji,
				UserIDs: []uint{},
			})
		}

		summary := &grouped[reaction.MessageID][pos]
		summary.UserIDs = append(summary.UserIDs, reaction.UserID)
		summary.Count = len(summary.UserIDs)
	}

	return grouped
}

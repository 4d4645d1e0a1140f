// Package feed holds the client-side convergence rules for timelines: merging
// polled batches into a loaded view, tracking the poll cursor and grouping
// reactions for display.
package feed

import "github.com/noah-isme/huddle-api/internal/dto"

// Merge returns base followed by every polled message whose id is not already
// present. Duplicates inside polled are dropped too, so redelivered or
// overlapping batches never produce repeated entries and Merge is idempotent.
func Merge(base, polled []dto.MessageResponse) []dto.MessageResponse {
	seen := make(map[uint]struct{}, len(base)+len(polled))
	merged := make([]dto.MessageResponse, 0, len(base)+len(polled))

	for _, message := range base {
		seen[message.ID] = struct{}{}
		merged = append(merged, message)
	}
	for _, message := range polled {
		if _, ok := seen[message.ID]; ok {
			continue
		}
		seen[message.ID] = struct{}{}
		merged = append(merged, message)
	}

	return merged
}

// LastSeen returns the largest message id in the view, or zero when empty.
func LastSeen(view []dto.MessageResponse) uint {
	var max uint
	for _, message := range view {
		if message.ID > max {
			max = message.ID
		}
	}
	return max
}

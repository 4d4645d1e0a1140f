package feed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
)

func TestTimelinePageThenPoll(t *testing.T) {
	timeline := NewTimeline()
	timeline.Load(messages(1, 2, 3))
	require.Equal(t, uint(3), timeline.Cursor())

	added := timeline.Apply(messages(2, 3, 4))
	require.Equal(t, 1, added)
	require.Equal(t, []uint{1, 2, 3, 4}, idsOf(timeline.Messages()))
	require.Equal(t, uint(4), timeline.Cursor())

	require.Zero(t, timeline.Apply(messages(4)))
	require.Equal(t, 4, timeline.Len())
}

func TestTimelineCursorTracksMaxAfterOverlap(t *testing.T) {
	timeline := NewTimeline()
	timeline.Load(messages(1))

	timeline.Apply(messages(2, 3))
	require.Equal(t, uint(3), timeline.Cursor())
	require.Equal(t, []uint{1, 2, 3}, idsOf(timeline.Messages()))
}

func TestTimelineCursorNeverDecreases(t *testing.T) {
	timeline := NewTimeline()
	timeline.Load(messages(5, 6))
	timeline.Prepend(messages(1, 2))

	require.Equal(t, uint(6), timeline.Cursor())
	require.Equal(t, []uint{1, 2, 5, 6}, idsOf(timeline.Messages()))

	timeline.Apply(nil)
	require.Equal(t, uint(6), timeline.Cursor())
}

func TestTimelineConcurrentApply(t *testing.T) {
	timeline := NewTimeline()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			timeline.Apply([]dto.MessageResponse{{ID: id}, {ID: id}})
		}(uint(i))
	}
	wg.Wait()

	require.Equal(t, 20, timeline.Len())
	require.Equal(t, uint(20), timeline.Cursor())
}

func TestTallyGroupsByEmojiInFirstReactionOrder(t *testing.T) {
	reactions := []models.Reaction{
		{MessageID: 1, UserID: 2, Emoji: "👍"},
		{MessageID: 1, UserID: 3, Emoji: "🎉"},
		{MessageID: 1, UserID: 4, Emoji: "👍"},
		{MessageID: 2, UserID: 2, Emoji: "👀"},
	}

	tally := Tally(reactions)
	require.Len(t, tally[1], 2)
	require.Equal(t, dto.ReactionSummary{Emoji: "👍", Count: 2, UserIDs: []uint{2, 4}}, tally[1][0])
	require.Equal(t, dto.ReactionSummary{Emoji: "🎉", Count: 1, UserIDs: []uint{3}}, tally[1][1])
	require.Equal(t, "👀", tally[2][0].Emoji)
	require.Empty(t, tally[3])
}

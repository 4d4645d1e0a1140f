package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/feed"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

type countingUsers struct {
	repository.UserRepository
	calls int
	err   error
}

func (c *countingUsers) FindByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.UserRepository.FindByIDs(ctx, ids)
}

type countingReactions struct {
	repository.ReactionRepository
	calls int
}

func (c *countingReactions) ListByMessages(ctx context.Context, ids []uint) ([]models.Reaction, error) {
	c.calls++
	return c.ReactionRepository.ListByMessages(ctx, ids)
}

func TestFeedServicePollScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")
	ctx := context.Background()

	first := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "one"})
	second := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "two"})
	third := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "three"})

	polled, err := f.feed.Poll(ctx, 1, dto.PollQuery{ChannelID: channelID, After: first.ID})
	require.NoError(t, err)
	require.Equal(t, []uint{second.ID, third.ID}, messageIDs(polled))

	again, err := f.feed.Poll(ctx, 1, dto.PollQuery{ChannelID: channelID, After: first.ID})
	require.NoError(t, err)
	require.Equal(t, messageIDs(polled), messageIDs(again))

	view := feed.Merge(nil, polled)
	require.Equal(t, []uint{second.ID, third.ID}, messageIDs(view))
	require.Equal(t, third.ID, feed.LastSeen(view))
}

func TestFeedServicePageThenPollConverges(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: content})
	}

	page, err := f.feed.Page(ctx, 1, dto.FeedQuery{ChannelID: channelID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Less(t, page[0].ID, page[1].ID)

	timeline := feed.NewTimeline()
	timeline.Load(page)

	late := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "d"})

	// a lagging cursor re-delivers the newest page entry
	polled, err := f.feed.Poll(ctx, 1, dto.PollQuery{ChannelID: channelID, After: page[0].ID})
	require.NoError(t, err)
	require.Equal(t, 1, timeline.Apply(polled))
	require.Equal(t, 0, timeline.Apply(polled))
	require.Equal(t, []uint{page[0].ID, page[1].ID, late.ID}, messageIDs(timeline.Messages()))
	require.Equal(t, late.ID, timeline.Cursor())

	older, err := f.feed.Page(ctx, 1, dto.FeedQuery{ChannelID: channelID, Before: page[0].ID})
	require.NoError(t, err)
	require.Len(t, older, 1)
	require.Less(t, older[0].ID, page[0].ID)
}

func TestFeedServiceEnrichment(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	channelID := f.channel(t, 1, "general", 2)
	ctx := context.Background()

	message := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "ship it"})
	_, err := f.reactions.Toggle(ctx, 1, message.ID, dto.ReactionToggleRequest{Emoji: "👍"})
	require.NoError(t, err)
	_, err = f.reactions.Toggle(ctx, 2, message.ID, dto.ReactionToggleRequest{Emoji: "👍"})
	require.NoError(t, err)

	// authored by a user that never synced
	ghost := models.Message{UserID: 77, Content: "boo"}
	models.Target{ChannelID: channelID}.Apply(&ghost)
	require.NoError(t, f.messageRepo.Append(ctx, &ghost))

	page, err := f.feed.Page(ctx, 2, dto.FeedQuery{ChannelID: channelID})
	require.NoError(t, err)
	require.Len(t, page, 2)

	require.Equal(t, "Ada", page[0].Author.Name)
	require.Equal(t, []dto.ReactionSummary{{Emoji: "👍", Count: 2, UserIDs: []uint{1, 2}}}, page[0].Reactions)

	require.Equal(t, "Unknown", page[1].Author.Name)
	require.Equal(t, uint(77), page[1].Author.ID)
	require.NotNil(t, page[1].Reactions)
	require.Empty(t, page[1].Reactions)
}

func TestFeedServiceEnrichDegradesOnLookupFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")
	message := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "hello"})

	users := &countingUsers{UserRepository: f.userRepo, err: errors.New("db down")}
	reactions := &countingReactions{ReactionRepository: f.reactionRepo}
	svc := NewFeedService(f.messageRepo, users, reactions, f.channelRepo, f.convRepo, f.validate, 0, testLogger())

	stored, err := f.messageRepo.FindByID(context.Background(), message.ID)
	require.NoError(t, err)

	enriched := svc.Enrich(context.Background(), []models.Message{stored})
	require.Len(t, enriched, 1)
	require.Equal(t, "Unknown", enriched[0].Author.Name)
	require.Equal(t, 1, users.calls)
	require.Equal(t, 1, reactions.calls)
}

func TestFeedServiceEmptyBatchSkipsLookups(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")

	users := &countingUsers{UserRepository: f.userRepo}
	reactions := &countingReactions{ReactionRepository: f.reactionRepo}
	svc := NewFeedService(f.messageRepo, users, reactions, f.channelRepo, f.convRepo, f.validate, 0, testLogger())

	page, err := svc.Page(context.Background(), 1, dto.FeedQuery{ChannelID: channelID})
	require.NoError(t, err)
	require.Empty(t, page)

	polled, err := svc.Poll(context.Background(), 1, dto.PollQuery{ChannelID: channelID})
	require.NoError(t, err)
	require.Empty(t, polled)

	require.Zero(t, users.calls)
	require.Zero(t, reactions.calls)
}

func TestFeedServiceThreadOfMissingParentIsEmpty(t *testing.T) {
	f := newFixture(t, nil)

	thread, err := f.feed.Thread(context.Background(), 1, 12345)
	require.NoError(t, err)
	require.NotNil(t, thread)
	require.Empty(t, thread)
}

func TestFeedServicePrivateChannelsRequireMembership(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	ctx := context.Background()

	private, err := f.channels.Create(ctx, Actor{ID: 1}, dto.CreateChannelRequest{Name: "leads", Visibility: "private"})
	require.NoError(t, err)
	f.send(t, 1, dto.SendMessageRequest{ChannelID: private.ID, Content: "secret"})

	_, err = f.feed.Page(ctx, 2, dto.FeedQuery{ChannelID: private.ID})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.feed.Poll(ctx, 2, dto.PollQuery{ChannelID: private.ID})
	require.ErrorIs(t, err, ErrForbidden)

	public := f.channel(t, 1, "general")
	page, err := f.feed.Page(ctx, 2, dto.FeedQuery{ChannelID: public})
	require.NoError(t, err)
	require.Empty(t, page)

	_, err = f.feed.Page(ctx, 2, dto.FeedQuery{ChannelID: public, Limit: 500})
	require.True(t, IsValidation(err))
}

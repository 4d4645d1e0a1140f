package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/models"
)

func TestSearchRepositoryMessagesRespectsVisibility(t *testing.T) {
	db := setupTestDB(t)
	channels := NewChannelRepository(db)
	messages := NewMessageRepository(db)
	conversations := NewConversationRepository(db)
	search := NewSearchRepository(db)
	ctx := context.Background()

	public := seedChannel(t, db, "general", 1)
	private := models.Channel{Name: "leads", Visibility: models.ChannelPrivate, CreatedBy: 1}
	require.NoError(t, channels.Create(ctx, &private))

	require.NoError(t, messages.Append(ctx, channelMessage(public.ID, 1, "Launch plan ready")))
	require.NoError(t, messages.Append(ctx, channelMessage(private.ID, 1, "launch budget")))

	dm, _, err := conversations.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)
	direct := &models.Message{UserID: 1, Content: "launch party?"}
	models.Target{ConversationID: dm.ID}.Apply(direct)
	require.NoError(t, messages.Append(ctx, direct))

	owner, err := search.Messages(ctx, MessageSearchFilter{Query: "LAUNCH", ViewerID: 1})
	require.NoError(t, err)
	require.Len(t, owner, 3)

	peer, err := search.Messages(ctx, MessageSearchFilter{Query: "launch", ViewerID: 2})
	require.NoError(t, err)
	require.Len(t, peer, 2)

	outsider, err := search.Messages(ctx, MessageSearchFilter{Query: "launch", ViewerID: 3})
	require.NoError(t, err)
	require.Len(t, outsider, 1)
	require.Equal(t, "Launch plan ready", outsider[0].Content)

	scoped, err := search.Messages(ctx, MessageSearchFilter{Query: "launch", ViewerID: 1, ChannelID: private.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)

	empty, err := search.Messages(ctx, MessageSearchFilter{Query: "  ", ViewerID: 1})
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSearchRepositoryChannelsAndUsers(t *testing.T) {
	db := setupTestDB(t)
	channels := NewChannelRepository(db)
	users := NewUserRepository(db)
	search := NewSearchRepository(db)
	ctx := context.Background()

	seedChannel(t, db, "dev-backend", 1)
	seedChannel(t, db, "dev-frontend", 1)
	require.NoError(t, channels.Create(ctx, &models.Channel{Name: "dev-secret", Visibility: models.ChannelPrivate, CreatedBy: 2}))

	found, err := search.Channels(ctx, 1, "dev", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = search.Channels(ctx, 2, "dev", 10)
	require.NoError(t, err)
	require.Len(t, found, 3)

	require.NoError(t, users.Upsert(ctx, &models.User{ID: 1, Name: "Devon"}))
	require.NoError(t, users.Upsert(ctx, &models.User{ID: 2, Name: "Sam"}))
	people, err := search.Users(ctx, "dev", 10)
	require.NoError(t, err)
	require.Len(t, people, 1)
	require.Equal(t, "Devon", people[0].Name)
}

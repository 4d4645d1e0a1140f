package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/dto"
)

func TestMessageServiceThreadScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	channelID := f.channel(t, 1, "general", 2)
	ctx := context.Background()

	root := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "release today?"})
	first := f.send(t, 2, dto.SendMessageRequest{ChannelID: channelID, ParentID: uintPtr(root.ID), Content: "yes"})
	second := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, ParentID: uintPtr(root.ID), Content: "great"})

	thread, err := f.feed.Thread(ctx, 2, root.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID, first.ID, second.ID}, messageIDs(thread))
	require.Equal(t, 2, thread[0].ReplyCount)

	page, err := f.feed.Page(ctx, 2, dto.FeedQuery{ChannelID: channelID})
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID}, messageIDs(page))

	events := f.live.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, dto.LiveMessageCreated, events[0].Type)
	require.Equal(t, root.ID, events[0].Message.ID)
}

func TestMessageServiceRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")
	ctx := context.Background()

	_, err := f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "   "})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "<script>alert(1)</script>"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{Content: "nowhere"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: channelID, ConversationID: 4, Content: "both"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: channelID, ParentID: uintPtr(999), Content: "orphan"})
	require.ErrorIs(t, err, ErrNotFound)

	require.Empty(t, f.live.snapshot())
}

func TestMessageServiceAttachmentOnlyMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")

	message := f.send(t, 1, dto.SendMessageRequest{
		ChannelID: channelID,
		Attachment: &dto.AttachmentPayload{
			URL:       "https://cdn.example.com/roadmap.pdf",
			FileName:  "roadmap.pdf",
			MimeType:  "application/pdf",
			SizeBytes: 2048,
		},
	})

	require.Equal(t, "file", message.Type)
	require.Equal(t, "roadmap.pdf", message.Content)
	require.NotNil(t, message.Attachment)
	require.Equal(t, int64(2048), message.Attachment.SizeBytes)
	require.Equal(t, "Ada", message.Author.Name)
}

func TestMessageServiceEnforcesMembership(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	channelID := f.channel(t, 1, "general")
	ctx := context.Background()

	_, err := f.messages.Send(ctx, 2, dto.SendMessageRequest{ChannelID: channelID, Content: "let me in"})
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.channels.Archive(ctx, Actor{ID: 1}, channelID))
	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "anyone?"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.Send(ctx, 1, dto.SendMessageRequest{ChannelID: 404, Content: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMessageServiceReplyMustStayInTimeline(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	general := f.channel(t, 1, "general")
	random := f.channel(t, 1, "random")

	root := f.send(t, 1, dto.SendMessageRequest{ChannelID: general, Content: "root"})
	_, err := f.messages.Send(context.Background(), 1, dto.SendMessageRequest{ChannelID: random, ParentID: uintPtr(root.ID), Content: "wrong room"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMessageServiceNotifiesParentAuthorAndMentions(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	f.user(t, 3, "Cy")
	channelID := f.channel(t, 1, "general", 2, 3)

	root := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "thoughts?"})
	f.send(t, 2, dto.SendMessageRequest{ChannelID: channelID, ParentID: uintPtr(root.ID), Content: "looping in @3 and @2"})

	notified := f.notifications.byUser()
	require.Equal(t, "thread_reply", notified[1])
	require.Equal(t, "mention", notified[3])
	_, selfNotified := notified[2]
	require.False(t, selfNotified)
}

func TestMessageServiceStoresTypedTextVerbatim(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	channelID := f.channel(t, 1, "general")
	ctx := context.Background()

	const typed = "Tom & Jerry: if a < b then ok <3"
	sent := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: typed})
	require.Equal(t, typed, sent.Content)

	page, err := f.feed.Page(ctx, 1, dto.FeedQuery{ChannelID: channelID})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, typed, page[0].Content)

	stripped := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "<b>ship</b> it & go"})
	require.Equal(t, "ship it & go", stripped.Content)

	edited, err := f.messages.Edit(ctx, 1, sent.ID, dto.EditMessageRequest{Content: "x > y && y > z"})
	require.NoError(t, err)
	require.Equal(t, "x > y && y > z", edited.Content)
}

func TestMessageServiceMentionsRespectChannelAccess(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	f.user(t, 9, "Outsider")
	ctx := context.Background()

	secret, err := f.channels.Create(ctx, Actor{ID: 1}, dto.CreateChannelRequest{Name: "secret", Visibility: "private"})
	require.NoError(t, err)
	_, err = f.channels.Invite(ctx, Actor{ID: 1}, secret.ID, dto.InviteMemberRequest{UserID: 2})
	require.NoError(t, err)

	f.send(t, 1, dto.SendMessageRequest{ChannelID: secret.ID, Content: "layoffs list attached @9 @2"})

	notified := f.notifications.byUser()
	require.Equal(t, map[uint]string{2: "mention"}, notified)

	_, err = f.feed.Page(ctx, 9, dto.FeedQuery{ChannelID: secret.ID})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMessageServiceDirectMessageNotifiesOtherParticipant(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")

	conversation, err := f.conversations.Open(context.Background(), 1, dto.CreateDirectMessageRequest{UserID: 2})
	require.NoError(t, err)

	f.send(t, 1, dto.SendMessageRequest{ConversationID: conversation.ID, Content: "hi Bo"})
	require.Equal(t, map[uint]string{2: "direct_message"}, f.notifications.byUser())

	_, err = f.messages.Send(context.Background(), 3, dto.SendMessageRequest{ConversationID: conversation.ID, Content: "eavesdrop"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMessageServiceEdit(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, 1, "Ada")
	f.user(t, 2, "Bo")
	channelID := f.channel(t, 1, "general", 2)
	ctx := context.Background()

	message := f.send(t, 1, dto.SendMessageRequest{ChannelID: channelID, Content: "draft"})

	_, err := f.messages.Edit(ctx, 2, message.ID, dto.EditMessageRequest{Content: "hijack"})
	require.ErrorIs(t, err, ErrForbidden)

	edited, err := f.messages.Edit(ctx, 1, message.ID, dto.EditMessageRequest{Content: "final"})
	require.NoError(t, err)
	require.True(t, edited.IsEdited)
	require.Equal(t, "final", edited.Content)

	_, err = f.messages.Edit(ctx, 1, 999, dto.EditMessageRequest{Content: "ghost"})
	require.ErrorIs(t, err, ErrNotFound)

	events := f.live.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, dto.LiveMessageEdited, events[1].Type)
}

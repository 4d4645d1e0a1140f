package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/database"
	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type liveRevocation struct {
	userID uint
	target string
}

type liveRecorder struct {
	mu      sync.Mutex
	events  []dto.LiveEvent
	revoked []liveRevocation
}

func (r *liveRecorder) Publish(_ context.Context, target models.Target, event dto.LiveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.Target = target.Key()
	r.events = append(r.events, event)
}

func (r *liveRecorder) Revoke(_ context.Context, userID uint, target models.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, liveRevocation{userID: userID, target: target.Key()})
}

func (r *liveRecorder) revocations() []liveRevocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]liveRevocation(nil), r.revoked...)
}

func (r *liveRecorder) snapshot() []dto.LiveEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dto.LiveEvent(nil), r.events...)
}

type notificationRecorder struct {
	mu       sync.Mutex
	payloads []dto.NotificationCreateRequest
}

func (r *notificationRecorder) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

func (r *notificationRecorder) byUser() map[uint]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint]string, len(r.payloads))
	for _, payload := range r.payloads {
		out[payload.UserID] = payload.Type
	}
	return out
}

type fixture struct {
	db            *gorm.DB
	validate      *validator.Validate
	userRepo      repository.UserRepository
	channelRepo   repository.ChannelRepository
	convRepo      repository.ConversationRepository
	messageRepo   repository.MessageRepository
	reactionRepo  repository.ReactionRepository
	feed          FeedService
	messages      MessageService
	reactions     ReactionService
	unread        UnreadService
	channels      ChannelService
	conversations ConversationService
	users         UserService
	live          *liveRecorder
	notifications *notificationRecorder
}

func newFixture(t *testing.T, redisClient *redis.Client) *fixture {
	t.Helper()

	db, err := database.Connect("sqlite::memory:", testLogger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	f := &fixture{
		db:            db,
		validate:      validator.New(),
		userRepo:      repository.NewUserRepository(db),
		channelRepo:   repository.NewChannelRepository(db),
		convRepo:      repository.NewConversationRepository(db),
		messageRepo:   repository.NewMessageRepository(db),
		reactionRepo:  repository.NewReactionRepository(db),
		live:          &liveRecorder{},
		notifications: &notificationRecorder{},
	}

	f.feed = NewFeedService(f.messageRepo, f.userRepo, f.reactionRepo, f.channelRepo, f.convRepo, f.validate, 0, testLogger())
	f.unread = NewUnreadService(f.messageRepo, f.channelRepo, f.convRepo, redisClient, 0, testLogger())
	f.messages = NewMessageService(MessageServiceDeps{
		Messages:      f.messageRepo,
		Channels:      f.channelRepo,
		Conversations: f.convRepo,
		Enricher:      f.feed,
		Unread:        f.unread,
		Live:          f.live,
		Notifications: f.notifications,
	}, f.validate, testLogger())
	f.reactions = NewReactionService(f.reactionRepo, f.messageRepo, f.channelRepo, f.convRepo, f.validate, testLogger())
	f.channels = NewChannelService(f.channelRepo, f.userRepo, f.convRepo, f.live, f.validate, testLogger())
	f.conversations = NewConversationService(f.convRepo, f.messageRepo, f.userRepo, f.feed, f.validate, testLogger())
	f.users = NewUserService(f.userRepo, f.validate, testLogger())
	return f
}

func (f *fixture) user(t *testing.T, id uint, name string) {
	t.Helper()
	require.NoError(t, f.users.Sync(context.Background(), id, name))
}

func (f *fixture) channel(t *testing.T, owner uint, name string, members ...uint) uint {
	t.Helper()
	created, err := f.channels.Create(context.Background(), Actor{ID: owner}, dto.CreateChannelRequest{Name: name})
	require.NoError(t, err)
	for _, member := range members {
		_, err := f.channels.Join(context.Background(), member, created.ID)
		require.NoError(t, err)
	}
	return created.ID
}

func (f *fixture) send(t *testing.T, author uint, payload dto.SendMessageRequest) dto.MessageResponse {
	t.Helper()
	message, err := f.messages.Send(context.Background(), author, payload)
	require.NoError(t, err)
	return message
}

func messageIDs(messages []dto.MessageResponse) []uint {
	out := make([]uint, 0, len(messages))
	for _, message := range messages {
		out = append(out, message.ID)
	}
	return out
}

func uintPtr(v uint) *uint {
	return &v
}

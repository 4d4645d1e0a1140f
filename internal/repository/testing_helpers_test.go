package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedChannel(t *testing.T, db *gorm.DB, name string, owner uint) models.Channel {
	t.Helper()
	channel := models.Channel{Name: name, Visibility: models.ChannelPublic, CreatedBy: owner}
	require.NoError(t, NewChannelRepository(db).Create(t.Context(), &channel))
	return channel
}

func channelMessage(channelID, userID uint, content string) *models.Message {
	message := &models.Message{UserID: userID, Content: content}
	models.Target{ChannelID: channelID}.Apply(message)
	return message
}

func ids(messages []models.Message) []uint {
	out := make([]uint, 0, len(messages))
	for _, message := range messages {
		out = append(out, message.ID)
	}
	return out
}

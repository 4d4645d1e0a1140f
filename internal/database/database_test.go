package database

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("sqlite::memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.Message{}))
	require.True(t, db.Migrator().HasIndex(&models.Reaction{}, "idx_reactions_key"))
	require.True(t, db.Migrator().HasIndex(&models.ChannelMember{}, "idx_channel_members_pair"))
}

func TestConnectLogsFailuresButNotMissingRows(t *testing.T) {
	var buf bytes.Buffer
	db, err := Connect("sqlite::memory:", zerolog.New(&buf))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))

	var channel models.Channel
	err = db.Where("name = ?", "nowhere").First(&channel).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())

	var rows []map[string]interface{}
	require.Error(t, db.Table("no_such_table").Find(&rows).Error)
	require.Contains(t, buf.String(), `"component":"gorm"`)
	require.Contains(t, buf.String(), "no_such_table")
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect("  ", zerolog.Nop())
	require.Error(t, err)
}

func TestConnectRedisRejectsEmptyURL(t *testing.T) {
	_, err := ConnectRedis("")
	require.Error(t, err)
}

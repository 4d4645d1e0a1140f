package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/models"
)

func TestUserRepositoryUpsertKeepsPresence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: 10, Name: "Lin"}))
	require.NoError(t, repo.UpdatePresence(ctx, 10, models.PresenceOnline, time.Now().UTC()))
	require.NoError(t, repo.Upsert(ctx, &models.User{ID: 10, Name: "Lin Chen"}))

	user, err := repo.FindByID(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "Lin Chen", user.Name)
	require.Equal(t, models.PresenceOnline, user.Presence)
}

func TestUserRepositoryListAndLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, user := range []models.User{{ID: 1, Name: "Zoe"}, {ID: 2, Name: "Abe"}, {ID: 3, Name: "Mia"}} {
		user := user
		require.NoError(t, repo.Upsert(ctx, &user))
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Abe", "Mia", "Zoe"}, []string{users[0].Name, users[1].Name, users[2].Name})

	found, err := repo.FindByIDs(ctx, []uint{1, 3, 99})
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestUserRepositoryUpdatesRequireExistingUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.ErrorIs(t, repo.UpdatePresence(ctx, 5, models.PresenceAway, time.Now().UTC()), gorm.ErrRecordNotFound)
	require.ErrorIs(t, repo.UpdateStatus(ctx, 5, "lunch", "🍜"), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: 5, Name: "Ike"}))
	require.NoError(t, repo.UpdateStatus(ctx, 5, "lunch", "🍜"))

	user, err := repo.FindByID(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "lunch", user.Status)
	require.Equal(t, "🍜", user.StatusEmoji)
}

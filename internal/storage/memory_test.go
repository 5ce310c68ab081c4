package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibes-bot/internal/models"
)

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	first, err := store.GetOrCreateUser(ctx, NewUser{TelegramID: 10, Username: "anya"})
	require.NoError(t, err)
	assert.Equal(t, models.StateNone, first.State)

	second, err := store.GetOrCreateUser(ctx, NewUser{TelegramID: 10, Username: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "anya", second.Username)
}

func TestUpdateUserReturnsCopies(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	user, err := store.GetOrCreateUser(ctx, NewUser{TelegramID: 10})
	require.NoError(t, err)

	user.State = models.StateAwaitingEventRating
	user.Context = &models.DialogContext{PendingEvents: map[string]string{"ev-1": "Стендап"}}
	require.NoError(t, store.UpdateUser(ctx, user))

	// Mutating the caller's copy must not leak into storage.
	user.Context.PendingEvents["ev-2"] = "Планёрка"

	stored, err := store.GetUserByTelegramID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ev-1": "Стендап"}, stored.Context.PendingEvents)
}

func TestUpdateUnknownUser(t *testing.T) {
	store := NewMemoryStorage()
	err := store.UpdateUser(context.Background(), &models.User{ID: 99, TelegramID: 99})
	assert.Error(t, err)
}

func TestActiveUsersFilter(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	active, err := store.GetOrCreateUser(ctx, NewUser{TelegramID: 1})
	require.NoError(t, err)
	active.IsOnboardingCompleted = true
	require.NoError(t, store.UpdateUser(ctx, active))

	_, err = store.GetOrCreateUser(ctx, NewUser{TelegramID: 2})
	require.NoError(t, err)

	users, err := store.ActiveUsers(ctx, time.Now().UTC().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].TelegramID)

	// A cutoff in the future excludes everyone.
	users, err = store.ActiveUsers(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRecentDailyPlansOrder(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	for _, text := range []string{"первый", "второй", "третий"} {
		require.NoError(t, store.CreateDailyPlan(ctx, &models.DailyPlan{UserID: 1, PlanText: text}))
	}

	plans, err := store.RecentDailyPlans(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "третий", plans[0].PlanText)
	assert.Equal(t, "второй", plans[1].PlanText)
}

func TestEventRatingDedup(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	first := &models.EventRating{UserID: 1, GoogleEventID: "ev-1", Vibe: models.VibeEnergize}
	require.NoError(t, store.CreateEventRating(ctx, first))

	// A second press on the same event keeps the first verdict.
	duplicate := &models.EventRating{UserID: 1, GoogleEventID: "ev-1", Vibe: models.VibeDrain}
	require.NoError(t, store.CreateEventRating(ctx, duplicate))

	ratings, err := store.RecentEventRatings(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, models.VibeEnergize, ratings[0].Vibe)

	// The same event id under another user is a distinct rating.
	other := &models.EventRating{UserID: 2, GoogleEventID: "ev-1", Vibe: models.VibeDrain}
	require.NoError(t, store.CreateEventRating(ctx, other))

	ratings, err = store.RecentEventRatings(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}

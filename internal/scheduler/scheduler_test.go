package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/models"
	"github.com/xaenox/vibes-bot/internal/storage"
)

type fakeCheckups struct {
	morningErr error
	eveningErr error
	morning    []int64
	evening    []int64
}

func (f *fakeCheckups) StartMorningCheckup(_ context.Context, user *models.User) error {
	f.morning = append(f.morning, user.TelegramID)
	return f.morningErr
}

func (f *fakeCheckups) StartEveningCheckup(_ context.Context, user *models.User) error {
	f.evening = append(f.evening, user.TelegramID)
	return f.eveningErr
}

func seedUser(t *testing.T, store *storage.MemoryStorage, telegramID int64, mutate func(*models.User)) {
	t.Helper()
	user, err := store.GetOrCreateUser(context.Background(), storage.NewUser{TelegramID: telegramID})
	require.NoError(t, err)
	if mutate != nil {
		mutate(user)
		require.NoError(t, store.UpdateUser(context.Background(), user))
	}
}

func TestMorningSweepCoversAllUsersSkippingStamped(t *testing.T) {
	store := storage.NewMemoryStorage()
	today := time.Now().UTC()
	yesterday := today.AddDate(0, 0, -1)

	seedUser(t, store, 1, func(u *models.User) {
		u.IsOnboardingCompleted = true
	})
	// The morning audience is every known user, onboarded or not; only the
	// evening sweep narrows to active users.
	seedUser(t, store, 2, nil)
	seedUser(t, store, 3, func(u *models.User) {
		u.IsOnboardingCompleted = true
		u.LastMorningCheckupAt = &today // already greeted today
	})
	seedUser(t, store, 4, func(u *models.User) {
		u.IsOnboardingCompleted = true
		u.LastMorningCheckupAt = &yesterday
	})

	checkups := &fakeCheckups{}
	s := New(store, checkups, zap.NewNop())
	s.runMorning()

	assert.Equal(t, []int64{1, 2, 4}, checkups.morning)
}

func TestMorningSweepIsolatesPerUserFailure(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedUser(t, store, 1, func(u *models.User) { u.IsOnboardingCompleted = true })
	seedUser(t, store, 2, func(u *models.User) { u.IsOnboardingCompleted = true })

	checkups := &fakeCheckups{morningErr: errors.New("chat not found")}
	s := New(store, checkups, zap.NewNop())
	s.runMorning()

	// Both users were attempted despite every attempt failing.
	assert.Equal(t, []int64{1, 2}, checkups.morning)
}

func TestEveningSweepTargetsActiveUsers(t *testing.T) {
	store := storage.NewMemoryStorage()

	seedUser(t, store, 1, func(u *models.User) {
		u.IsOnboardingCompleted = true
	})
	seedUser(t, store, 2, nil) // onboarding not finished, not active

	checkups := &fakeCheckups{}
	s := New(store, checkups, zap.NewNop())
	s.runEvening()

	assert.Equal(t, []int64{1}, checkups.evening)
}

func TestStampedToday(t *testing.T) {
	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)

	assert.False(t, stampedToday(nil))
	assert.True(t, stampedToday(&now))
	assert.False(t, stampedToday(&yesterday))
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	s := New(storage.NewMemoryStorage(), &fakeCheckups{}, zap.NewNop())
	err := s.Start("not a cron spec", "0 18 * * *")
	assert.Error(t, err)
}

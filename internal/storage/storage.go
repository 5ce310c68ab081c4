package storage

import (
	"context"
	"time"

	"github.com/xaenox/vibes-bot/internal/models"
)

// NewUser carries the profile fields known from the chat transport when a
// user is seen for the first time.
type NewUser struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

type Storage interface {
	// GetOrCreateUser finds a user by telegram id, creating the record with
	// default state on first contact.
	GetOrCreateUser(ctx context.Context, u NewUser) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// AllUsers enumerates every known user (morning checkup audience).
	AllUsers(ctx context.Context) ([]*models.User, error)
	// ActiveUsers enumerates users with onboarding completed who have been
	// seen since the given time (evening checkup audience).
	ActiveUsers(ctx context.Context, since time.Time) ([]*models.User, error)

	CreateDailyPlan(ctx context.Context, plan *models.DailyPlan) error
	RecentDailyPlans(ctx context.Context, userID int64, limit int) ([]models.DailyPlan, error)

	CreateEventRating(ctx context.Context, rating *models.EventRating) error
	RecentEventRatings(ctx context.Context, userID int64, limit int) ([]models.EventRating, error)

	Close() error
}

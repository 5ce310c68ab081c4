package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/vibes-bot/internal/models"
)

// MemoryStorage is an in-memory Storage implementation used for local runs
// and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*models.User // keyed by telegram id
	plans   map[int64][]models.DailyPlan
	ratings map[int64][]models.EventRating
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextID:  1,
		users:   make(map[int64]*models.User),
		plans:   make(map[int64][]models.DailyPlan),
		ratings: make(map[int64][]models.EventRating),
	}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	if u.Context != nil {
		ctxCopy := *u.Context
		if u.Context.PendingEvents != nil {
			ctxCopy.PendingEvents = make(map[string]string, len(u.Context.PendingEvents))
			for k, v := range u.Context.PendingEvents {
				ctxCopy.PendingEvents[k] = v
			}
		}
		cp.Context = &ctxCopy
	}
	return &cp
}

func (s *MemoryStorage) GetOrCreateUser(ctx context.Context, u NewUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[u.TelegramID]; exists {
		return copyUser(user), nil
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           s.nextID,
		TelegramID:   u.TelegramID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		State:        models.StateNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextID++
	s.users[u.TelegramID] = user
	return copyUser(user), nil
}

func (s *MemoryStorage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[telegramID]; exists {
		return copyUser(user), nil
	}
	return nil, fmt.Errorf("user not found")
}

func (s *MemoryStorage) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.users[user.TelegramID]
	if !exists || stored.ID != user.ID {
		return fmt.Errorf("user not found")
	}

	user.UpdatedAt = time.Now().UTC()
	s.users[user.TelegramID] = copyUser(user)
	return nil
}

func (s *MemoryStorage) AllUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, copyUser(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStorage) ActiveUsers(ctx context.Context, since time.Time) ([]*models.User, error) {
	all, err := s.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	var active []*models.User
	for _, user := range all {
		if user.IsOnboardingCompleted && !user.UpdatedAt.Before(since) {
			active = append(active, user)
		}
	}
	return active, nil
}

func (s *MemoryStorage) CreateDailyPlan(ctx context.Context, plan *models.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan.ID = s.nextID
	s.nextID++
	plan.CreatedAt = time.Now().UTC()
	s.plans[plan.UserID] = append(s.plans[plan.UserID], *plan)
	return nil
}

func (s *MemoryStorage) RecentDailyPlans(ctx context.Context, userID int64, limit int) ([]models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := s.plans[userID]
	result := make([]models.DailyPlan, 0, limit)
	for i := len(plans) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, plans[i])
	}
	return result, nil
}

func (s *MemoryStorage) CreateEventRating(ctx context.Context, rating *models.EventRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same dedup rule as the unique index in Postgres.
	for _, existing := range s.ratings[rating.UserID] {
		if existing.GoogleEventID == rating.GoogleEventID {
			return nil
		}
	}

	rating.ID = s.nextID
	s.nextID++
	s.ratings[rating.UserID] = append(s.ratings[rating.UserID], *rating)
	return nil
}

func (s *MemoryStorage) RecentEventRatings(ctx context.Context, userID int64, limit int) ([]models.EventRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := s.ratings[userID]
	result := make([]models.EventRating, 0, limit)
	for i := len(ratings) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, ratings[i])
	}
	return result, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/models"
	"github.com/xaenox/vibes-bot/internal/storage"
)

// Checkups is the part of the bot the scheduler drives.
type Checkups interface {
	StartMorningCheckup(ctx context.Context, user *models.User) error
	StartEveningCheckup(ctx context.Context, user *models.User) error
}

// Scheduler fires the morning and evening checkup sweeps on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	storage storage.Storage
	bot     Checkups
	logger  *zap.Logger
}

func New(store storage.Storage, bot Checkups, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		storage: store,
		bot:     bot,
		logger:  logger,
	}
}

// Start registers both sweeps and launches the cron loop. A sweep that is
// still running when its next tick arrives is skipped, not queued.
func (s *Scheduler) Start(morningSpec, eveningSpec string) error {
	wrap := func(job func()) cron.Job {
		return cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cron.FuncJob(job))
	}

	if _, err := s.cron.AddJob(morningSpec, wrap(s.runMorning)); err != nil {
		return err
	}
	if _, err := s.cron.AddJob(eveningSpec, wrap(s.runEvening)); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("morning_cron", morningSpec),
		zap.String("evening_cron", eveningSpec))
	return nil
}

// Stop halts the cron loop and waits for any running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runMorning() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	users, err := s.storage.AllUsers(ctx)
	if err != nil {
		s.logger.Error("Morning sweep failed to list users", zap.Error(err))
		return
	}

	started := 0
	for _, user := range users {
		if stampedToday(user.LastMorningCheckupAt) {
			continue
		}
		if err := s.bot.StartMorningCheckup(ctx, user); err != nil {
			// One broken user must not stall the sweep.
			s.logger.Error("Morning checkup failed",
				zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
			continue
		}
		started++
	}

	s.logger.Info("Morning sweep finished", zap.Int("total", len(users)), zap.Int("started", started))
}

func (s *Scheduler) runEvening() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	since := time.Now().UTC().AddDate(0, 0, -7)
	users, err := s.storage.ActiveUsers(ctx, since)
	if err != nil {
		s.logger.Error("Evening sweep failed to list users", zap.Error(err))
		return
	}

	started := 0
	for _, user := range users {
		if stampedToday(user.LastEveningCheckupAt) {
			continue
		}
		if err := s.bot.StartEveningCheckup(ctx, user); err != nil {
			s.logger.Error("Evening checkup failed",
				zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
			continue
		}
		started++
	}

	s.logger.Info("Evening sweep finished", zap.Int("total", len(users)), zap.Int("started", started))
}

// stampedToday reports whether the stamp falls on the current UTC date.
func stampedToday(stamp *time.Time) bool {
	if stamp == nil {
		return false
	}
	now := time.Now().UTC()
	y1, m1, d1 := stamp.UTC().Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

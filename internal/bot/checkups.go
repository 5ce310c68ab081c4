package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/models"
)

// StartMorningCheckup opens the morning dialog for one user. The checkup
// stamp is persisted before anything is sent, so a crash mid-send never
// causes a duplicate greeting on retry.
func (b *Bot) StartMorningCheckup(ctx context.Context, candidate *models.User) error {
	unlock := b.locks.lock(candidate.TelegramID)
	defer unlock()

	log := b.logger.With(zap.Int64("telegram_id", candidate.TelegramID), zap.String("checkup", "morning"))

	// The sweep's snapshot predates the lock; an update handled in between
	// (a saved refresh token, a state change) must not be overwritten.
	user, err := b.storage.GetUserByTelegramID(ctx, candidate.TelegramID)
	if err != nil {
		log.Error("Failed to reload user for morning checkup", zap.Error(err))
		return err
	}

	if sentToday(user.LastMorningCheckupAt) {
		log.Info("Morning checkup already sent today")
		return nil
	}

	now := time.Now().UTC()
	user.LastMorningCheckupAt = &now
	if err := b.setState(ctx, user, models.StateAwaitingMorningEnergy, nil); err != nil {
		log.Error("Failed to stamp morning checkup", zap.Error(err))
		return err
	}

	b.sendMessageWithKeyboard(user.TelegramID, morningGreeting(user.FirstName), energyKeyboard())
	log.Info("Morning checkup started")
	return nil
}

// StartEveningCheckup opens the evening dialog for one user: if the calendar
// yields events for today, each gets rated in turn, otherwise the user is
// asked for a free-form reflection. Stamp-before-send, same as the morning.
func (b *Bot) StartEveningCheckup(ctx context.Context, candidate *models.User) error {
	unlock := b.locks.lock(candidate.TelegramID)
	defer unlock()

	log := b.logger.With(zap.Int64("telegram_id", candidate.TelegramID), zap.String("checkup", "evening"))

	user, err := b.storage.GetUserByTelegramID(ctx, candidate.TelegramID)
	if err != nil {
		log.Error("Failed to reload user for evening checkup", zap.Error(err))
		return err
	}

	if sentToday(user.LastEveningCheckupAt) {
		log.Info("Evening checkup already sent today")
		return nil
	}

	now := time.Now().UTC()
	user.LastEveningCheckupAt = &now

	var pending map[string]string
	if user.CalendarConnected() {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		events, err := b.calendar.EventsForDate(ctx, user.GoogleRefreshToken, today)
		if err != nil {
			// Degrade to the reflection flow rather than skip the checkup.
			log.Error("Failed to load today's events", zap.Error(err))
		}
		if len(events) > 0 {
			pending = make(map[string]string, len(events))
			for _, event := range events {
				pending[event.ID] = event.Summary
			}
		}
	}

	if len(pending) == 0 {
		if err := b.setState(ctx, user, models.StateAwaitingEveningEnergy, nil); err != nil {
			log.Error("Failed to stamp evening checkup", zap.Error(err))
			return err
		}
		b.sendMessage(user.TelegramID, textEveningNoEvents)
		log.Info("Evening checkup started", zap.Int("events", 0))
		return nil
	}

	dialogCtx := &models.DialogContext{PendingEvents: pending}
	if err := b.setState(ctx, user, models.StateAwaitingEventRating, dialogCtx); err != nil {
		log.Error("Failed to stamp evening checkup", zap.Error(err))
		return err
	}

	firstID, firstTitle := nextPendingEvent(pending)
	b.sendMessageWithKeyboard(user.TelegramID, eveningFirstEventQuestion(firstTitle), vibeKeyboard(firstID))
	log.Info("Evening checkup started", zap.Int("events", len(pending)))
	return nil
}

// sentToday reports whether the stamp falls on the current UTC date. Checkups
// go out at most once per UTC day regardless of how often a sweep fires.
func sentToday(stamp *time.Time) bool {
	if stamp == nil {
		return false
	}
	now := time.Now().UTC()
	y1, m1, d1 := stamp.UTC().Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// HandleAuthCallback finishes the Google OAuth dance for the user identified
// by the state parameter and notifies them in the chat.
func (b *Bot) HandleAuthCallback(ctx context.Context, telegramID int64, code string) error {
	unlock := b.locks.lock(telegramID)
	defer unlock()

	log := b.logger.With(zap.Int64("telegram_id", telegramID))

	user, err := b.storage.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		log.Error("Failed to load user for auth callback", zap.Error(err))
		return err
	}

	token, err := b.calendar.Exchange(ctx, code)
	if err != nil {
		log.Error("Failed to exchange auth code", zap.Error(err))
		return err
	}

	user.GoogleRefreshToken = token
	if err := b.storage.UpdateUser(ctx, user); err != nil {
		log.Error("Failed to save refresh token", zap.Error(err))
		return err
	}

	b.sendMessageWithKeyboard(telegramID, textCalendarConnected, postAuthKeyboard())
	log.Info("Google Calendar connected")
	return nil
}

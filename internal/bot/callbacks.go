package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/llm"
	"github.com/xaenox/vibes-bot/internal/models"
)

// handleCallback routes an inline-button press by its payload prefix. Most
// payloads are only meaningful in a specific state; mismatches answer
// "button expired" without touching the user record.
func (b *Bot) handleCallback(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Data == "" {
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	chatID := query.Message.Chat.ID
	data := query.Data
	log.Info("Handling callback", zap.String("data", data))

	// Remove the buttons from the pressed message, except for the
	// event-rating flow which edits the same message in place.
	if !strings.HasPrefix(data, prefixRateEvent) {
		b.clearKeyboard(chatID, query.Message.MessageID)
	}

	switch {
	case data == cbOnboardingStart:
		b.handleOnboardingStart(ctx, log, user, query)
	case data == cbCalendarConnect:
		b.answerCallback(query.ID, "")
		b.handleConnectCalendarCommand(ctx, log, user, chatID)
	case data == cbCalendarSkip:
		b.handleCalendarSkip(ctx, log, user, query)
	case strings.HasPrefix(data, prefixEnergyRating):
		b.handleEnergyRating(ctx, log, user, query)
	case data == cbPlanAccept:
		b.handlePlanAccept(ctx, log, user, query)
	case data == cbPlanEdit:
		b.answerCallback(query.ID, "")
		b.handlePlanEdit(ctx, log, user, chatID)
	case strings.HasPrefix(data, prefixRateEvent):
		b.handleEventRating(ctx, log, user, query)
	case data == cbDialogCancel:
		b.handleDialogCancel(ctx, log, user, query)
	case data == cbCommandPlan:
		b.answerCallback(query.ID, "")
		b.handlePlanCommand(ctx, log, user, chatID)
	case data == cbCommandCheckCalendar:
		b.answerCallback(query.ID, "")
		b.handleCheckCalendarCommand(ctx, log, user, chatID)
	default:
		b.answerCallback(query.ID, textButtonExpired)
	}
}

func (b *Bot) handleOnboardingStart(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	if user.State != models.StateOnboardingAwaitingStart {
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	if err := b.setState(ctx, user, models.StateOnboardingAwaitingTimezone, nil); err != nil {
		log.Error("Failed to advance onboarding", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(query.Message.Chat.ID, textApology)
		return
	}

	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID, textAskTimezone)
}

func (b *Bot) handleCalendarSkip(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	user.IsOnboardingCompleted = true
	// Park the user in the retro-data state: the finalization message
	// invites sleep/activity notes for instant insights.
	if err := b.setState(ctx, user, models.StateAwaitingRetroData, nil); err != nil {
		log.Error("Failed to finalize onboarding", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(query.Message.Chat.ID, textApology)
		return
	}

	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID, textOnboardingDone)
}

func (b *Bot) handleEnergyRating(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	if user.State != models.StateAwaitingMorningEnergy {
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	// The raw button label suffix is stored as-is ("low" ... "very_high").
	rating := strings.TrimPrefix(query.Data, prefixEnergyRating)
	log.Info("User rated energy", zap.String("rating", rating))

	dialogCtx := &models.DialogContext{EnergyRating: rating}
	if err := b.setState(ctx, user, models.StateAwaitingMorningSleepHours, dialogCtx); err != nil {
		log.Error("Failed to save energy rating", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(query.Message.Chat.ID, textApology)
		return
	}

	b.answerCallback(query.ID, fmt.Sprintf("Принято: %s", rating))
	b.sendMessage(query.Message.Chat.ID, textAskSleepHours)
}

func (b *Bot) handlePlanAccept(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	planText := query.Message.Text
	if strings.TrimSpace(planText) == "" {
		log.Warn("Plan accept pressed on a message without text")
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	now := time.Now().UTC()
	plan := &models.DailyPlan{
		UserID:   user.ID,
		PlanDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		PlanText: planText,
	}
	if err := b.storage.CreateDailyPlan(ctx, plan); err != nil {
		log.Error("Failed to save daily plan", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(chatID, textApology)
		return
	}
	log.Info("Saved accepted plan", zap.Int64("plan_id", plan.ID))

	b.answerCallback(query.ID, "")

	if !user.CalendarConnected() {
		b.sendMessage(chatID, textPlanAccepted)
		return
	}

	// Best effort: mirror the first concrete event of the plan into the
	// calendar. The plan itself is already saved.
	link := b.mirrorFirstEvent(ctx, log, user, planText)
	if link == "" {
		b.sendMessage(chatID, textPlanAccepted)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("%s\n\nПервое событие уже в календаре: %s", textPlanAccepted, link))
}

// mirrorFirstEvent extracts the first timed event from an accepted plan and
// creates it in the user's calendar, returning the event link or "".
func (b *Bot) mirrorFirstEvent(ctx context.Context, log *zap.Logger, user *models.User, planText string) string {
	extracted, err := b.llm.ExtractFirstEvent(ctx, planText, user.Timezone)
	if err != nil {
		if !errors.Is(err, llm.ErrNotUseful) {
			log.Error("Failed to extract event from plan", zap.Error(err))
		}
		return ""
	}
	if !extracted.Found || extracted.Start == nil {
		return ""
	}

	end := extracted.Start.Add(time.Hour)
	if extracted.End != nil {
		end = *extracted.End
	}

	event, err := b.calendar.CreateEvent(ctx, user.GoogleRefreshToken, extracted.Title, *extracted.Start, end)
	if err != nil {
		log.Error("Failed to create calendar event", zap.Error(err), zap.String("title", extracted.Title))
		return ""
	}

	log.Info("Mirrored plan event to calendar", zap.String("event_id", event.ID))
	return event.Link
}

func (b *Bot) handlePlanEdit(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if err := b.setState(ctx, user, models.StateAwaitingScheduleInput, nil); err != nil {
		log.Error("Failed to reopen plan dialog", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessage(chatID, textPlanEdit)
}

func (b *Bot) handleEventRating(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	if user.State != models.StateAwaitingEventRating {
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	eventID, vibe, err := parseRateEventPayload(query.Data)
	if err != nil {
		log.Warn("Malformed rate-event payload", zap.Error(err), zap.String("data", query.Data))
		b.answerCallback(query.ID, textButtonExpired)
		return
	}

	chatID := query.Message.Chat.ID
	pending := map[string]string{}
	if user.Context != nil && user.Context.PendingEvents != nil {
		pending = user.Context.PendingEvents
	}

	title, ok := pending[eventID]
	if !ok {
		title = "Неизвестное событие"
	}

	rating := &models.EventRating{
		UserID:        user.ID,
		GoogleEventID: eventID,
		EventTitle:    title,
		Vibe:          vibe,
		RatedAt:       time.Now().UTC(),
	}
	if err := b.storage.CreateEventRating(ctx, rating); err != nil {
		log.Error("Failed to save event rating", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(chatID, textApology)
		return
	}

	delete(pending, eventID)

	if len(pending) == 0 {
		// All events rated, the dialog ends.
		if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
			log.Error("Failed to finish evening checkup", zap.Error(err))
			b.answerCallback(query.ID, "")
			b.sendErrorMessage(chatID, textApology)
			return
		}
		b.answerCallback(query.ID, "")
		b.editMessageText(chatID, query.Message.MessageID, textEveningDone, nil)
		return
	}

	dialogCtx := &models.DialogContext{PendingEvents: pending}
	if err := b.setState(ctx, user, models.StateAwaitingEventRating, dialogCtx); err != nil {
		log.Error("Failed to save remaining events", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(chatID, textApology)
		return
	}

	nextID, nextTitle := nextPendingEvent(pending)
	keyboard := vibeKeyboard(nextID)
	b.answerCallback(query.ID, "")
	// Edit the same message instead of spamming the chat.
	b.editMessageText(chatID, query.Message.MessageID, eveningNextEventQuestion(nextTitle), &keyboard)
}

func (b *Bot) handleDialogCancel(ctx context.Context, log *zap.Logger, user *models.User, query *tgbotapi.CallbackQuery) {
	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to cancel dialog", zap.Error(err))
		b.answerCallback(query.ID, "")
		b.sendErrorMessage(query.Message.Chat.ID, textApology)
		return
	}
	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID, textCancelled)
}

// parseRateEventPayload splits "rate_event_{id}_{vibe}". Event ids may
// contain underscores (recurring-event instances do), the vibe label never
// does, so the split happens at the last underscore.
func parseRateEventPayload(data string) (string, models.Vibe, error) {
	rest := strings.TrimPrefix(data, prefixRateEvent)
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", "", fmt.Errorf("malformed payload %q", data)
	}

	vibe, err := models.ParseVibe(rest[i+1:])
	if err != nil {
		return "", "", err
	}
	return rest[:i], vibe, nil
}

// nextPendingEvent picks the next event to ask about deterministically.
func nextPendingEvent(pending map[string]string) (string, string) {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], pending[ids[0]]
}

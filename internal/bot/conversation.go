package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/llm"
	"github.com/xaenox/vibes-bot/internal/models"
)

// handleConversation dispatches free text through the per-state handler, or
// to intent classification when no dialog is active.
func (b *Bot) handleConversation(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	switch user.State {
	case models.StateOnboardingAwaitingTimezone:
		b.handleTimezoneAnswer(ctx, log, user, chatID, text)
	case models.StateAwaitingRetroData:
		b.handleRetroData(ctx, log, user, chatID, text)
	case models.StateAwaitingMorningSleepHours:
		b.handleSleepHoursAnswer(ctx, log, user, chatID, text)
	case models.StateAwaitingMorningPlans:
		b.handleMorningPlansAnswer(ctx, log, user, chatID, text)
	case models.StateAwaitingScheduleInput:
		b.handleScheduleText(ctx, log, user, chatID, text)
	case models.StateAwaitingEveningEnergy:
		b.handleEveningReflection(ctx, log, user, chatID, text)
	case models.StateOnboardingAwaitingStart, models.StateAwaitingMorningEnergy, models.StateAwaitingEventRating:
		// These states expect a button press, not text.
		b.sendMessage(chatID, textUseButtons)
	default:
		b.handleFreeIntent(ctx, log, user, chatID, text)
	}
}

func (b *Bot) handleTimezoneAnswer(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	timezone, err := b.llm.ResolveTimezone(ctx, text)
	if errors.Is(err, llm.ErrNotUseful) {
		// Stay in the same state so the user can try again.
		b.sendMessage(chatID, textTimezoneRetry)
		return
	}
	if err != nil {
		log.Error("Failed to resolve timezone", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	log.Info("Resolved timezone", zap.String("timezone", timezone))

	user.Timezone = timezone
	user.IsOnboardingCompleted = true
	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to complete onboarding", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	b.sendMessageWithKeyboard(chatID, textCalendarOffer, calendarOfferKeyboard())
}

func (b *Bot) handleRetroData(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	insight, err := b.llm.GenerateRetroInsight(ctx, text)
	if errors.Is(err, llm.ErrNotUseful) {
		b.sendMessage(chatID, textRetroRetry)
		return
	}
	if err != nil {
		log.Error("Failed to generate retro insight", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to finish retro dialog", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessage(chatID, insight)
}

func (b *Bot) handleSleepHoursAnswer(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	dialogCtx := user.Context
	if dialogCtx == nil {
		dialogCtx = &models.DialogContext{}
	}
	dialogCtx.SleepHours = text

	if err := b.setState(ctx, user, models.StateAwaitingMorningPlans, dialogCtx); err != nil {
		log.Error("Failed to save sleep hours", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessage(chatID, textAskMorningPlans)
}

func (b *Bot) handleMorningPlansAnswer(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	dialogCtx := user.Context
	if dialogCtx == nil {
		dialogCtx = &models.DialogContext{}
	}

	events, err := b.calendar.UpcomingEvents(ctx, user.GoogleRefreshToken, 5)
	if err != nil {
		log.Error("Failed to fetch calendar events for morning plan", zap.Error(err))
		events = nil
	}

	plan, err := b.llm.GenerateMorningPlan(ctx, dialogCtx.EnergyRating, dialogCtx.SleepHours, text, events)
	if errors.Is(err, llm.ErrNotUseful) {
		// State and context stay untouched, the user can resubmit.
		b.sendMessage(chatID, textNoTasksRetry)
		return
	}
	if err != nil {
		log.Error("Failed to generate morning plan", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to finish morning checkup", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	keyboard := planKeyboard()
	b.sendFormatted(chatID, plan, &keyboard)
}

func (b *Bot) handleScheduleText(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	b.sendMessage(chatID, textPlanWorking)

	events, err := b.calendar.UpcomingEvents(ctx, user.GoogleRefreshToken, 10)
	if err != nil {
		log.Error("Failed to fetch calendar events for plan", zap.Error(err))
		events = nil
	}

	recentPlans, err := b.storage.RecentDailyPlans(ctx, user.ID, 5)
	if err != nil {
		log.Error("Failed to load recent plans", zap.Error(err))
	}
	recentRatings, err := b.storage.RecentEventRatings(ctx, user.ID, 10)
	if err != nil {
		log.Error("Failed to load recent event ratings", zap.Error(err))
	}

	plan, err := b.llm.GeneratePlanFromText(ctx, text, events, recentPlans, recentRatings)
	if errors.Is(err, llm.ErrNotUseful) {
		b.sendMessage(chatID, textNoTasksRetry)
		return
	}
	if err != nil {
		log.Error("Failed to generate plan from text", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to finish plan dialog", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	keyboard := planKeyboard()
	b.sendFormatted(chatID, plan, &keyboard)
}

func (b *Bot) handleEveningReflection(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	// Single-shot: whatever the model makes of the answer, the dialog ends.
	reply, err := b.llm.GenerateRetroInsight(ctx, text)
	if err != nil {
		if !errors.Is(err, llm.ErrNotUseful) {
			log.Error("Failed to generate evening insight", zap.Error(err))
		}
		reply = textEveningThanks
	}

	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to finish evening checkup", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessage(chatID, reply)
}

func (b *Bot) handlePhoto(ctx context.Context, log *zap.Logger, user *models.User, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if user.State != models.StateAwaitingScheduleInput {
		b.sendMessage(chatID, textPhotoRedirect)
		return
	}

	b.sendMessage(chatID, textPhotoWorking)

	// The last photo size is the largest one.
	fileID := message.Photo[len(message.Photo)-1].FileID
	image, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Error("Failed to download photo", zap.Error(err), zap.String("file_id", fileID))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	recognized, err := b.llm.RecognizeSchedule(ctx, image)
	if errors.Is(err, llm.ErrNotUseful) {
		b.sendMessage(chatID, textPhotoNoSchedule)
		return
	}
	if err != nil {
		log.Error("Failed to recognize schedule photo", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	// Recognition only proposes text, the user confirms by sending it back.
	// The state stays AwaitingScheduleInput.
	b.sendMessage(chatID, recognizedScheduleText(recognized))
}

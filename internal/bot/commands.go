package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/llm"
	"github.com/xaenox/vibes-bot/internal/models"
)

// parseCommand extracts the command token from a message. Commands are
// recognized regardless of the current conversation state.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	command := strings.Fields(text)[0]
	// Strip the bot-name suffix of group-style commands ("/plan@VibesBot").
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}
	return command, true
}

// handleCommand routes a command token to its canonical handler. Any
// in-progress dialog is abandoned: the state moves to the command's entry
// state and the old context is explicitly cleared.
func (b *Bot) handleCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, command string) {
	log.Info("Handling command", zap.String("command", command))

	switch command {
	case "/start":
		b.handleStartCommand(ctx, log, user, chatID)
	case "/plan":
		b.handlePlanCommand(ctx, log, user, chatID)
	case "/energy":
		b.handleEnergyCommand(ctx, log, user, chatID)
	case "/connect_calendar":
		b.handleConnectCalendarCommand(ctx, log, user, chatID)
	case "/check_calendar":
		b.handleCheckCalendarCommand(ctx, log, user, chatID)
	case "/about":
		b.handleAboutCommand(ctx, log, user, chatID)
	default:
		b.sendMessage(chatID, textHelp)
	}
}

func (b *Bot) handleStartCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if user.IsOnboardingCompleted {
		if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
			log.Error("Failed to reset state", zap.Error(err))
			b.sendErrorMessage(chatID, textApology)
			return
		}
		b.sendMessage(chatID, textWelcomeBack)
		return
	}

	if err := b.setState(ctx, user, models.StateOnboardingAwaitingStart, nil); err != nil {
		log.Error("Failed to start onboarding", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessageWithKeyboard(chatID, welcomeText(user.FirstName), onboardingStartKeyboard())
}

func (b *Bot) handlePlanCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if err := b.setState(ctx, user, models.StateAwaitingScheduleInput, nil); err != nil {
		log.Error("Failed to enter plan dialog", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessage(chatID, textAskSchedule)
}

func (b *Bot) handleEnergyCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if err := b.setState(ctx, user, models.StateAwaitingMorningEnergy, nil); err != nil {
		log.Error("Failed to enter energy dialog", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}
	b.sendMessageWithKeyboard(chatID, textEnergyPrompt, energyKeyboard())
}

func (b *Bot) handleConnectCalendarCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	// Asking for the calendar mid-onboarding finishes the onboarding: the
	// remaining steps are optional anyway.
	user.IsOnboardingCompleted = true
	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to save user before calendar connect", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	url := b.calendar.AuthURL(user.TelegramID)
	b.sendMessageWithKeyboard(chatID, textConnectCalendar, authURLKeyboard(url))
}

func (b *Bot) handleCheckCalendarCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to reset state", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	if !user.CalendarConnected() {
		b.sendMessage(chatID, textCalendarNotConnected)
		return
	}

	b.sendMessage(chatID, textCalendarChecking)

	events, err := b.calendar.UpcomingEvents(ctx, user.GoogleRefreshToken, 10)
	if err != nil {
		log.Error("Failed to list calendar events", zap.Error(err))
		b.sendMessage(chatID, textCalendarError)
		return
	}
	if len(events) == 0 {
		b.sendMessage(chatID, textCalendarEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString("Вот твои ближайшие события:\n\n")
	for _, event := range events {
		sb.WriteString(fmt.Sprintf("🗓️ *%s*\n", event.Summary))
		if event.AllDay {
			sb.WriteString(fmt.Sprintf("   - Начало: `%s` (весь день)\n\n", event.Start.Format("02.01.2006")))
		} else {
			sb.WriteString(fmt.Sprintf("   - Начало: `%s`\n\n", event.Start.Format("02.01.2006 15:04")))
		}
	}
	b.sendFormatted(chatID, sb.String(), nil)
}

func (b *Bot) handleAboutCommand(ctx context.Context, log *zap.Logger, user *models.User, chatID int64) {
	if err := b.setState(ctx, user, models.StateNone, nil); err != nil {
		log.Error("Failed to reset state", zap.Error(err))
	}
	b.sendMessage(chatID, textAbout)
}

// handleFreeIntent classifies a free-text message that arrived outside of
// any dialog and starts the matching flow.
func (b *Bot) handleFreeIntent(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	intent, err := b.llm.ClassifyIntent(ctx, text)
	if err != nil && !errors.Is(err, llm.ErrNotUseful) {
		log.Error("Failed to classify intent", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	log.Info("Classified free-text intent", zap.String("intent", string(intent)))

	switch intent {
	case models.IntentPlan:
		b.handlePlanCommand(ctx, log, user, chatID)
	case models.IntentSetEnergy:
		b.handleEnergyCommand(ctx, log, user, chatID)
	case models.IntentCheckCalendar:
		b.handleCheckCalendarCommand(ctx, log, user, chatID)
	case models.IntentActivateCalendar:
		b.handleConnectCalendarCommand(ctx, log, user, chatID)
	case models.IntentAbout:
		b.handleAboutCommand(ctx, log, user, chatID)
	case models.IntentGeneralChat:
		reply, err := b.llm.GeneralChatReply(ctx, text)
		if err != nil {
			if !errors.Is(err, llm.ErrNotUseful) {
				log.Error("Failed to generate chat reply", zap.Error(err))
			}
			reply = textGeneralChatFallback
		}
		b.sendMessage(chatID, reply)
	default:
		b.sendMessage(chatID, textHelp)
	}
}

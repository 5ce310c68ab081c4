package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/vibes-bot/internal/calendar"
	"github.com/xaenox/vibes-bot/internal/models"
)

// TelegramAPI is the slice of the Telegram client the orchestrator needs.
// *tgbotapi.BotAPI satisfies it.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// LLM is the language-model gateway consumed by the orchestrator.
// *llm.Client satisfies it.
type LLM interface {
	ClassifyIntent(ctx context.Context, text string) (models.Intent, error)
	GenerateMorningPlan(ctx context.Context, energy, sleep, tasks string, events []calendar.Event) (string, error)
	GeneratePlanFromText(ctx context.Context, text string, events []calendar.Event, recentPlans []models.DailyPlan, recentRatings []models.EventRating) (string, error)
	GenerateRetroInsight(ctx context.Context, text string) (string, error)
	GeneralChatReply(ctx context.Context, text string) (string, error)
	ResolveTimezone(ctx context.Context, text string) (string, error)
	ExtractFirstEvent(ctx context.Context, planText, timezone string) (models.ExtractedEvent, error)
	RecognizeSchedule(ctx context.Context, image []byte) (string, error)
	TranscribeAudio(ctx context.Context, audio []byte, filename string) (string, error)
}

// Calendar is the calendar gateway consumed by the orchestrator.
// *calendar.Service satisfies it.
type Calendar interface {
	AuthURL(telegramID int64) string
	Exchange(ctx context.Context, code string) (string, error)
	UpcomingEvents(ctx context.Context, refreshToken string, max int64) ([]calendar.Event, error)
	EventsForDate(ctx context.Context, refreshToken string, date time.Time) ([]calendar.Event, error)
	CreateEvent(ctx context.Context, refreshToken, title string, start, end time.Time) (*calendar.Event, error)
}

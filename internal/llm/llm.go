// Package llm is the language-model gateway: intent classification, plan and
// insight generation, schedule recognition from photos, and audio
// transcription, all through the OpenAI API.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/calendar"
	"github.com/xaenox/vibes-bot/internal/models"
)

// ErrNotUseful reports that the model answered but flagged the input as not
// usable (no tasks in the message, unreadable photo, unresolvable timezone).
// Callers translate it into a corrective prompt and keep the dialog state so
// the user can retry.
var ErrNotUseful = errors.New("llm: response not useful")

// errorSentinel is the marker the prompts ask the model to emit for
// not-useful input. It never reaches the user.
const errorSentinel = "[ERROR]"

type Config struct {
	APIKey             string
	Model              string
	VisionModel        string
	TranscriptionModel string
	MaxTokens          int
	Temperature        float64
}

type Client struct {
	client             *openai.Client
	model              string
	visionModel        string
	transcriptionModel string
	maxTokens          int
	temperature        float32
	logger             *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		client:             openai.NewClient(cfg.APIKey),
		model:              cfg.Model,
		visionModel:        cfg.VisionModel,
		transcriptionModel: cfg.TranscriptionModel,
		maxTokens:          cfg.MaxTokens,
		temperature:        float32(cfg.Temperature),
		logger:             logger,
	}
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if strings.HasPrefix(answer, errorSentinel) {
		c.logger.Warn("Model flagged input as not useful",
			zap.String("reason", strings.TrimSpace(strings.TrimPrefix(answer, errorSentinel))))
		return "", ErrNotUseful
	}
	return answer, nil
}

// ClassifyIntent decides what a free-text message outside of any dialog is
// asking for.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (models.Intent, error) {
	prompt := fmt.Sprintf(`Классифицируй намерение пользователя чат-бота для планирования дня и энергии.
Ответь ровно одним словом из списка:
plan - хочет составить или изменить план дня
set_energy - хочет зафиксировать уровень энергии
check_calendar - хочет посмотреть события календаря
activate_calendar - хочет подключить календарь
about - спрашивает, что умеет бот
general_chat - просто беседует
unknown - намерение не определить

Сообщение: %s`, text)

	answer, err := c.complete(ctx, prompt)
	if err != nil {
		return models.IntentUnknown, err
	}
	return parseIntent(answer), nil
}

func parseIntent(answer string) models.Intent {
	switch models.Intent(strings.ToLower(strings.TrimSpace(answer))) {
	case models.IntentPlan:
		return models.IntentPlan
	case models.IntentSetEnergy:
		return models.IntentSetEnergy
	case models.IntentCheckCalendar:
		return models.IntentCheckCalendar
	case models.IntentActivateCalendar:
		return models.IntentActivateCalendar
	case models.IntentAbout:
		return models.IntentAbout
	case models.IntentGeneralChat:
		return models.IntentGeneralChat
	}
	return models.IntentUnknown
}

// GenerateMorningPlan builds a day plan from the morning checkup answers and
// the user's upcoming calendar events. The energy rating is the raw button
// label, the prompt interpolates it verbatim.
func (c *Client) GenerateMorningPlan(ctx context.Context, energy, sleep, tasks string, events []calendar.Event) (string, error) {
	prompt := fmt.Sprintf(`Ты — ассистент по планированию дня с учетом энергии.
Уровень энергии пользователя: %s. Сон: %s часов.
Задачи на сегодня: %s
События календаря:
%s
Составь короткий план дня (до 10 строк), распределив задачи с учетом энергии и событий.
Если в сообщении нет ни одной конкретной задачи, ответь строго: %s нет задач`,
		energy, sleep, tasks, formatEvents(events), errorSentinel)

	return c.complete(ctx, prompt)
}

// GeneratePlanFromText builds a structured plan from a free-form schedule,
// grounded in calendar events and the user's recent plans and event ratings.
func (c *Client) GeneratePlanFromText(ctx context.Context, text string, events []calendar.Event, recentPlans []models.DailyPlan, recentRatings []models.EventRating) (string, error) {
	var memory strings.Builder
	for _, plan := range recentPlans {
		fmt.Fprintf(&memory, "План от %s: %s\n", plan.PlanDate.Format("2006-01-02"), plan.PlanText)
	}
	for _, rating := range recentRatings {
		fmt.Fprintf(&memory, "Событие %q: %s\n", rating.EventTitle, rating.Vibe)
	}
	if memory.Len() == 0 {
		memory.WriteString("нет данных")
	}

	prompt := fmt.Sprintf(`Ты — ассистент по планированию дня с учетом энергии.
Пользователь прислал задачи или расписание: %s
События календаря:
%s
Недавние планы и оценки событий пользователя:
%s
Составь структурированный план дня (до 10 строк). Учитывай, какие события заряжают, а какие утомляют.
Если в сообщении нет ни одной конкретной задачи, ответь строго: %s нет задач`,
		text, formatEvents(events), memory.String(), errorSentinel)

	return c.complete(ctx, prompt)
}

// GenerateRetroInsight turns free-form sleep/activity notes into a short
// insight message.
func (c *Client) GenerateRetroInsight(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Пользователь описал свой сон и активность за последние дни: %s
Сделай 2-3 коротких наблюдения о его энергии и один практический совет.
Если в тексте нет данных о сне или активности, ответь строго: %s нет данных`,
		text, errorSentinel)

	return c.complete(ctx, prompt)
}

// GeneralChatReply answers small talk while steering back to planning.
func (c *Client) GeneralChatReply(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Ты — дружелюбный ассистент по планированию дня и энергии.
Пользователь написал: %s
Ответь коротко (1-2 предложения) и мягко предложи вернуться к планированию дня.`, text)

	return c.complete(ctx, prompt)
}

// ResolveTimezone maps a free-form city or UTC-offset answer to an IANA
// timezone identifier.
func (c *Client) ResolveTimezone(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Пользователь указал свой город или часовой пояс: %s
Ответь ровно одним идентификатором таймзоны IANA (например Europe/Moscow).
Если определить таймзону невозможно, ответь строго: %s не определено`, text, errorSentinel)

	answer, err := c.complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	tz := strings.TrimSpace(answer)
	if _, err := time.LoadLocation(tz); err != nil {
		c.logger.Warn("Model returned an invalid timezone", zap.String("timezone", tz))
		return "", ErrNotUseful
	}
	return tz, nil
}

// ExtractFirstEvent pulls the first concrete event out of an accepted plan
// text so it can be mirrored into the calendar.
func (c *Client) ExtractFirstEvent(ctx context.Context, planText, timezone string) (models.ExtractedEvent, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	today := time.Now().UTC().Format("2006-01-02")

	prompt := fmt.Sprintf(`Найди в плане дня первое событие с конкретным временем. Сегодня %s, таймзона пользователя %s.
План: %s
Ответь JSON без пояснений: {"title": "...", "start": "RFC3339 или пусто", "end": "RFC3339 или пусто", "found": true|false}`,
		today, timezone, planText)

	answer, err := c.complete(ctx, prompt)
	if err != nil {
		return models.ExtractedEvent{}, err
	}
	return parseExtractedEvent(answer)
}

// RecognizeSchedule reads a schedule photo into plain text via the vision
// model.
func (c *Client) RecognizeSchedule(ctx context.Context, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: fmt.Sprintf(`На фото должно быть расписание или список дел. Перепиши его текстом, по пункту на строку.
Если на фото нет расписания, ответь строго: %s нерелевантное изображение`, errorSentinel),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("vision completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if strings.HasPrefix(answer, errorSentinel) {
		return "", ErrNotUseful
	}
	return answer, nil
}

// TranscribeAudio converts a voice or video-note file to text.
func (c *Client) TranscribeAudio(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNotUseful
	}
	return text, nil
}

func formatEvents(events []calendar.Event) string {
	if len(events) == 0 {
		return "нет событий"
	}
	var b strings.Builder
	for _, e := range events {
		if e.AllDay {
			fmt.Fprintf(&b, "- %s (весь день)\n", e.Summary)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s - %s)\n", e.Summary, e.Start.Format("15:04"), e.End.Format("15:04"))
	}
	return b.String()
}

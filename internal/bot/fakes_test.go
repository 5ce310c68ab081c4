package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/calendar"
	"github.com/xaenox/vibes-bot/internal/models"
	"github.com/xaenox/vibes-bot/internal/storage"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	fileURL  string
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL, nil
}

// sentTexts returns the text of every plain message sent so far.
func (f *fakeTelegram) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (f *fakeTelegram) lastText() string {
	texts := f.sentTexts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// lastEdit returns the most recent message edit, if any.
func (f *fakeTelegram) lastEdit() (tgbotapi.EditMessageTextConfig, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if edit, ok := f.sent[i].(tgbotapi.EditMessageTextConfig); ok {
			return edit, true
		}
	}
	return tgbotapi.EditMessageTextConfig{}, false
}

type fakeLLM struct {
	classifyIntent    func(text string) (models.Intent, error)
	morningPlan       func(energy, sleep, tasks string) (string, error)
	planFromText      func(text string) (string, error)
	retroInsight      func(text string) (string, error)
	generalChat       func(text string) (string, error)
	resolveTimezone   func(text string) (string, error)
	extractFirstEvent func(planText string) (models.ExtractedEvent, error)
	recognizeSchedule func(image []byte) (string, error)
	transcribeAudio   func(audio []byte) (string, error)
}

func (f *fakeLLM) ClassifyIntent(_ context.Context, text string) (models.Intent, error) {
	if f.classifyIntent == nil {
		return models.IntentUnknown, nil
	}
	return f.classifyIntent(text)
}

func (f *fakeLLM) GenerateMorningPlan(_ context.Context, energy, sleep, tasks string, _ []calendar.Event) (string, error) {
	if f.morningPlan == nil {
		return "морнинг-план", nil
	}
	return f.morningPlan(energy, sleep, tasks)
}

func (f *fakeLLM) GeneratePlanFromText(_ context.Context, text string, _ []calendar.Event, _ []models.DailyPlan, _ []models.EventRating) (string, error) {
	if f.planFromText == nil {
		return "план по тексту", nil
	}
	return f.planFromText(text)
}

func (f *fakeLLM) GenerateRetroInsight(_ context.Context, text string) (string, error) {
	if f.retroInsight == nil {
		return "инсайт", nil
	}
	return f.retroInsight(text)
}

func (f *fakeLLM) GeneralChatReply(_ context.Context, text string) (string, error) {
	if f.generalChat == nil {
		return "ответ", nil
	}
	return f.generalChat(text)
}

func (f *fakeLLM) ResolveTimezone(_ context.Context, text string) (string, error) {
	if f.resolveTimezone == nil {
		return "Europe/Moscow", nil
	}
	return f.resolveTimezone(text)
}

func (f *fakeLLM) ExtractFirstEvent(_ context.Context, planText, _ string) (models.ExtractedEvent, error) {
	if f.extractFirstEvent == nil {
		return models.ExtractedEvent{}, nil
	}
	return f.extractFirstEvent(planText)
}

func (f *fakeLLM) RecognizeSchedule(_ context.Context, image []byte) (string, error) {
	if f.recognizeSchedule == nil {
		return "распознанное расписание", nil
	}
	return f.recognizeSchedule(image)
}

func (f *fakeLLM) TranscribeAudio(_ context.Context, audio []byte, _ string) (string, error) {
	if f.transcribeAudio == nil {
		return "", nil
	}
	return f.transcribeAudio(audio)
}

type fakeCalendar struct {
	authURL       string
	exchangeToken string
	exchangeErr   error
	events        []calendar.Event
	eventsErr     error

	mu      sync.Mutex
	created []calendar.Event
}

func (f *fakeCalendar) AuthURL(telegramID int64) string { return f.authURL }

func (f *fakeCalendar) Exchange(_ context.Context, code string) (string, error) {
	return f.exchangeToken, f.exchangeErr
}

func (f *fakeCalendar) UpcomingEvents(_ context.Context, refreshToken string, max int64) ([]calendar.Event, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return f.events, f.eventsErr
}

func (f *fakeCalendar) EventsForDate(_ context.Context, refreshToken string, _ time.Time) ([]calendar.Event, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return f.events, f.eventsErr
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _, title string, start, end time.Time) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := calendar.Event{
		ID:      "created-1",
		Summary: title,
		Start:   start,
		End:     end,
		Link:    "https://calendar.google.com/event/created-1",
	}
	f.created = append(f.created, event)
	return &event, nil
}

type testEnv struct {
	bot      *Bot
	telegram *fakeTelegram
	llm      *fakeLLM
	calendar *fakeCalendar
	storage  *storage.MemoryStorage
}

func newTestEnv() *testEnv {
	telegram := &fakeTelegram{}
	llmClient := &fakeLLM{}
	cal := &fakeCalendar{authURL: "https://accounts.google.com/o/oauth2/auth?state=1"}
	store := storage.NewMemoryStorage()
	return &testEnv{
		bot:      NewWithAPI(telegram, store, llmClient, cal, zap.NewNop()),
		telegram: telegram,
		llm:      llmClient,
		calendar: cal,
		storage:  store,
	}
}

// user seeds a user record and returns a fresh copy from storage.
func (e *testEnv) user(telegramID int64, mutate func(*models.User)) *models.User {
	user, err := e.storage.GetOrCreateUser(context.Background(), storage.NewUser{
		TelegramID: telegramID,
		FirstName:  "Аня",
	})
	if err != nil {
		panic(err)
	}
	if mutate != nil {
		mutate(user)
		if err := e.storage.UpdateUser(context.Background(), user); err != nil {
			panic(err)
		}
	}
	return user
}

func (e *testEnv) storedUser(telegramID int64) *models.User {
	user, err := e.storage.GetUserByTelegramID(context.Background(), telegramID)
	if err != nil {
		panic(err)
	}
	return user
}

func textUpdate(telegramID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 100,
			From:      &tgbotapi.User{ID: telegramID, FirstName: "Аня"},
			Chat:      &tgbotapi.Chat{ID: telegramID},
			Text:      text,
		},
	}
}

func callbackUpdate(telegramID int64, data, messageText string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: telegramID, FirstName: "Аня"},
			Message: &tgbotapi.Message{
				MessageID: 200,
				Chat:      &tgbotapi.Chat{ID: telegramID},
				Text:      messageText,
			},
			Data: data,
		},
	}
}

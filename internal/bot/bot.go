// Package bot holds the conversation orchestrator: the per-user state
// machine that routes inbound Telegram updates through onboarding, morning
// and evening checkups, and plan generation.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/models"
	"github.com/xaenox/vibes-bot/internal/storage"
)

type Bot struct {
	api      TelegramAPI
	storage  storage.Storage
	llm      LLM
	calendar Calendar
	logger   *zap.Logger
	locks    *userLocks
	files    *http.Client
}

func New(token string, store storage.Storage, llmClient LLM, cal Calendar, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewWithAPI(api, store, llmClient, cal, logger), nil
}

// NewWithAPI wires the orchestrator with an explicit Telegram client.
func NewWithAPI(api TelegramAPI, store storage.Storage, llmClient LLM, cal Calendar, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		storage:  store,
		llm:      llmClient,
		calendar: cal,
		logger:   logger,
		locks:    newUserLocks(),
		files:    &http.Client{Timeout: 30 * time.Second},
	}
}

// HandleUpdate processes one inbound update. It never reports an error to
// the transport: every failure is logged and, where a user is known,
// answered with an apology, leaving the dialog state unchanged so the user
// may retry.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	from, chatID := updateOrigin(update)
	if from == nil {
		b.logger.Info("Ignoring update without a sender", zap.Int("update_id", update.UpdateID))
		return
	}

	// Updates from the same user are applied one at a time.
	unlock := b.locks.lock(from.ID)
	defer unlock()

	log := b.logger.With(
		zap.String("trace_id", uuid.NewString()),
		zap.Int64("telegram_id", from.ID))

	user, err := b.storage.GetOrCreateUser(ctx, storage.NewUser{
		TelegramID:   from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	})
	if err != nil {
		log.Error("Failed to load user", zap.Error(err))
		b.sendErrorMessage(chatID, textApology)
		return
	}

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, log, user, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, log, user, update.Message)
	default:
		log.Info("Ignoring unknown update type")
	}
}

func updateOrigin(update tgbotapi.Update) (*tgbotapi.User, int64) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From, update.CallbackQuery.Message.Chat.ID
	case update.Message != nil:
		return update.Message.From, update.Message.Chat.ID
	}
	return nil, 0
}

func (b *Bot) handleMessage(ctx context.Context, log *zap.Logger, user *models.User, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch {
	case message.Text != "":
		b.handleText(ctx, log, user, chatID, message.Text)
	case len(message.Photo) > 0:
		b.handlePhoto(ctx, log, user, message)
	case message.Voice != nil:
		b.handleAudio(ctx, log, user, chatID, message.Voice.FileID, "voice.ogg")
	case message.VideoNote != nil:
		b.handleAudio(ctx, log, user, chatID, message.VideoNote.FileID, "video_note.mp4")
	default:
		b.sendMessage(chatID, textUnknownInput)
	}
}

// handleText is the shared entry for typed text and transcribed audio.
// Commands win over any in-progress dialog.
func (b *Bot) handleText(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, text string) {
	if command, ok := parseCommand(text); ok {
		b.handleCommand(ctx, log, user, chatID, command)
		return
	}
	b.handleConversation(ctx, log, user, chatID, text)
}

// handleAudio transcribes a voice or video-note message and feeds the text
// into the regular dispatch path.
func (b *Bot) handleAudio(ctx context.Context, log *zap.Logger, user *models.User, chatID int64, fileID, filename string) {
	audio, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.Error("Failed to download audio", zap.Error(err), zap.String("file_id", fileID))
		b.sendErrorMessage(chatID, textTranscribeFailed)
		return
	}

	text, err := b.llm.TranscribeAudio(ctx, audio, filename)
	if err != nil {
		log.Error("Failed to transcribe audio", zap.Error(err))
		b.sendErrorMessage(chatID, textTranscribeFailed)
		return
	}

	log.Info("Transcribed audio message", zap.Int("chars", len(text)))
	b.handleText(ctx, log, user, chatID, text)
}

// setState persists a state transition. Returning to StateNone always drops
// the dialog context, stale context must never leak into the next dialog.
func (b *Bot) setState(ctx context.Context, user *models.User, state models.ConversationState, dialogCtx *models.DialogContext) error {
	if state == models.StateNone {
		dialogCtx = nil
	}
	user.State = state
	user.Context = dialogCtx
	return b.storage.UpdateUser(ctx, user)
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// sendFormatted tries Markdown first and falls back to plain text when
// Telegram rejects the markup, so an odd character in an LLM-generated plan
// cannot lose the whole message.
func (b *Bot) sendFormatted(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err == nil {
		return
	} else {
		b.logger.Warn("Markdown send failed, retrying as plain text",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	msg.ParseMode = ""
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) editMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID))
	}
}

// clearKeyboard removes inline buttons from a message so they cannot be
// pressed twice.
func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	markup := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(markup); err != nil {
		b.logger.Warn("Failed to clear keyboard",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}

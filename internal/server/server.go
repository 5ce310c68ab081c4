package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler is the part of the bot the HTTP surface drives.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
	HandleAuthCallback(ctx context.Context, telegramID int64, code string) error
}

// Server exposes the Telegram webhook and the Google OAuth callback.
type Server struct {
	http          *http.Server
	bot           UpdateHandler
	webhookSecret string
	logger        *zap.Logger
}

func New(addr, webhookSecret string, bot UpdateHandler, logger *zap.Logger) *Server {
	s := &Server{
		bot:           bot,
		webhookSecret: webhookSecret,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/bot", s.handleWebhook)
	r.Get("/api/google-auth/callback", s.handleGoogleAuth)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleWebhook accepts Telegram updates. The secret token set at webhook
// registration must match, everything else is dropped before decoding.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" && r.Header.Get(secretTokenHeader) != s.webhookSecret {
		s.logger.Warn("Webhook request with bad secret token", zap.String("remote", r.RemoteAddr))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Warn("Failed to decode update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.bot.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

// handleGoogleAuth finishes the OAuth dance. The state parameter carries the
// Telegram id the auth URL was issued for.
func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	telegramID, err := strconv.ParseInt(state, 10, 64)
	if err != nil {
		http.Error(w, "bad state", http.StatusBadRequest)
		return
	}

	if err := s.bot.HandleAuthCallback(r.Context(), telegramID, code); err != nil {
		s.logger.Error("Auth callback failed", zap.Error(err), zap.Int64("telegram_id", telegramID))
		http.Error(w, "authorization failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(authSuccessPage))
}

const authSuccessPage = `<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Календарь подключен</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>✅ Готово!</h1>
<p>Календарь подключен. Можно возвращаться в Telegram.</p>
</body>
</html>`

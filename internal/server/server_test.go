package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBot struct {
	updates    []tgbotapi.Update
	authCalls  []int64
	authErr    error
	lastAuthCd string
}

func (f *fakeBot) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	f.updates = append(f.updates, update)
}

func (f *fakeBot) HandleAuthCallback(_ context.Context, telegramID int64, code string) error {
	f.authCalls = append(f.authCalls, telegramID)
	f.lastAuthCd = code
	return f.authErr
}

func newTestServer(secret string) (*Server, *fakeBot) {
	bot := &fakeBot{}
	return New(":0", secret, bot, zap.NewNop()), bot
}

const updateJSON = `{"update_id":7,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42},"text":"/start"}}`

func TestWebhookAcceptsValidSecret(t *testing.T) {
	srv, bot := newTestServer("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/bot", strings.NewReader(updateJSON))
	req.Header.Set(secretTokenHeader, "s3cret")
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bot.updates, 1)
	assert.Equal(t, 7, bot.updates[0].UpdateID)
	assert.Equal(t, "/start", bot.updates[0].Message.Text)
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	srv, bot := newTestServer("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/bot", strings.NewReader(updateJSON))
	req.Header.Set(secretTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, bot.updates)
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	srv, bot := newTestServer("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/bot", strings.NewReader(updateJSON))
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, bot.updates)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	srv, bot := newTestServer("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/bot", strings.NewReader("{not json"))
	req.Header.Set(secretTokenHeader, "s3cret")
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bot.updates)
}

func TestGoogleAuthCallback(t *testing.T) {
	srv, bot := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/api/google-auth/callback?code=auth-code&state=42", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "подключен")
	require.Len(t, bot.authCalls, 1)
	assert.Equal(t, int64(42), bot.authCalls[0])
	assert.Equal(t, "auth-code", bot.lastAuthCd)
}

func TestGoogleAuthCallbackMissingParams(t *testing.T) {
	srv, bot := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/api/google-auth/callback?code=auth-code", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bot.authCalls)
}

func TestGoogleAuthCallbackBadState(t *testing.T) {
	srv, bot := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/api/google-auth/callback?code=c&state=not-a-number", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bot.authCalls)
}

func TestGoogleAuthCallbackFailure(t *testing.T) {
	srv, bot := newTestServer("")
	bot.authErr = errors.New("exchange failed")

	req := httptest.NewRequest(http.MethodGet, "/api/google-auth/callback?code=c&state=42", nil)
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer("")

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.http.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

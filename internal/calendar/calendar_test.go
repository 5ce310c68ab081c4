package calendar

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
)

func testService() *Service {
	return NewService(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://example.com/api/google-auth/callback",
	}, zap.NewNop())
}

func TestAuthURLCarriesTelegramID(t *testing.T) {
	url := testService().AuthURL(12345)

	assert.Contains(t, url, "state=12345")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "client-id")
}

func TestUpcomingEventsWithoutToken(t *testing.T) {
	events, err := testService().UpcomingEvents(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestEventsForDateWithoutToken(t *testing.T) {
	events, err := testService().EventsForDate(context.Background(), "", time.Now())
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestConvertEvents(t *testing.T) {
	items := []*gcal.Event{
		{
			Id:      "ev-1",
			Summary: "Стендап",
			Start:   &gcal.EventDateTime{DateTime: "2026-09-01T10:00:00+03:00"},
			End:     &gcal.EventDateTime{DateTime: "2026-09-01T10:15:00+03:00"},
		},
		{
			Id:      "ev-2",
			Summary: "Отпуск",
			Start:   &gcal.EventDateTime{Date: "2026-09-02"},
			End:     &gcal.EventDateTime{Date: "2026-09-03"},
		},
		nil,
		{Id: "ev-3", Summary: "Без времени"},
	}

	events := convertEvents(items)
	require.Len(t, events, 3)

	assert.Equal(t, "ev-1", events[0].ID)
	assert.False(t, events[0].AllDay)
	assert.Equal(t, 15*time.Minute, events[0].End.Sub(events[0].Start))

	assert.Equal(t, "ev-2", events[1].ID)
	assert.True(t, events[1].AllDay)
	assert.Equal(t, 2026, events[1].Start.Year())

	assert.Equal(t, "ev-3", events[2].ID)
	assert.True(t, events[2].Start.IsZero())
}

func TestServiceScopes(t *testing.T) {
	s := testService()
	scopes := strings.Join(s.config.Scopes, " ")
	assert.Contains(t, scopes, "calendar.readonly")
	assert.Contains(t, scopes, "calendar.events")
}

package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/vibes-bot/internal/models"
)

func TestParseIntent(t *testing.T) {
	assert.Equal(t, models.IntentPlan, parseIntent("plan"))
	assert.Equal(t, models.IntentSetEnergy, parseIntent(" Set_Energy \n"))
	assert.Equal(t, models.IntentGeneralChat, parseIntent("general_chat"))
	assert.Equal(t, models.IntentUnknown, parseIntent("make me a sandwich"))
	assert.Equal(t, models.IntentUnknown, parseIntent(""))
}

func TestParseExtractedEvent(t *testing.T) {
	answer := `{"title":"Встреча","start":"2026-09-01T15:00:00+03:00","end":"2026-09-01T16:00:00+03:00","found":true}`

	event, err := parseExtractedEvent(answer)
	require.NoError(t, err)
	assert.True(t, event.Found)
	assert.Equal(t, "Встреча", event.Title)
	require.NotNil(t, event.Start)
	require.NotNil(t, event.End)
	assert.Equal(t, time.Hour, event.End.Sub(*event.Start))
}

func TestParseExtractedEventWithCodeFence(t *testing.T) {
	answer := "```json\n{\"title\":\"Спортзал\",\"start\":\"2026-09-01T19:00:00Z\",\"found\":true}\n```"

	event, err := parseExtractedEvent(answer)
	require.NoError(t, err)
	assert.True(t, event.Found)
	assert.Equal(t, "Спортзал", event.Title)
	require.NotNil(t, event.Start)
	assert.Nil(t, event.End)
}

func TestParseExtractedEventNotFound(t *testing.T) {
	event, err := parseExtractedEvent(`{"found":false}`)
	require.NoError(t, err)
	assert.False(t, event.Found)
}

func TestParseExtractedEventGarbage(t *testing.T) {
	_, err := parseExtractedEvent("в плане нет событий")
	assert.ErrorIs(t, err, ErrNotUseful)
}

func TestParseExtractedEventBadTimestampKeepsTitle(t *testing.T) {
	event, err := parseExtractedEvent(`{"title":"Встреча","start":"в три часа","found":true}`)
	require.NoError(t, err)
	assert.True(t, event.Found)
	assert.Nil(t, event.Start)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}

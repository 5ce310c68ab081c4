package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogContextEmpty(t *testing.T) {
	var nilCtx *DialogContext
	assert.True(t, nilCtx.Empty())
	assert.True(t, (&DialogContext{}).Empty())
	assert.False(t, (&DialogContext{EnergyRating: "high"}).Empty())
	assert.False(t, (&DialogContext{PendingEvents: map[string]string{"ev": "x"}}).Empty())
}

func TestMarshalContextEmptyIsBlank(t *testing.T) {
	raw, err := MarshalContext(nil)
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	restored, err := UnmarshalContext("")
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestContextRoundTrip(t *testing.T) {
	original := &DialogContext{
		EnergyRating:  "medium",
		SleepHours:    "7",
		PendingEvents: map[string]string{"ev-1": "Стендап"},
	}

	raw, err := MarshalContext(original)
	require.NoError(t, err)

	restored, err := UnmarshalContext(raw)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestCalendarConnected(t *testing.T) {
	assert.False(t, (&User{}).CalendarConnected())
	assert.True(t, (&User{GoogleRefreshToken: "token"}).CalendarConnected())
}

func TestParseVibe(t *testing.T) {
	vibe, err := ParseVibe("Energize")
	require.NoError(t, err)
	assert.Equal(t, VibeEnergize, vibe)

	vibe, err = ParseVibe("drain")
	require.NoError(t, err)
	assert.Equal(t, VibeDrain, vibe)

	_, err = ParseVibe("amazing")
	assert.Error(t, err)
}

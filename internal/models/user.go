package models

import (
	"encoding/json"
	"time"
)

// User represents a bot user with their profile and current dialog position.
type User struct {
	ID           int64  `json:"id"`
	TelegramID   int64  `json:"telegram_id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
	Timezone     string `json:"timezone,omitempty"`

	State   ConversationState `json:"state"`
	Context *DialogContext    `json:"context,omitempty"`

	GoogleRefreshToken string `json:"-"`

	IsOnboardingCompleted bool `json:"is_onboarding_completed"`

	LastMorningCheckupAt *time.Time `json:"last_morning_checkup_at,omitempty"`
	LastEveningCheckupAt *time.Time `json:"last_evening_checkup_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CalendarConnected reports whether the user has granted calendar access.
// Presence of a refresh token is the only marker; no separate flag is stored.
func (u *User) CalendarConnected() bool {
	return u.GoogleRefreshToken != ""
}

// DialogContext holds the transient data of the current multi-step dialog.
// It is only meaningful relative to the current State and must be cleared
// whenever the state returns to StateNone or a new dialog begins.
type DialogContext struct {
	EnergyRating string `json:"energy_rating,omitempty"`
	SleepHours   string `json:"sleep_hours,omitempty"`

	// PendingEvents maps calendar event id to the event title, consumed one
	// entry at a time during the evening rating dialog.
	PendingEvents map[string]string `json:"pending_events,omitempty"`
}

// Empty reports whether the context carries no dialog data.
func (c *DialogContext) Empty() bool {
	if c == nil {
		return true
	}
	return c.EnergyRating == "" && c.SleepHours == "" && len(c.PendingEvents) == 0
}

// MarshalContext serializes a dialog context for storage. A nil or empty
// context serializes to the empty string.
func MarshalContext(c *DialogContext) (string, error) {
	if c.Empty() {
		return "", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// UnmarshalContext restores a dialog context from its stored form.
func UnmarshalContext(raw string) (*DialogContext, error) {
	if raw == "" {
		return nil, nil
	}
	var c DialogContext
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

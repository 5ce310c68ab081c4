package models

import (
	"fmt"
	"strings"
	"time"
)

// Vibe is the user's verdict on how a calendar event affected their energy.
type Vibe string

const (
	VibeEnergize Vibe = "energize"
	VibeNeutral  Vibe = "neutral"
	VibeDrain    Vibe = "drain"
)

// ParseVibe recognizes a vibe label case-insensitively, as callback payloads
// carry it capitalized.
func ParseVibe(s string) (Vibe, error) {
	switch Vibe(strings.ToLower(s)) {
	case VibeEnergize:
		return VibeEnergize, nil
	case VibeNeutral:
		return VibeNeutral, nil
	case VibeDrain:
		return VibeDrain, nil
	}
	return "", fmt.Errorf("unknown vibe %q", s)
}

// EventRating records the vibe a user assigned to one calendar event during
// the evening checkup. (UserID, GoogleEventID) is the natural dedup key.
type EventRating struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	GoogleEventID string    `json:"google_event_id"`
	EventTitle    string    `json:"event_title"`
	Vibe          Vibe      `json:"vibe"`
	RatedAt       time.Time `json:"rated_at"`
}

package models

import "time"

// Intent is the classified purpose of a free-text message sent outside of
// any active dialog.
type Intent string

const (
	IntentPlan             Intent = "plan"
	IntentSetEnergy        Intent = "set_energy"
	IntentCheckCalendar    Intent = "check_calendar"
	IntentActivateCalendar Intent = "activate_calendar"
	IntentAbout            Intent = "about"
	IntentGeneralChat      Intent = "general_chat"
	IntentUnknown          Intent = "unknown"
)

// ExtractedEvent is the first concrete event an LLM could pull out of an
// accepted plan text. Found is false when the plan had nothing schedulable.
type ExtractedEvent struct {
	Title string     `json:"title"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Found bool       `json:"found"`
}

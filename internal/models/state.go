package models

// ConversationState is the single source of truth for which input the bot
// expects from a user next. Stored as a string so the database stays readable.
type ConversationState string

const (
	StateNone                       ConversationState = "none"
	StateOnboardingAwaitingStart    ConversationState = "onboarding_awaiting_start"
	StateOnboardingAwaitingTimezone ConversationState = "onboarding_awaiting_timezone"
	StateAwaitingRetroData          ConversationState = "awaiting_retro_data"
	StateAwaitingMorningEnergy      ConversationState = "awaiting_morning_energy_rating"
	StateAwaitingMorningSleepHours  ConversationState = "awaiting_morning_sleep_hours"
	StateAwaitingMorningPlans       ConversationState = "awaiting_morning_plans"
	StateAwaitingScheduleInput      ConversationState = "awaiting_schedule_photo_or_text"
	StateAwaitingEveningEnergy      ConversationState = "awaiting_evening_energy_rating"
	StateAwaitingEventRating        ConversationState = "awaiting_event_rating"
	StateOnboardingCompleted        ConversationState = "onboarding_completed"
)

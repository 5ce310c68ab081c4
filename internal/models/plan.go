package models

import "time"

// DailyPlan is a plan the user explicitly accepted. Insert-only: there is no
// update or delete path for plans.
type DailyPlan struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	PlanDate  time.Time `json:"plan_date"` // calendar date, time part is zero
	PlanText  string    `json:"plan_text"`
	CreatedAt time.Time `json:"created_at"`
}

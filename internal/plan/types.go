package plan

import "time"

// Record is the structured form of one generated study plan.
type Record struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	TotalDays int       `json:"total_days"`
	Goal      string    `json:"goal"`
	Days      []DayPlan `json:"daily_plans"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// DayPlan is a single day of the plan outline.
type DayPlan struct {
	Day       int      `json:"day"`
	Topic     string   `json:"topic"`
	KeyPoints []string `json:"key_points"`
}

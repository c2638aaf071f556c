package models

import "time"

// Vote is a thumbs up/down on one item of one section.
type Vote struct {
	UserID      int64      `json:"user_id"`
	DashboardID string     `json:"dashboard_id"`
	Section     SectionKey `json:"section"`
	Item        string     `json:"item"`
	Value       int        `json:"value"`
	Day         string     `json:"day"`
	CreatedAt   time.Time  `json:"created_at"`
}

package models

import "time"

// DailySnapshot is the per-user, per-day aggregate. At most one exists per
// (UserID, Day); Sections is always written as a whole.
type DailySnapshot struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Day       string    `json:"day"`
	Sections  Sections  `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotEvent is published after snapshot lifecycle changes.
type SnapshotEvent struct {
	Type       string     `json:"type"`
	SnapshotID string     `json:"snapshot_id"`
	UserID     int64      `json:"user_id"`
	Day        string     `json:"day"`
	Section    SectionKey `json:"section,omitempty"`
	Applied    bool       `json:"applied"`
	At         time.Time  `json:"at"`
}

const (
	EventDashboardCreated = "dashboard.created"
	EventSectionRefreshed = "section.refreshed"
)

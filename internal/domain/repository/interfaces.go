package repository

import (
	"context"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

// SnapshotStore persists one DailySnapshot per (user, day).
type SnapshotStore interface {
	// Get returns the most recent snapshot for the key, or nil when none exists.
	Get(ctx context.Context, userID int64, day string) (*models.DailySnapshot, error)
	// Create inserts a new snapshot. A concurrent winner yields models.ErrAlreadyExists.
	Create(ctx context.Context, userID int64, day string, sections models.Sections) (string, error)
	// ReplaceSections atomically overwrites the whole sections mapping.
	ReplaceSections(ctx context.Context, userID int64, day string, sections models.Sections) error
}

type PreferencesStore interface {
	GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error)
	// SavePreferences returns models.ErrPreferencesExist when the user already onboarded.
	SavePreferences(ctx context.Context, prefs *models.UserPreferences) error
}

type VoteStore interface {
	SaveVote(ctx context.Context, v *models.Vote) error
	ListVotes(ctx context.Context, userID int64, day, dashboardID string) ([]models.Vote, error)
}

// EventPublisher emits snapshot lifecycle events. Implementations are best effort.
type EventPublisher interface {
	PublishSnapshotEvent(ctx context.Context, ev *models.SnapshotEvent) error
	Close() error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordSection(section, source, outcome string)
	RecordPriceCache(result string)
	RecordBuild(outcome string)
	RecordRefresh(section, outcome string)
}

// Store is one storage backend serving snapshots, preferences and votes.
type Store interface {
	SnapshotStore
	PreferencesStore
	VoteStore
	Close() error
}

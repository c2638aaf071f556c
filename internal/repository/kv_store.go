package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/cache"

	"github.com/google/uuid"
)

var (
	_ repository.SnapshotStore    = (*KVStore)(nil)
	_ repository.PreferencesStore = (*KVStore)(nil)
	_ repository.VoteStore        = (*KVStore)(nil)
	_ repository.Store            = (*KVStore)(nil)
)

const (
	DefaultSnapshotTTL = 72 * time.Hour

	snapshotPrefix = "snapshot"
	prefsPrefix    = "prefs"
	votesPrefix    = "votes"

	lockTTL      = 5 * time.Second
	lockAttempts = 50
	lockBackoff  = 20 * time.Millisecond
)

var errLockBusy = errors.New("kv store: lock busy")

// KVStore keeps snapshots, preferences and votes as JSON records in a
// cache.Service (memory or redis). Snapshot creation relies on SETNX, so
// at most one record exists per (user, day).
type KVStore struct {
	kv          cache.Service
	prefs       cache.Service
	snapshotTTL time.Duration
	now         func() time.Time
	newID       func() string
}

type KVOption func(*KVStore)

func WithSnapshotTTL(ttl time.Duration) KVOption {
	return func(s *KVStore) {
		if ttl > 0 {
			s.snapshotTTL = ttl
		}
	}
}

func WithKVClock(now func() time.Time) KVOption {
	return func(s *KVStore) { s.now = now }
}

func WithIDGenerator(gen func() string) KVOption {
	return func(s *KVStore) { s.newID = gen }
}

// WithPreferencesCache routes preference records through c, usually a
// LayeredCache in front of the same remote. Preferences are write-once, so
// an L1 copy never goes stale. Closing the store closes c instead of kv.
func WithPreferencesCache(c cache.Service) KVOption {
	return func(s *KVStore) {
		if c != nil {
			s.prefs = c
		}
	}
}

func NewKVStore(kv cache.Service, opts ...KVOption) *KVStore {
	s := &KVStore{
		kv:          kv,
		snapshotTTL: DefaultSnapshotTTL,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefs == nil {
		s.prefs = kv
	}
	return s
}

func snapshotKey(userID int64, day string) string {
	return cache.GenerateKeyWithParams(snapshotPrefix, userID, day)
}

func (s *KVStore) Get(ctx context.Context, userID int64, day string) (*models.DailySnapshot, error) {
	var snap models.DailySnapshot
	if err := s.kv.Get(ctx, snapshotKey(userID, day), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &snap, nil
}

func (s *KVStore) Create(ctx context.Context, userID int64, day string, sections models.Sections) (string, error) {
	now := s.now().UTC()
	snap := models.DailySnapshot{
		ID:        s.newID(),
		UserID:    userID,
		Day:       day,
		Sections:  sections,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ok, err := s.kv.SetNX(ctx, snapshotKey(userID, day), snap, s.snapshotTTL)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if !ok {
		return "", models.ErrAlreadyExists
	}
	return snap.ID, nil
}

func (s *KVStore) ReplaceSections(ctx context.Context, userID int64, day string, sections models.Sections) error {
	key := snapshotKey(userID, day)
	return s.withLock(ctx, key, func() error {
		var snap models.DailySnapshot
		if err := s.kv.Get(ctx, key, &snap); err != nil {
			if errors.Is(err, cache.ErrCacheMiss) {
				return models.ErrNotReady
			}
			return fmt.Errorf("replace sections: %w", err)
		}
		snap.Sections = sections
		snap.UpdatedAt = s.now().UTC()

		ttl := s.snapshotTTL - snap.UpdatedAt.Sub(snap.CreatedAt)
		if ttl < time.Minute {
			ttl = time.Minute
		}
		if err := s.kv.Set(ctx, key, snap, ttl); err != nil {
			return fmt.Errorf("replace sections: %w", err)
		}
		return nil
	})
}

func (s *KVStore) GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	if err := s.prefs.Get(ctx, cache.GenerateKeyWithParams(prefsPrefix, userID), &prefs); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

func (s *KVStore) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = s.now().UTC()
	}
	ok, err := s.prefs.SetNX(ctx, cache.GenerateKeyWithParams(prefsPrefix, prefs.UserID), prefs, 0)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if !ok {
		return models.ErrPreferencesExist
	}
	return nil
}

// SaveVote upserts v keyed by (dashboard, section, item) within the user's day.
func (s *KVStore) SaveVote(ctx context.Context, v *models.Vote) error {
	key := cache.GenerateKeyWithParams(votesPrefix, v.UserID, v.Day)
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now().UTC()
	}
	return s.withLock(ctx, key, func() error {
		var votes []models.Vote
		if err := s.kv.Get(ctx, key, &votes); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return fmt.Errorf("save vote: %w", err)
		}
		replaced := false
		for i := range votes {
			if votes[i].DashboardID == v.DashboardID && votes[i].Section == v.Section && votes[i].Item == v.Item {
				votes[i] = *v
				replaced = true
				break
			}
		}
		if !replaced {
			votes = append(votes, *v)
		}
		if err := s.kv.Set(ctx, key, votes, s.snapshotTTL); err != nil {
			return fmt.Errorf("save vote: %w", err)
		}
		return nil
	})
}

func (s *KVStore) ListVotes(ctx context.Context, userID int64, day, dashboardID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.kv.Get(ctx, cache.GenerateKeyWithParams(votesPrefix, userID, day), &votes); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return []models.Vote{}, nil
		}
		return nil, fmt.Errorf("list votes: %w", err)
	}
	out := make([]models.Vote, 0, len(votes))
	for _, v := range votes {
		if dashboardID == "" || v.DashboardID == dashboardID {
			out = append(out, v)
		}
	}
	return out, nil
}

// withLock serializes writers of one record across processes sharing the backend.
func (s *KVStore) withLock(ctx context.Context, key string, fn func() error) error {
	lock := key + ":lock"
	for attempt := 0; ; attempt++ {
		ok, err := s.kv.TryLock(ctx, lock, lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if attempt >= lockAttempts {
			return fmt.Errorf("%w: %s", errLockBusy, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	defer func() { _ = s.kv.Unlock(context.WithoutCancel(ctx), lock) }()
	return fn()
}

// Close releases the backing cache.
func (s *KVStore) Close() error {
	if s.prefs != s.kv {
		return s.prefs.Close()
	}
	return s.kv.Close()
}

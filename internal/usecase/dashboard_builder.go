package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/util"

	"golang.org/x/sync/errgroup"
)

// DashboardBuilder returns today's snapshot for a user, building it from
// every enabled adapter when none exists yet. A stored snapshot is never
// overwritten by a build.
type DashboardBuilder struct {
	store    domrepo.SnapshotStore
	adapters Adapters
	limits   Limits
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	now      func() time.Time
	loc      *time.Location
}

func NewDashboardBuilder(store domrepo.SnapshotStore, adapters Adapters, limits Limits, events domrepo.EventPublisher,
	metrics domrepo.Metrics, logger *applogger.Logger, opts ...ClockOption) *DashboardBuilder {
	c := applyClock(opts)
	return &DashboardBuilder{
		store:    store,
		adapters: adapters,
		limits:   limits,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      c.now,
		loc:      c.loc,
	}
}

// Today returns the current calendar-day key.
func (b *DashboardBuilder) Today() string { return util.Day(b.now(), b.loc) }

// Current returns today's snapshot without building it, or nil.
func (b *DashboardBuilder) Current(ctx context.Context, userID int64) (*models.DailySnapshot, error) {
	return b.store.Get(ctx, userID, b.Today())
}

func (b *DashboardBuilder) GetOrBuild(ctx context.Context, prefs *models.UserPreferences) (*models.DailySnapshot, error) {
	now := b.now()
	day := util.Day(now, b.loc)

	existing, err := b.store.Get(ctx, prefs.UserID, day)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if existing != nil {
		b.metrics.RecordBuild("existing")
		return existing, nil
	}

	start := time.Now()
	sections := b.build(ctx, prefs, now)
	b.metrics.RecordLatency("dashboard_build", time.Since(start).Seconds())

	id, err := b.store.Create(ctx, prefs.UserID, day, sections)
	if errors.Is(err, models.ErrAlreadyExists) {
		b.metrics.RecordBuild("race_lost")
		b.logger.Info("snapshot created concurrently, using stored one",
			applogger.Int64("user_id", prefs.UserID), applogger.String("day", day))
		return b.reload(ctx, prefs.UserID, day)
	}
	if err != nil {
		b.metrics.RecordBuild("failed")
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	b.metrics.RecordBuild("created")
	snap, err := b.reload(ctx, prefs.UserID, day)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, &models.SnapshotEvent{
		Type:       models.EventDashboardCreated,
		SnapshotID: id,
		UserID:     prefs.UserID,
		Day:        day,
		Applied:    true,
		At:         now,
	})
	return snap, nil
}

// reload reads the stored record back so every caller sees the same
// encoding of the sections, whether it built them or not.
func (b *DashboardBuilder) reload(ctx context.Context, userID int64, day string) (*models.DailySnapshot, error) {
	snap, err := b.store.Get(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("reload snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("reload snapshot: %w", models.ErrNotReady)
	}
	return snap, nil
}

// build fans out to the enabled adapters. Adapters run to completion
// independently; one failing never cancels the others.
func (b *DashboardBuilder) build(ctx context.Context, prefs *models.UserPreferences, now time.Time) models.Sections {
	keys := b.adapters.enabledSections(prefs)
	optional := hasOptional(keys)
	results := make([]models.SectionResult, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		adapter := b.adapters.byKey(key)
		req := b.limits.request(key, prefs, optional, now, nil)
		g.Go(func() error {
			results[i] = runAdapter(ctx, adapter, req, b.logger)
			return nil
		})
	}
	_ = g.Wait()

	sections := make(models.Sections, len(keys))
	for i, key := range keys {
		res := results[i]
		b.metrics.RecordSection(string(key), res.Source, outcome(res))
		if res.HasError() {
			b.logger.Warn("section built with error",
				applogger.Int64("user_id", prefs.UserID),
				applogger.String("section", string(key)),
				applogger.String("source", res.Source),
				applogger.String("error", res.Error))
		}
		sections[key] = res
	}
	return sections
}

func (b *DashboardBuilder) publish(ctx context.Context, ev *models.SnapshotEvent) {
	if b.events == nil {
		return
	}
	if err := b.events.PublishSnapshotEvent(ctx, ev); err != nil {
		b.metrics.RecordError("event_publish")
		b.logger.Warn("snapshot event not published", applogger.String("type", ev.Type), applogger.Error(err))
	}
}

// ClockOption overrides the clock or the calendar-day location.
type ClockOption func(*clock)

type clock struct {
	now func() time.Time
	loc *time.Location
}

func WithClock(now func() time.Time) ClockOption {
	return func(c *clock) { c.now = now }
}

func WithLocation(loc *time.Location) ClockOption {
	return func(c *clock) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func applyClock(opts []ClockOption) clock {
	c := clock{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/util"
)

// SectionRefresher re-runs one adapter against today's snapshot. A result
// that carries no usable data never replaces what is stored.
type SectionRefresher struct {
	store    domrepo.SnapshotStore
	adapters Adapters
	limits   Limits
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	now      func() time.Time
	loc      *time.Location
}

func NewSectionRefresher(store domrepo.SnapshotStore, adapters Adapters, limits Limits, events domrepo.EventPublisher,
	metrics domrepo.Metrics, logger *applogger.Logger, opts ...ClockOption) *SectionRefresher {
	c := applyClock(opts)
	return &SectionRefresher{
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

// Refresh returns the snapshot after the attempt and whether the section was
// replaced. Unknown or disabled sections fail with models.ErrInvalidSection,
// a missing snapshot with models.ErrNotReady.
func (r *SectionRefresher) Refresh(ctx context.Context, prefs *models.UserPreferences, section string) (*models.DailySnapshot, bool, error) {
	key, err := models.ParseSectionKey(section)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q", models.ErrInvalidSection, section)
	}
	if !r.adapters.isEnabled(prefs, key) {
		return nil, false, fmt.Errorf("%w: %q is not enabled for this user", models.ErrInvalidSection, section)
	}

	now := r.now()
	day := util.Day(now, r.loc)
	snap, err := r.store.Get(ctx, prefs.UserID, day)
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil, false, models.ErrNotReady
	}

	var exclude []string
	if key == models.SectionRecommendation {
		exclude = exclusionOf(snap.Sections[key])
	}
	optional := hasOptional(r.adapters.enabledSections(prefs))
	req := r.limits.request(key, prefs, optional, now, exclude)

	res := runAdapter(ctx, r.adapters.byKey(key), req, r.logger)
	r.metrics.RecordSection(string(key), res.Source, outcome(res))

	if shouldSkip(key, res) {
		r.metrics.RecordRefresh(string(key), "skipped")
		r.logger.Info("refresh skipped, keeping stored section",
			applogger.Int64("user_id", prefs.UserID),
			applogger.String("section", string(key)),
			applogger.String("error", res.Error))
		r.publish(ctx, snap, key, false, now)
		return snap, false, nil
	}

	sections := snap.Sections.Clone()
	sections[key] = res
	if err := r.store.ReplaceSections(ctx, prefs.UserID, day, sections); err != nil {
		r.metrics.RecordRefresh(string(key), "failed")
		return nil, false, fmt.Errorf("replace sections: %w", err)
	}
	r.metrics.RecordRefresh(string(key), "applied")

	updated, err := r.store.Get(ctx, prefs.UserID, day)
	if err != nil {
		return nil, false, fmt.Errorf("reload snapshot: %w", err)
	}
	if updated == nil {
		return nil, false, models.ErrNotReady
	}
	r.publish(ctx, updated, key, true, now)
	return updated, true, nil
}

func (r *SectionRefresher) publish(ctx context.Context, snap *models.DailySnapshot, key models.SectionKey, applied bool, now time.Time) {
	if r.events == nil {
		return
	}
	ev := &models.SnapshotEvent{
		Type:       models.EventSectionRefreshed,
		SnapshotID: snap.ID,
		UserID:     snap.UserID,
		Day:        snap.Day,
		Section:    key,
		Applied:    applied,
		At:         now,
	}
	if err := r.events.PublishSnapshotEvent(ctx, ev); err != nil {
		r.metrics.RecordError("event_publish")
		r.logger.Warn("snapshot event not published", applogger.String("type", ev.Type), applogger.Error(err))
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	pkgkafka "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/kafka"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// PrewarmHandler builds today's dashboard ahead of the user's first visit.
// Messages look like {"user_id": 42}.
type PrewarmHandler struct {
	topic   string
	prefs   domrepo.PreferencesStore
	builder *DashboardBuilder
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*PrewarmHandler)(nil)

func NewPrewarmHandler(topic string, prefs domrepo.PreferencesStore, builder *DashboardBuilder, metrics domrepo.Metrics, logger *applogger.Logger) *PrewarmHandler {
	return &PrewarmHandler{topic: topic, prefs: prefs, builder: builder, metrics: metrics, logger: logger}
}

func (h *PrewarmHandler) Topic() string { return h.topic }

func (h *PrewarmHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("prewarm_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode prewarm message: %w", err))
	}
	if m.UserID <= 0 {
		h.metrics.RecordError("prewarm_invalid")
		return pkgkafka.Permanent(errors.New("prewarm message without user_id"))
	}

	prefs, err := h.prefs.GetPreferences(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil {
		// Nothing to build until the user onboards; retrying will not help.
		h.logger.Debug("prewarm skipped, user not onboarded", applogger.Int64("user_id", m.UserID))
		return nil
	}

	start := time.Now()
	snap, err := h.builder.GetOrBuild(ctx, prefs)
	h.metrics.RecordLatency("prewarm", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("prewarm_build")
		return err
	}
	h.logger.Debug("dashboard prewarmed",
		applogger.Int64("user_id", m.UserID),
		applogger.String("snapshot_id", snap.ID),
		applogger.String("day", snap.Day))
	return nil
}

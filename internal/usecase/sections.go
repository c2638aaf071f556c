package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

const (
	defaultNewsLimit     = 5
	defaultInsightAssets = 3
	minAdapterLimit      = 2
)

// Adapters holds one adapter per section. Chart and Filler may be nil, in
// which case those optional sections are never produced.
type Adapters struct {
	Prices         service.SectionAdapter
	News           service.SectionAdapter
	Insight        service.SectionAdapter
	Recommendation service.SectionAdapter
	Chart          service.SectionAdapter
	Filler         service.SectionAdapter
}

func (a Adapters) byKey(k models.SectionKey) service.SectionAdapter {
	switch k {
	case models.SectionPrices:
		return a.Prices
	case models.SectionNews:
		return a.News
	case models.SectionInsight:
		return a.Insight
	case models.SectionRecommendation:
		return a.Recommendation
	case models.SectionChart:
		return a.Chart
	case models.SectionFiller:
		return a.Filler
	}
	return nil
}

// Limits sizes the news list and the insight focus set.
type Limits struct {
	NewsLimit     int
	InsightAssets int
}

// enabledSections lists the sections a snapshot carries for prefs. Chart and
// filler are opt-in through the charts and fun interests.
func (a Adapters) enabledSections(prefs *models.UserPreferences) []models.SectionKey {
	keys := []models.SectionKey{
		models.SectionPrices,
		models.SectionNews,
		models.SectionInsight,
		models.SectionRecommendation,
	}
	if a.Chart != nil && prefs.HasContent(models.ContentCharts) {
		keys = append(keys, models.SectionChart)
	}
	if a.Filler != nil && prefs.HasContent(models.ContentFun) {
		keys = append(keys, models.SectionFiller)
	}
	return keys
}

func (a Adapters) isEnabled(prefs *models.UserPreferences, key models.SectionKey) bool {
	return slices.Contains(a.enabledSections(prefs), key)
}

// request builds the adapter input for key. Optional sections shrink the
// news and insight limits by one each, never below two.
func (l Limits) request(key models.SectionKey, prefs *models.UserPreferences, optional bool, today time.Time, exclude []string) service.AdapterRequest {
	req := service.AdapterRequest{Prefs: prefs, Today: today, Exclude: exclude}
	switch key {
	case models.SectionNews:
		req.Limit = shrink(orDefault(l.NewsLimit, defaultNewsLimit), optional)
	case models.SectionInsight:
		req.Limit = shrink(orDefault(l.InsightAssets, defaultInsightAssets), optional)
	}
	return req
}

func hasOptional(keys []models.SectionKey) bool {
	for _, k := range keys {
		if k == models.SectionChart || k == models.SectionFiller {
			return true
		}
	}
	return false
}

func shrink(n int, optional bool) int {
	if !optional {
		return n
	}
	return max(minAdapterLimit, n-1)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// runAdapter calls a.Fetch and turns a panic into a section error.
func runAdapter(ctx context.Context, a service.SectionAdapter, req service.AdapterRequest, logger *applogger.Logger) (res models.SectionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("section adapter panicked",
				applogger.String("section", string(a.Key())),
				applogger.Any("panic", r),
				applogger.String("stack", string(debug.Stack())))
			res = models.SectionResult{Source: "internal", Error: fmt.Sprintf("adapter failed: %v", r)}
		}
	}()
	return a.Fetch(ctx, req)
}

// shouldSkip reports whether a refresh result must not replace stored data:
// errors without data, and data-shaped sections without data.
func shouldSkip(key models.SectionKey, res models.SectionResult) bool {
	empty := res.IsEmpty()
	return (res.HasError() && empty) || (key.IsDataShaped() && empty)
}

// exclusionOf extracts the id and url of a stored recommendation. Stored data
// may be a typed value or decoded JSON, so it goes through a JSON round trip.
func exclusionOf(res models.SectionResult) []string {
	if res.Data == nil {
		return nil
	}
	b, err := json.Marshal(res.Data)
	if err != nil {
		return nil
	}
	var item struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(b, &item); err != nil {
		return nil
	}
	out := make([]string, 0, 2)
	for _, v := range []string{item.ID, item.URL} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func outcome(res models.SectionResult) string {
	if res.HasError() {
		return "error"
	}
	return "ok"
}

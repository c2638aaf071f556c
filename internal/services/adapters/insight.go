package adapters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

const (
	DefaultInsightAssets  = 3
	DefaultReferenceAsset = "bitcoin"

	InsightUnavailable = "AI insight is unavailable right now, please refresh."

	insightSourcePrefix = "openrouter:"
	maxInsightWords     = 40

	trendThreshold        = 0.6
	highVolatility        = 6.0
	mediumVolatility      = 2.5
	unknownClassification = "unknown"
)

// MarketSnapshot classifies today's market from 24h changes. Any field may
// be "unknown" when the figures are missing.
type MarketSnapshot struct {
	Trend          string
	Volatility     string
	ReferenceAsset string
	Direction      string
}

// Classify derives a snapshot for focus assets, using ref for the direction.
func Classify(table models.PriceTable, focus []string, ref string) MarketSnapshot {
	snap := MarketSnapshot{
		Trend:          unknownClassification,
		Volatility:     unknownClassification,
		ReferenceAsset: ref,
		Direction:      unknownClassification,
	}

	var sum, abs float64
	n := 0
	for _, id := range focus {
		q, ok := table[id]
		if !ok || q.Change24h == nil {
			continue
		}
		sum += *q.Change24h
		abs += math.Abs(*q.Change24h)
		n++
	}
	if n > 0 {
		avg := sum / float64(n)
		switch {
		case avg > trendThreshold:
			snap.Trend = "bullish"
		case avg < -trendThreshold:
			snap.Trend = "bearish"
		default:
			snap.Trend = "sideways"
		}
		avgAbs := abs / float64(n)
		switch {
		case avgAbs >= highVolatility:
			snap.Volatility = "high"
		case avgAbs >= mediumVolatility:
			snap.Volatility = "medium"
		default:
			snap.Volatility = "low"
		}
	}

	if q, ok := table[ref]; ok && q.Change24h != nil {
		switch c := *q.Change24h; {
		case c > trendThreshold:
			snap.Direction = "up"
		case c < -trendThreshold:
			snap.Direction = "down"
		default:
			snap.Direction = "flat"
		}
	}
	return snap
}

type InsightConfig struct {
	Models         []string
	Temperature    float64
	MaxTokens      int
	ReferenceAsset string
}

// InsightAdapter asks a chain of generation models for a short,
// preference-grounded market note.
type InsightAdapter struct {
	base
	prices service.PriceLookup
	gen    service.TextGenerator
	cfg    InsightConfig
}

func NewInsightAdapter(prices service.PriceLookup, gen service.TextGenerator, cfg InsightConfig, opts ...Option) *InsightAdapter {
	if cfg.ReferenceAsset == "" {
		cfg.ReferenceAsset = DefaultReferenceAsset
	}
	cfg.ReferenceAsset = strings.ToLower(cfg.ReferenceAsset)
	return &InsightAdapter{base: newBase(opts), prices: prices, gen: gen, cfg: cfg}
}

func (a *InsightAdapter) Key() models.SectionKey { return models.SectionInsight }

func (a *InsightAdapter) Fetch(ctx context.Context, req service.AdapterRequest) models.SectionResult {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultInsightAssets
	}
	focus := models.CanonicalAssets(req.Prefs.CryptoAssets)
	if len(focus) > limit {
		focus = focus[:limit]
	}

	snap := a.snapshot(ctx, focus)
	today := req.Today
	if today.IsZero() {
		today = time.Now()
	}
	investor := string(req.Prefs.InvestorType)
	messages := []service.ChatMessage{
		{Role: "system", Content: InsightRules(investor)},
		{Role: "user", Content: BuildPrompt(today, investor, focus, snap)},
	}

	var errs []error
	for _, model := range a.cfg.Models {
		text, err := a.gen.Complete(ctx, service.CompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		})
		if err == nil && strings.TrimSpace(text) == "" {
			err = models.ErrUpstreamEmpty
		}
		if err != nil {
			a.logger.Warn("insight model failed", applogger.String("model", model), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", model, err))
			continue
		}
		return models.SectionResult{
			Source: insightSourcePrefix + model,
			Data:   Ground(text, investor, snap),
		}
	}

	err := models.ErrGenerationExhausted
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", err, errors.Join(errs...))
	}
	a.logger.Error("insight generation exhausted", applogger.Int("models", len(a.cfg.Models)), applogger.Error(err))
	return models.SectionResult{Source: SourceFallback, Data: InsightUnavailable, Error: err.Error()}
}

func (a *InsightAdapter) snapshot(ctx context.Context, focus []string) MarketSnapshot {
	ids := focus
	if !slices.Contains(focus, a.cfg.ReferenceAsset) {
		ids = append(append([]string(nil), focus...), a.cfg.ReferenceAsset)
	}
	table, err := a.prices.Quotes(ctx, ids)
	if err != nil {
		a.logger.Debug("insight running without market snapshot", applogger.Error(err))
	}
	return Classify(table, focus, a.cfg.ReferenceAsset)
}

// BuildPrompt renders the user message: the day, the reader and the market.
func BuildPrompt(today time.Time, investor string, assets []string, snap MarketSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s. Write a short market insight for a %s crypto investor.\n", today.Format(time.DateOnly), investor)
	fmt.Fprintf(&b, "Assets of interest: %s.\n", strings.Join(assets, ", "))
	fmt.Fprintf(&b, "Market snapshot: trend %s, volatility %s, %s direction %s.",
		snap.Trend, snap.Volatility, snap.ReferenceAsset, snap.Direction)
	return b.String()
}

// InsightRules renders the system message every model receives.
func InsightRules(investor string) string {
	var b strings.Builder
	b.WriteString("You write daily crypto market notes. Write exactly one paragraph. ")
	fmt.Fprintf(&b, "Mention the phrase %q literally. ", investor)
	b.WriteString("Focus on one or two of the listed assets at most and ignore any asset you do not recognize. ")
	b.WriteString("Do not give price targets or guarantees. ")
	fmt.Fprintf(&b, "Use no more than %d words.", maxInsightWords)
	return b.String()
}

// Ground makes generated text name the investor type and, when known,
// today's trend, then caps it at the word limit. Applying it twice is a no-op.
func Ground(text, investor string, snap MarketSnapshot) string {
	text = strings.TrimSpace(text)

	if !strings.Contains(strings.ToLower(text), strings.ToLower(investor)) {
		text = "For a " + investor + " investor: " + text
	}

	if snap.Trend != unknownClassification && !mentionsMarket(text, snap) {
		clause := "Today: " + snap.Trend + " trend"
		if snap.Volatility != unknownClassification {
			clause += ", " + snap.Volatility + " volatility"
		}
		text = clause + ". " + text
	}

	if words := strings.Fields(text); len(words) > maxInsightWords {
		text = strings.Join(words[:maxInsightWords], " ")
		text = strings.TrimRightFunc(text, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		}) + "."
	}
	return text
}

func mentionsMarket(text string, snap MarketSnapshot) bool {
	words := wordsOf(strings.ToLower(text))
	want := []string{"today", snap.Trend}
	for _, v := range []string{snap.Direction, snap.Volatility} {
		if v != unknownClassification {
			want = append(want, v)
		}
	}
	for _, w := range words {
		if slices.Contains(want, w) {
			return true
		}
	}
	return false
}

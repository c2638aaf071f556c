package service

import (
	"context"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

// QuoteSource fetches spot prices and 24h changes for a batch of asset ids.
type QuoteSource interface {
	SimplePrice(ctx context.Context, ids []string) (models.PriceTable, error)
}

// ChartSource fetches a historical price series for one asset.
type ChartSource interface {
	MarketChart(ctx context.Context, id string, days int) (*models.ChartSeries, error)
}

// RawArticle is an upstream news item before scoring.
type RawArticle struct {
	Title       string
	Summary     string
	URL         string
	PublishedAt string
	Source      string
}

type NewsSource interface {
	Name() string
	Posts(ctx context.Context) ([]RawArticle, error)
}

// ChatMessage is one turn of a chat-style completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// TextGenerator returns a single completion for a chat-style request.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// PriceLookup is the Price Cache surface used by adapters.
type PriceLookup interface {
	GetOrFetch(ctx context.Context, ids []string) models.SectionResult
	Quotes(ctx context.Context, ids []string) (models.PriceTable, error)
}

// AdapterRequest carries everything a section adapter needs for one fetch.
type AdapterRequest struct {
	Prefs   *models.UserPreferences
	Limit   int
	Exclude []string
	Today   time.Time
}

// SectionAdapter turns preferences into one SectionResult. Failures are
// reported through SectionResult.Error, never returned.
type SectionAdapter interface {
	Key() models.SectionKey
	Fetch(ctx context.Context, req AdapterRequest) models.SectionResult
}

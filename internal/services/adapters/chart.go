package adapters

import (
	"context"
	"fmt"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

const (
	DefaultChartDays = 7
	SourceChart      = "coingecko"
)

// ChartAdapter fetches a price history for the user's first asset.
type ChartAdapter struct {
	base
	src  service.ChartSource
	days int
}

func NewChartAdapter(src service.ChartSource, days int, opts ...Option) *ChartAdapter {
	if days <= 0 {
		days = DefaultChartDays
	}
	return &ChartAdapter{base: newBase(opts), src: src, days: days}
}

func (a *ChartAdapter) Key() models.SectionKey { return models.SectionChart }

func (a *ChartAdapter) Fetch(ctx context.Context, req service.AdapterRequest) models.SectionResult {
	assets := models.CanonicalAssets(req.Prefs.CryptoAssets)
	if len(assets) == 0 {
		return models.SectionResult{Source: SourceChart, Error: "no assets selected"}
	}

	series, err := a.src.MarketChart(ctx, assets[0], a.days)
	if err == nil && (series == nil || len(series.Points) == 0) {
		err = models.ErrUpstreamEmpty
	}
	if err != nil {
		a.logger.Warn("chart fetch failed", applogger.String("asset", assets[0]), applogger.Error(err))
		return models.SectionResult{Source: SourceChart, Error: fmt.Sprintf("chart unavailable for %s: %v", assets[0], err)}
	}
	return models.SectionResult{Source: SourceChart, Data: series}
}

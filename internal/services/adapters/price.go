package adapters

import (
	"context"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// PriceAdapter serves the prices section from the shared price cache.
type PriceAdapter struct {
	base
	prices service.PriceLookup
}

func NewPriceAdapter(prices service.PriceLookup, opts ...Option) *PriceAdapter {
	return &PriceAdapter{base: newBase(opts), prices: prices}
}

func (a *PriceAdapter) Key() models.SectionKey { return models.SectionPrices }

func (a *PriceAdapter) Fetch(ctx context.Context, req service.AdapterRequest) models.SectionResult {
	res := a.prices.GetOrFetch(ctx, req.Prefs.CryptoAssets)
	if res.HasError() {
		a.logger.Warn("prices section degraded", applogger.String("error", res.Error))
	}
	return res
}

package adapters

import (
	"context"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// Picker draws one recommendation for a user, avoiding excluded ids or urls.
type Picker interface {
	Select(prefs *models.UserPreferences, exclude []string) models.Recommendation
}

// RecommendationAdapter wraps the weighted selector. The section source is
// the pick's provenance.
type RecommendationAdapter struct {
	base
	picker Picker
}

func NewRecommendationAdapter(picker Picker, opts ...Option) *RecommendationAdapter {
	return &RecommendationAdapter{base: newBase(opts), picker: picker}
}

func (a *RecommendationAdapter) Key() models.SectionKey { return models.SectionRecommendation }

func (a *RecommendationAdapter) Fetch(_ context.Context, req service.AdapterRequest) models.SectionResult {
	rec := a.picker.Select(req.Prefs, req.Exclude)
	a.logger.Debug("recommendation picked",
		applogger.String("id", rec.ID),
		applogger.String("provenance", rec.Provenance),
		applogger.Int("score", rec.Score))
	return models.SectionResult{Source: rec.Provenance, Data: rec}
}

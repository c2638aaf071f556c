package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	domrepo "github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// OnboardingService stores each user's preferences once.
type OnboardingService struct {
	store  domrepo.PreferencesStore
	logger *applogger.Logger
	now    func() time.Time
}

func NewOnboardingService(store domrepo.PreferencesStore, logger *applogger.Logger, opts ...ClockOption) *OnboardingService {
	return &OnboardingService{store: store, logger: logger, now: applyClock(opts).now}
}

// Save canonicalizes and stores the request. Warnings describe input that was
// dropped during canonicalization.
func (s *OnboardingService) Save(ctx context.Context, userID int64, req *models.OnboardingRequest) (*models.UserPreferences, []string, error) {
	var warnings []string

	assets := models.CanonicalAssets(req.CryptoAssets)
	if dropped := len(req.CryptoAssets) - len(assets); dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d duplicate or blank asset id(s) ignored", dropped))
	}
	if len(assets) == 0 {
		return nil, nil, fmt.Errorf("%w: no valid crypto assets", models.ErrInvalidPreferences)
	}

	content := make([]models.ContentType, 0, len(req.ContentType))
	seen := make(map[models.ContentType]struct{}, len(req.ContentType))
	for _, c := range req.ContentType {
		ct := models.ContentType(strings.TrimSpace(c))
		if !models.IsValidContentType(string(ct)) {
			warnings = append(warnings, fmt.Sprintf("unknown content type %q ignored", c))
			continue
		}
		if _, ok := seen[ct]; ok {
			continue
		}
		seen[ct] = struct{}{}
		content = append(content, ct)
	}
	if !models.IsValidInvestorType(req.InvestorType) {
		return nil, nil, fmt.Errorf("%w: unknown investor type %q", models.ErrInvalidPreferences, req.InvestorType)
	}

	prefs := &models.UserPreferences{
		UserID:       userID,
		CryptoAssets: assets,
		InvestorType: models.InvestorType(req.InvestorType),
		ContentType:  content,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return nil, nil, err
	}
	s.logger.Info("onboarding saved",
		applogger.Int64("user_id", userID),
		applogger.Strings("assets", assets),
		applogger.String("investor_type", req.InvestorType))
	return prefs, warnings, nil
}

// Get returns stored preferences or models.ErrPreferencesMissing.
func (s *OnboardingService) Get(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil {
		return nil, models.ErrPreferencesMissing
	}
	return prefs, nil
}

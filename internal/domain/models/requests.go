package models

// Requests for the dashboard HTTP endpoints.

type OnboardingRequest struct {
	CryptoAssets []string `json:"crypto_assets" validate:"required,min=1,max=20,dive,required,max=64"`
	InvestorType string   `json:"investor_type" validate:"required,oneof=long_term short_term nft_collector swing_trader defi_yield"`
	ContentType  []string `json:"content_type" validate:"required,min=1,dive,oneof=market_news charts fun development regulation security social"`
}

type RefreshRequest struct {
	Section string `param:"section" validate:"required,oneof=prices news ai_insight recommendation chart filler"`
}

type VoteRequest struct {
	DashboardID string `json:"dashboard_id"`
	Section     string `json:"section" validate:"required,oneof=prices news ai_insight recommendation chart filler"`
	Item        string `json:"item" validate:"required,max=512"`
	Value       int    `json:"value" validate:"required,oneof=1 -1"`
}

type VotesQuery struct {
	Date        string `query:"date" default:"today" validate:"required"`
	DashboardID string `query:"dashboard_id"`
}

package models

import (
	"strings"
	"time"
)

// InvestorType is the closed set of investor profiles picked at onboarding.
type InvestorType string

const (
	InvestorLongTerm     InvestorType = "long_term"
	InvestorShortTerm    InvestorType = "short_term"
	InvestorNFTCollector InvestorType = "nft_collector"
	InvestorSwingTrader  InvestorType = "swing_trader"
	InvestorDeFiYield    InvestorType = "defi_yield"
)

// ContentType is the closed set of content interests picked at onboarding.
type ContentType string

const (
	ContentMarketNews  ContentType = "market_news"
	ContentCharts      ContentType = "charts"
	ContentFun         ContentType = "fun"
	ContentDevelopment ContentType = "development"
	ContentRegulation  ContentType = "regulation"
	ContentSecurity    ContentType = "security"
	ContentSocial      ContentType = "social"
)

// IsValidInvestorType reports whether v belongs to the investor enumeration.
func IsValidInvestorType(v string) bool {
	switch InvestorType(v) {
	case InvestorLongTerm, InvestorShortTerm, InvestorNFTCollector, InvestorSwingTrader, InvestorDeFiYield:
		return true
	default:
		return false
	}
}

// IsValidContentType reports whether v belongs to the content enumeration.
func IsValidContentType(v string) bool {
	switch ContentType(v) {
	case ContentMarketNews, ContentCharts, ContentFun, ContentDevelopment, ContentRegulation, ContentSecurity, ContentSocial:
		return true
	default:
		return false
	}
}

// UserPreferences is created once at onboarding and is read-only afterwards.
type UserPreferences struct {
	UserID       int64         `json:"user_id"`
	CryptoAssets []string      `json:"crypto_assets"`
	InvestorType InvestorType  `json:"investor_type"`
	ContentType  []ContentType `json:"content_type"`
	CreatedAt    time.Time     `json:"created_at"`
}

// HasContent reports whether the user opted into content type c.
func (p *UserPreferences) HasContent(c ContentType) bool {
	for _, v := range p.ContentType {
		if v == c {
			return true
		}
	}
	return false
}

// ContentStrings returns content interests as plain strings.
func (p *UserPreferences) ContentStrings() []string {
	out := make([]string, 0, len(p.ContentType))
	for _, c := range p.ContentType {
		out = append(out, string(c))
	}
	return out
}

// CanonicalAssets trims, lowercases, drops empties and duplicates while keeping
// the caller's order.
func CanonicalAssets(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

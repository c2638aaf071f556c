package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

const (
	DefaultNewsLimit = 5
	stableIDLength   = 12

	assetMatchScore = 3
)

var (
	regulationKeywords = keywordSet("sec", "regulation", "regulator", "regulators", "regulatory", "lawsuit", "court",
		"ban", "bans", "compliance", "cftc", "etf", "legislation", "bill", "law", "policy", "sanctions", "tax")
	securityKeywords = keywordSet("hack", "hacked", "hacker", "hackers", "exploit", "exploited", "breach", "stolen",
		"theft", "scam", "phishing", "vulnerability", "drained", "rug", "attack")
	marketKeywords = keywordSet("price", "prices", "rally", "surge", "surges", "dump", "crash", "bull", "bullish",
		"bear", "bearish", "market", "markets", "trading", "ath", "record", "liquidation", "liquidations")
	socialKeywords = keywordSet("twitter", "elon", "musk", "community", "reddit", "viral", "influencer", "meme",
		"memes", "sentiment", "tiktok")
)

var topicRules = []struct {
	content  models.ContentType
	keywords map[string]struct{}
	score    int
}{
	{models.ContentRegulation, regulationKeywords, 2},
	{models.ContentSecurity, securityKeywords, 2},
	{models.ContentMarketNews, marketKeywords, 1},
	{models.ContentSocial, socialKeywords, 1},
}

// FallbackArticles stand in for the feed when it cannot be read.
var FallbackArticles = []service.RawArticle{
	{Title: "[Fallback] Bitcoin: a peer-to-peer electronic cash system", URL: "https://bitcoin.org/bitcoin.pdf", Source: SourceFallback},
	{Title: "[Fallback] What is Ethereum?", URL: "https://ethereum.org/en/what-is-ethereum/", Source: SourceFallback},
	{Title: "[Fallback] Staying safe from crypto scams and phishing", URL: "https://www.coingecko.com/learn/crypto-scams", Source: SourceFallback},
}

// NewsAdapter ranks the upstream feed against the user's assets and interests.
type NewsAdapter struct {
	base
	src service.NewsSource
}

func NewNewsAdapter(src service.NewsSource, opts ...Option) *NewsAdapter {
	return &NewsAdapter{base: newBase(opts), src: src}
}

func (a *NewsAdapter) Key() models.SectionKey { return models.SectionNews }

func (a *NewsAdapter) Fetch(ctx context.Context, req service.AdapterRequest) models.SectionResult {
	source := a.src.Name()
	var softErr string

	raw, err := a.src.Posts(ctx)
	switch {
	case err != nil:
		a.logger.Warn("news feed unavailable, serving fallback", applogger.String("source", source), applogger.Error(err))
		raw, source, softErr = FallbackArticles, SourceFallback, "news feed unavailable: "+err.Error()
	case len(raw) == 0:
		a.logger.Warn("news feed empty, serving fallback", applogger.String("source", source))
		raw, source, softErr = FallbackArticles, SourceFallback, "news feed returned no articles"
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	return models.SectionResult{
		Source: source,
		Data:   Rank(raw, source, req.Prefs, limit),
		Error:  softErr,
	}
}

// Rank scores raw articles, orders them by score with feed order kept on
// ties, and keeps the first limit.
func Rank(raw []service.RawArticle, source string, prefs *models.UserPreferences, limit int) []models.Article {
	assets := models.CanonicalAssets(prefs.CryptoAssets)
	out := make([]models.Article, 0, len(raw))
	for _, r := range raw {
		outlet := r.Source
		if outlet == "" {
			outlet = source
		}
		out = append(out, models.Article{
			ID:          StableID(source, r.Title, r.PublishedAt),
			Title:       r.Title,
			Summary:     r.Summary,
			URL:         r.URL,
			PublishedAt: r.PublishedAt,
			Source:      outlet,
			Score:       Relevance(r.Title, assets, prefs),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Relevance scores a title. Assets match as case-insensitive substrings,
// topic keywords as whole words.
func Relevance(title string, assets []string, prefs *models.UserPreferences) int {
	lower := strings.ToLower(title)
	score := 0
	for _, a := range assets {
		if strings.Contains(lower, a) {
			score += assetMatchScore
		}
	}
	words := wordsOf(lower)
	for _, rule := range topicRules {
		if prefs.HasContent(rule.content) && anyKeyword(words, rule.keywords) {
			score += rule.score
		}
	}
	return score
}

// StableID fingerprints an article so repeated fetches yield the same id.
func StableID(source, title, published string) string {
	sum := sha256.Sum256([]byte(source + "|" + title + "|" + published))
	return hex.EncodeToString(sum[:])[:stableIDLength]
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func anyKeyword(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func keywordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

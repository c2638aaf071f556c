package selector

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

const (
	ProvenanceCatalog  = "catalog"
	ProvenanceFallback = "fallback"

	investorMatchScore = 4
	contentTagScore    = 2
	maxAssetScore      = 3
	reasonAssetSample  = 5
)

// FallbackPool is used when the catalog has nothing left to offer.
var FallbackPool = []models.RecommendationCandidate{
	{ID: "fallback-bitcoin", Title: "Bitcoin", URL: "https://upload.wikimedia.org/wikipedia/commons/4/46/Bitcoin.svg"},
	{ID: "fallback-ethereum", Title: "Ethereum", URL: "https://upload.wikimedia.org/wikipedia/commons/0/05/Ethereum_logo_2014.svg"},
	{ID: "fallback-blockchain", Title: "How a blockchain works", URL: "https://upload.wikimedia.org/wikipedia/commons/9/98/Blockchain.png"},
}

// Selector draws one catalog item per call, weighted by how well it matches
// the user's preferences. The catalog is read-only after construction.
type Selector struct {
	catalog  []models.RecommendationCandidate
	fallback []models.RecommendationCandidate

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Selector)

// WithFallback replaces the fallback pool.
func WithFallback(pool []models.RecommendationCandidate) Option {
	return func(s *Selector) {
		if len(pool) > 0 {
			s.fallback = pool
		}
	}
}

// New builds a selector. rnd must not be shared with other goroutines.
func New(catalog []models.RecommendationCandidate, rnd *rand.Rand, opts ...Option) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Selector{catalog: catalog, fallback: FallbackPool, rnd: rnd}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the number of catalog entries.
func (s *Selector) Size() int { return len(s.catalog) }

// Select picks a recommendation, skipping candidates whose id or url is in
// exclude and candidates without a url.
func (s *Selector) Select(prefs *models.UserPreferences, exclude []string) models.Recommendation {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		if e != "" {
			skip[e] = struct{}{}
		}
	}

	candidates := make([]models.RecommendationCandidate, 0, len(s.catalog))
	weights := make([]int, 0, len(s.catalog))
	scores := make([]int, 0, len(s.catalog))
	total := 0
	for _, c := range s.catalog {
		if c.URL == "" || excluded(skip, c) {
			continue
		}
		score := Score(prefs, c)
		w := max(0, score) + 1
		candidates = append(candidates, c)
		weights = append(weights, w)
		scores = append(scores, score)
		total += w
	}

	if len(candidates) == 0 {
		return s.pickFallback(skip)
	}

	s.mu.Lock()
	r := s.rnd.IntN(total)
	s.mu.Unlock()

	idx := len(candidates) - 1
	for i, w := range weights {
		if r < w {
			idx = i
			break
		}
		r -= w
	}

	c := candidates[idx]
	return models.Recommendation{
		ID:         c.ID,
		URL:        c.URL,
		Title:      c.Title,
		Score:      scores[idx],
		Provenance: ProvenanceCatalog,
		Reason:     reason(prefs, c),
	}
}

func (s *Selector) pickFallback(skip map[string]struct{}) models.Recommendation {
	pool := make([]models.RecommendationCandidate, 0, len(s.fallback))
	for _, c := range s.fallback {
		if !excluded(skip, c) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = s.fallback
	}

	s.mu.Lock()
	c := pool[s.rnd.IntN(len(pool))]
	s.mu.Unlock()

	return models.Recommendation{
		ID:         c.ID,
		URL:        c.URL,
		Title:      c.Title,
		Provenance: ProvenanceFallback,
	}
}

// Score rates how well c matches prefs: investor type, content interests and
// a capped asset overlap.
func Score(prefs *models.UserPreferences, c models.RecommendationCandidate) int {
	score := 0
	if slices.Contains(c.Tags.Investor, string(prefs.InvestorType)) {
		score += investorMatchScore
	}
	for _, ct := range prefs.ContentType {
		if slices.Contains(c.Tags.Content, string(ct)) {
			score += contentTagScore
		}
	}
	overlap := 0
	for _, a := range models.CanonicalAssets(prefs.CryptoAssets) {
		if slices.Contains(c.Tags.Assets, a) {
			overlap++
		}
	}
	return score + min(overlap, maxAssetScore)
}

func reason(prefs *models.UserPreferences, c models.RecommendationCandidate) *models.RecommendationReason {
	sample := c.Tags.Assets
	if len(sample) > reasonAssetSample {
		sample = sample[:reasonAssetSample]
	}
	return &models.RecommendationReason{
		InvestorType: string(prefs.InvestorType),
		ContentTags:  prefs.ContentStrings(),
		AssetSample:  append([]string(nil), sample...),
	}
}

func excluded(skip map[string]struct{}, c models.RecommendationCandidate) bool {
	if _, ok := skip[c.ID]; ok {
		return true
	}
	_, ok := skip[c.URL]
	return ok
}

package selector

import (
	"errors"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(42, 7)) }

func swingPrefs() *models.UserPreferences {
	return &models.UserPreferences{
		UserID:       1,
		CryptoAssets: []string{"bitcoin", "ethereum", "solana", "dogecoin"},
		InvestorType: models.InvestorSwingTrader,
		ContentType:  []models.ContentType{models.ContentCharts, models.ContentFun},
	}
}

func TestScore(t *testing.T) {
	prefs := swingPrefs()
	cases := []struct {
		name string
		tags models.CandidateTags
		want int
	}{
		{"none", models.CandidateTags{}, 0},
		{"investor", models.CandidateTags{Investor: []string{"swing_trader"}}, 4},
		{"content", models.CandidateTags{Content: []string{"charts", "fun", "regulation"}}, 4},
		{"assets capped", models.CandidateTags{Assets: []string{"bitcoin", "ethereum", "solana", "dogecoin"}}, 3},
		{"all", models.CandidateTags{Investor: []string{"swing_trader"}, Content: []string{"charts"}, Assets: []string{"bitcoin"}}, 7},
	}
	for _, c := range cases {
		if got := Score(prefs, models.RecommendationCandidate{Tags: c.tags}); got != c.want {
			t.Fatalf("%s: score %d want %d", c.name, got, c.want)
		}
	}
}

func TestSelectWeightedBias(t *testing.T) {
	catalog := []models.RecommendationCandidate{
		{ID: "match", URL: "https://x/match", Tags: models.CandidateTags{Investor: []string{"swing_trader"}}},
		{ID: "other", URL: "https://x/other", Tags: models.CandidateTags{Investor: []string{"long_term"}}},
	}
	prefs := &models.UserPreferences{InvestorType: models.InvestorSwingTrader}
	s := New(catalog, seeded())

	const n = 5000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		counts[s.Select(prefs, nil).ID]++
	}
	if counts["other"] == 0 {
		t.Fatalf("zero-score candidate must still be drawn")
	}
	ratio := float64(counts["match"]) / float64(counts["other"])
	// weights are 5 and 1
	if math.Abs(ratio-5)/5 > 0.2 {
		t.Fatalf("empirical ratio %.2f outside 5±20%% (%v)", ratio, counts)
	}
}

func TestSelectHonoursExclusionAndEmptyURL(t *testing.T) {
	catalog := []models.RecommendationCandidate{
		{ID: "a", URL: "https://x/a"},
		{ID: "b", URL: "https://x/b"},
		{ID: "c", URL: ""},
	}
	s := New(catalog, seeded())
	for i := 0; i < 200; i++ {
		got := s.Select(swingPrefs(), []string{"a"})
		if got.ID != "b" {
			t.Fatalf("expected only b, got %q", got.ID)
		}
		if got.Provenance != ProvenanceCatalog || got.Reason == nil {
			t.Fatalf("unexpected provenance %+v", got)
		}
	}
	if got := s.Select(swingPrefs(), []string{"https://x/b", "a"}); got.Provenance != ProvenanceFallback {
		t.Fatalf("url exclusion should empty the pool, got %+v", got)
	}
}

func TestSelectFallbackWhenCatalogEmpty(t *testing.T) {
	s := New(nil, seeded())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := s.Select(swingPrefs(), nil)
		if got.Provenance != ProvenanceFallback || got.URL == "" {
			t.Fatalf("unexpected fallback %+v", got)
		}
		seen[got.ID] = true
	}
	if len(seen) != len(FallbackPool) {
		t.Fatalf("expected every fallback item to be reachable, saw %v", seen)
	}

	first := FallbackPool[0].ID
	for i := 0; i < 50; i++ {
		if got := s.Select(swingPrefs(), []string{first}); got.ID == first {
			t.Fatalf("excluded fallback item should be avoided when possible")
		}
	}
}

func TestSelectReasonSample(t *testing.T) {
	catalog := []models.RecommendationCandidate{{
		ID:  "wide",
		URL: "https://x/wide",
		Tags: models.CandidateTags{
			Assets: []string{"a", "b", "c", "d", "e", "f", "g"},
		},
	}}
	got := New(catalog, seeded()).Select(swingPrefs(), nil)
	if got.Reason == nil || len(got.Reason.AssetSample) != 5 || got.Reason.InvestorType != "swing_trader" {
		t.Fatalf("unexpected reason %+v", got.Reason)
	}
}

func TestLoadCatalogFormats(t *testing.T) {
	dir := t.TempDir()
	arr := filepath.Join(dir, "arr.json")
	obj := filepath.Join(dir, "obj.json")
	_ = os.WriteFile(arr, []byte(`[{"id":"x","url":"https://x","tags":{"investor":[" Long_Term "]}}]`), 0o644)
	_ = os.WriteFile(obj, []byte(`{"items":[{"url":"https://y","tags":{"assets":["BTC",""]}}]}`), 0o644)

	a, err := LoadCatalog(arr)
	if err != nil || len(a) != 1 || a[0].Tags.Investor[0] != "long_term" {
		t.Fatalf("unexpected array catalog %+v err=%v", a, err)
	}
	o, err := LoadCatalog(obj)
	if err != nil || len(o) != 1 || o[0].ID != "https://y" || len(o[0].Tags.Assets) != 1 {
		t.Fatalf("unexpected object catalog %+v err=%v", o, err)
	}
	if _, err := LoadCatalog(filepath.Join(dir, "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

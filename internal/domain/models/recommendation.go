package models

// CandidateTags groups the three tag families of a catalog entry.
type CandidateTags struct {
	Investor []string `json:"investor"`
	Content  []string `json:"content"`
	Assets   []string `json:"assets"`
}

// RecommendationCandidate is a catalog entry. The catalog is read-only after load.
type RecommendationCandidate struct {
	ID    string        `json:"id"`
	URL   string        `json:"url"`
	Title string        `json:"title"`
	Tags  CandidateTags `json:"tags"`
}

// RecommendationReason is informational only; it records the inputs used for scoring.
type RecommendationReason struct {
	InvestorType string   `json:"investor_type"`
	ContentTags  []string `json:"content_tags"`
	AssetSample  []string `json:"asset_sample"`
}

// Recommendation is the payload of the recommendation section.
type Recommendation struct {
	ID         string                `json:"id"`
	URL        string                `json:"url"`
	Title      string                `json:"title"`
	Score      int                   `json:"score"`
	Provenance string                `json:"provenance"`
	Reason     *RecommendationReason `json:"reason,omitempty"`
}

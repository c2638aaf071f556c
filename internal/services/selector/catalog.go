package selector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
)

// LoadCatalog reads recommendation candidates from a JSON file holding either
// an array of items or an object with an "items" array. Tags are lowercased.
func LoadCatalog(path string) ([]models.RecommendationCandidate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) ([]models.RecommendationCandidate, error) {
	b = bytes.TrimSpace(b)
	var items []models.RecommendationCandidate
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Items []models.RecommendationCandidate `json:"items"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		items = wrapped.Items
	} else if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range items {
		items[i].Tags.Investor = normalize(items[i].Tags.Investor)
		items[i].Tags.Content = normalize(items[i].Tags.Content)
		items[i].Tags.Assets = normalize(items[i].Tags.Assets)
		if items[i].ID == "" {
			items[i].ID = items[i].URL
		}
	}
	return items, nil
}

func normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

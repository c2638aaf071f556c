package models

// PriceQuote is one row of the price table.
type PriceQuote struct {
	USD       float64  `json:"usd"`
	Change24h *float64 `json:"usd_24h_change,omitempty"`
}

// PriceTable maps canonical asset ids to quotes.
type PriceTable map[string]PriceQuote

// PriceCacheEntry is a cached batched quote lookup.
type PriceCacheEntry struct {
	Key       string
	Timestamp int64 // unix nanoseconds
	Data      PriceTable
}

// ChartSeries is a price series for the optional chart section.
type ChartSeries struct {
	Asset    string       `json:"asset"`
	Currency string       `json:"currency"`
	Days     int          `json:"days"`
	Points   [][2]float64 `json:"points"` // [unix ms, price]
}

// FillerItem is a light-hearted item for the optional filler section.
type FillerItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

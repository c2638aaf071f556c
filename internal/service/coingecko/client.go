package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	xhttp "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	apiKeyHeader   = "x-cg-demo-api-key"
)

// Client talks to the CoinGecko REST API. It serves both quotes and chart series.
type Client struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

// New builds a client; timeout bounds every upstream call.
func New(baseURL, apiKey string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	opts = append(opts, xhttp.WithTimeout(timeout))
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  xhttp.NewClient(opts...),
	}
}

type simplePriceRow struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

// SimplePrice fetches usd spot price and 24h change for ids in one request.
// Ids the upstream does not know are simply absent from the table. An empty
// 2xx body, which CoinGecko sends for unknown ids or when throttling, yields
// an empty table.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (models.PriceTable, error) {
	var raw map[string]simplePriceRow
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/simple/price",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"ids":                 {strings.Join(ids, ",")},
			"vs_currencies":       {"usd"},
			"include_24hr_change": {"true"},
		},
	}, &raw)
	if errors.Is(err, xhttp.ErrEmptyBody) {
		return models.PriceTable{}, nil
	}
	if err != nil {
		return nil, classify(err)
	}

	table := make(models.PriceTable, len(raw))
	for id, row := range raw {
		if row.USD == nil {
			continue
		}
		table[id] = models.PriceQuote{USD: *row.USD, Change24h: row.Change24h}
	}
	return table, nil
}

// MarketChart fetches the usd price series of one asset over the last days.
func (c *Client) MarketChart(ctx context.Context, id string, days int) (*models.ChartSeries, error) {
	if days <= 0 {
		days = 7
	}
	var raw struct {
		Prices [][2]float64 `json:"prices"`
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/coins/" + url.PathEscape(id) + "/market_chart",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"days":        {strconv.Itoa(days)},
		},
	}, &raw)
	if err != nil {
		return nil, classify(err)
	}
	return &models.ChartSeries{Asset: id, Currency: "usd", Days: days, Points: raw.Prices}, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		h[apiKeyHeader] = c.apiKey
	}
	return h
}

func classify(err error) error {
	if xhttp.StatusCode(err) == http.StatusTooManyRequests {
		return fmt.Errorf("coingecko: %w", models.ErrRateLimited)
	}
	return fmt.Errorf("coingecko: %w: %w", models.ErrUpstreamUnavailable, err)
}

var (
	_ service.QuoteSource = (*Client)(nil)
	_ service.ChartSource = (*Client)(nil)
)

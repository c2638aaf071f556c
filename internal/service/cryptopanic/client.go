package cryptopanic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
	xhttp "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/http"
)

const (
	DefaultBaseURL = "https://cryptopanic.com/api/developer/v2"
	Name           = "cryptopanic"
)

// Client reads the CryptoPanic posts feed.
type Client struct {
	baseURL string
	token   string
	client  *xhttp.Client
}

func New(baseURL, token string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	opts = append(opts, xhttp.WithTimeout(timeout))
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  xhttp.NewClient(opts...),
	}
}

func (c *Client) Name() string { return Name }

type postsResponse struct {
	Results []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		OriginalURL string `json:"original_url"`
		Slug        string `json:"slug"`
		PublishedAt string `json:"published_at"`
		Source      struct {
			Title  string `json:"title"`
			Domain string `json:"domain"`
		} `json:"source"`
	} `json:"results"`
}

// Posts returns the public news feed in upstream order. A response that is not
// JSON (e.g. an HTML challenge page) is treated as unavailable.
func (c *Client) Posts(ctx context.Context) ([]service.RawArticle, error) {
	var resp postsResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/posts/",
		Headers: map[string]string{"Accept": "application/json"},
		QueryParams: map[string][]string{
			"auth_token": {c.token},
			"public":     {"true"},
			"kind":       {"news"},
		},
		ExpectJSON: true,
	}, &resp)
	if err != nil {
		if xhttp.StatusCode(err) == http.StatusTooManyRequests {
			return nil, fmt.Errorf("cryptopanic: %w", models.ErrRateLimited)
		}
		return nil, fmt.Errorf("cryptopanic: %w: %w", models.ErrUpstreamUnavailable, err)
	}

	out := make([]service.RawArticle, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		link := r.URL
		if link == "" {
			link = r.OriginalURL
		}
		if link == "" && r.Slug != "" {
			link = "https://cryptopanic.com/news/" + r.Slug
		}
		src := r.Source.Title
		if src == "" {
			src = r.Source.Domain
		}
		out = append(out, service.RawArticle{
			Title:       title,
			Summary:     strings.TrimSpace(r.Description),
			URL:         link,
			PublishedAt: r.PublishedAt,
			Source:      src,
		})
	}
	return out, nil
}

var _ service.NewsSource = (*Client)(nil)

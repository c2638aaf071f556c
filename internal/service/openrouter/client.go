package openrouter

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

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func New(baseURL, apiKey string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts = append(opts, xhttp.WithTimeout(timeout))
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  xhttp.NewClient(opts...),
	}
}

type chatRequest struct {
	Model       string                `json:"model"`
	Messages    []service.ChatMessage `json:"messages"`
	Temperature float64               `json:"temperature"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete returns the first choice's text. An empty completion is reported
// as models.ErrUpstreamEmpty so callers can fall through to the next model.
func (c *Client) Complete(ctx context.Context, req service.CompletionRequest) (string, error) {
	var resp chatResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Content-Type":  "application/json",
		},
		Body: chatRequest{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	}, &resp)
	if err != nil {
		if xhttp.StatusCode(err) == http.StatusTooManyRequests {
			return "", fmt.Errorf("openrouter %s: %w", req.Model, models.ErrRateLimited)
		}
		return "", fmt.Errorf("openrouter %s: %w: %w", req.Model, models.ErrUpstreamUnavailable, err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("openrouter %s: %w: %s", req.Model, models.ErrUpstreamUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter %s: %w", req.Model, models.ErrUpstreamEmpty)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openrouter %s: %w", req.Model, models.ErrUpstreamEmpty)
	}
	return text, nil
}

var _ service.TextGenerator = (*Client)(nil)

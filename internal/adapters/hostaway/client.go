package hostaway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"flex_reviews/internal/adapters/httpx"
)

type Client struct {
	base      string
	accountID string
	http      *httpx.Client
}

type reviewsResponse struct {
	Status string           `json:"status"`
	Result []map[string]any `json:"result"`
	Error  string           `json:"error"`
}

func New(base, accountID, apiKey string, rps int) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("hostaway: API key is required")
	}
	if base == "" {
		return nil, errors.New("hostaway: base URL is required")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Cache-Control", "no-cache")
	return &Client{base: base, accountID: accountID, http: httpx.New("hostaway", rps, h)}, nil
}

// GetReviews returns the raw review records of the configured account.
func (c *Client) GetReviews(ctx context.Context) ([]map[string]any, error) {
	q := url.Values{}
	if c.accountID != "" {
		q.Set("accountId", c.accountID)
	}
	var out reviewsResponse
	if err := c.http.GetJSON(ctx, c.base, "/reviews", q, &out); err != nil {
		return nil, fmt.Errorf("fetch hostaway reviews: %w", err)
	}
	if out.Status == "error" {
		msg := out.Error
		if msg == "" {
			msg = "failed to fetch reviews from hostaway"
		}
		return nil, fmt.Errorf("hostaway: %s", msg)
	}
	if out.Result == nil {
		return []map[string]any{}, nil
	}
	return out.Result, nil
}

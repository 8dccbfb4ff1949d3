package places

import (
	"context"
	"fmt"
	"net/url"

	"flex_reviews/internal/adapters/httpx"
	"flex_reviews/internal/domain"
)

// Client talks to the legacy Places web service (textsearch and details).
// A client built without an API key reports Configured() == false.
type Client struct {
	base string
	key  string
	http *httpx.Client
}

type searchResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []domain.Place `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name    string           `json:"name"`
		Rating  float64          `json:"rating"`
		Reviews []map[string]any `json:"reviews"`
	} `json:"result"`
}

func New(base, key string, rps int) *Client {
	return &Client{base: base, key: key, http: httpx.New("google_places", rps, nil)}
}

func (c *Client) Configured() bool { return c != nil && c.key != "" }

func (c *Client) SearchPlaces(ctx context.Context, query string) ([]domain.Place, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("google places api key: %w", domain.ErrNotConfigured)
	}
	q := url.Values{"query": {query}, "key": {c.key}, "type": {"lodging"}}
	var out searchResponse
	if err := c.http.GetJSON(ctx, c.base, "/textsearch/json", q, &out); err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	switch out.Status {
	case "OK":
		return out.Results, nil
	case "ZERO_RESULTS":
		return []domain.Place{}, nil
	default:
		return nil, statusError(out.Status, out.ErrorMessage)
	}
}

func (c *Client) GetPlaceReviews(ctx context.Context, placeID string) ([]map[string]any, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("google places api key: %w", domain.ErrNotConfigured)
	}
	q := url.Values{"place_id": {placeID}, "fields": {"name,rating,reviews"}, "key": {c.key}}
	var out detailsResponse
	if err := c.http.GetJSON(ctx, c.base, "/details/json", q, &out); err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}
	if out.Status != "OK" {
		return nil, statusError(out.Status, out.ErrorMessage)
	}
	if out.Result.Reviews == nil {
		return []map[string]any{}, nil
	}
	return out.Result.Reviews, nil
}

func statusError(status, msg string) error {
	if msg != "" {
		return fmt.Errorf("google places api error: %s: %s", status, msg)
	}
	return fmt.Errorf("google places api error: %s", status)
}

package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "flex_reviews/internal/adapters/http_server"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/memory"
)

type apiResponse struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message"`
	Error      string             `json:"error"`
	Pagination *domain.Pagination `json:"pagination"`
}

func newTestServer(t *testing.T, opts httpserver.Options) *httptest.Server {
	t.Helper()
	repo := memory.NewSeeded()
	q := app.NewQueryService(repo, nil, nil, 0)
	c := app.NewCommandService(repo, nil)
	norm := app.NewNormalizer(repo, app.NormalizerOptions{})
	i := app.NewIngestionService(nil, nil, repo, norm, nil, 2)

	if opts.Env == "" {
		opts.Env = "development"
	}
	srv := httpserver.New(opts)
	srv.MountHandlers(httpserver.NewHandlers(q, c, i, opts.Env))
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) (*http.Response, apiResponse) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out apiResponse
	if resp.StatusCode != http.StatusNotModified {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/health", "", nil)
	if resp.StatusCode != 200 || !body.Success {
		t.Fatalf("health: %d %+v", resp.StatusCode, body)
	}
}

func TestListReviews_RatingIsMinimum(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/api/reviews?rating=4&propertyId=all", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %+v", resp.StatusCode, body)
	}
	var items []domain.Review
	if err := json.Unmarshal(body.Data, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 reviews rated >= 4, got %d", len(items))
	}
	for _, r := range items {
		if r.Rating == nil || *r.Rating < 4 {
			t.Fatalf("review %s rating below minimum", r.ID)
		}
	}
	if body.Pagination == nil || body.Pagination.Total != 5 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestListReviews_PagingAndOrder(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	_, body := do(t, "GET", ts.URL+"/api/reviews?limit=2&page=1", "", nil)
	var items []domain.Review
	_ = json.Unmarshal(body.Data, &items)
	if len(items) != 2 || items[0].ID != "5" || items[1].ID != "6" {
		t.Fatalf("expected newest first [5 6], got %+v", items)
	}
	p := body.Pagination
	if p.Page != 1 || p.Limit != 2 || p.Total != 6 || p.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestListReviews_InvalidChannel(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/api/reviews?channel=fax", "", nil)
	if resp.StatusCode != 400 || !strings.Contains(body.Message, "channel") {
		t.Fatalf("expected 400 naming channel, got %d %+v", resp.StatusCode, body)
	}
}

func TestGetReview_ETagAndNotFound(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, _ := do(t, "GET", ts.URL+"/api/reviews/1", "", nil)
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != 200 || etag == "" {
		t.Fatalf("expected 200 with ETag, got %d %q", resp.StatusCode, etag)
	}
	resp, _ = do(t, "GET", ts.URL+"/api/reviews/1", "", map[string]string{"If-None-Match": etag})
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
	resp, body := do(t, "GET", ts.URL+"/api/reviews/missing", "", nil)
	if resp.StatusCode != 404 || body.Success {
		t.Fatalf("expected 404, got %d %+v", resp.StatusCode, body)
	}
}

func TestApproval_UpdatesPropertyAverage(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "PATCH", ts.URL+"/api/reviews/3/approval", `{"isApproved":true,"isPublic":true}`, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("approval: %d %+v", resp.StatusCode, body)
	}
	var rv domain.Review
	_ = json.Unmarshal(body.Data, &rv)
	if !rv.IsApproved || !rv.IsPublic {
		t.Fatalf("flags not applied: %+v", rv)
	}

	_, body = do(t, "GET", ts.URL+"/api/properties/property-2", "", nil)
	var p domain.Property
	_ = json.Unmarshal(body.Data, &p)
	if p.TotalReviews != 3 || p.AverageRating != 4 {
		t.Fatalf("expected 3 reviews averaging 4.0, got %d %.2f", p.TotalReviews, p.AverageRating)
	}
}

func TestApproval_MissingFlag(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "PATCH", ts.URL+"/api/reviews/3/approval", `{"isPublic":true}`, nil)
	if resp.StatusCode != 400 || !strings.Contains(body.Message, "isApproved") {
		t.Fatalf("expected 400 naming isApproved, got %d %+v", resp.StatusCode, body)
	}
	resp, _ = do(t, "PATCH", ts.URL+"/api/reviews/3/approval", `{"isApproved":true,"extra":1}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("expected unknown field to be rejected, got %d", resp.StatusCode)
	}
	resp, _ = do(t, "PATCH", ts.URL+"/api/reviews/nope/approval", `{"isApproved":true}`, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown review, got %d", resp.StatusCode)
	}
}

func TestBulkApproval_CountsExistingOnly(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "PATCH", ts.URL+"/api/reviews/bulk-approval", `{"reviewIds":["1","unknown","2"],"isApproved":false}`, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("bulk: %d %+v", resp.StatusCode, body)
	}
	var out map[string]int
	_ = json.Unmarshal(body.Data, &out)
	if out["updatedCount"] != 2 {
		t.Fatalf("expected updatedCount 2, got %v", out)
	}

	resp, _ = do(t, "PATCH", ts.URL+"/api/reviews/bulk-approval", `{"reviewIds":[],"isApproved":true}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for empty id list, got %d", resp.StatusCode)
	}
}

func TestResponse_Boundaries(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	cases := []struct {
		text string
		want int
	}{
		{"", 400},
		{"   ", 400},
		{strings.Repeat("x", 1001), 400},
		{strings.Repeat("x", 1000), 200},
	}
	for _, c := range cases {
		b, _ := json.Marshal(map[string]string{"response": c.text})
		resp, body := do(t, "POST", ts.URL+"/api/reviews/4/response", string(b), nil)
		if resp.StatusCode != c.want {
			t.Fatalf("len %d: expected %d, got %d %+v", len(c.text), c.want, resp.StatusCode, body)
		}
	}

	do(t, "POST", ts.URL+"/api/reviews/4/response", `{"response":"Thanks for staying"}`, nil)
	_, body := do(t, "GET", ts.URL+"/api/reviews/4", "", nil)
	var rv domain.Review
	_ = json.Unmarshal(body.Data, &rv)
	if rv.Response != "Thanks for staying" {
		t.Fatalf("response not stored: %q", rv.Response)
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	_, body := do(t, "GET", ts.URL+"/api/reviews/stats?propertyId=property-1", "", nil)
	var st domain.ReviewStats
	if err := json.Unmarshal(body.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalReviews != 3 || st.RatingDistribution[5] != 2 || st.RatingDistribution[4] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestCreateProperty(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "POST", ts.URL+"/api/properties",
		`{"name":"Canal View Loft","address":"1 Canal St","city":"London","country":"UK","imageUrl":"https://img.test/a.jpg","features":{"bedrooms":1,"guests":2}}`, nil)
	if resp.StatusCode != 201 {
		t.Fatalf("create: %d %+v", resp.StatusCode, body)
	}
	var p domain.Property
	_ = json.Unmarshal(body.Data, &p)
	if p.ID == "" || !p.IsActive || p.TotalReviews != 0 {
		t.Fatalf("unexpected property: %+v", p)
	}

	resp, body = do(t, "POST", ts.URL+"/api/properties",
		`{"name":"X","address":"A","city":"C","country":"K","imageUrl":"not a url"}`, nil)
	if resp.StatusCode != 400 || !strings.Contains(body.Message, "imageUrl") {
		t.Fatalf("expected 400 naming imageUrl, got %d %+v", resp.StatusCode, body)
	}
	resp, body = do(t, "POST", ts.URL+"/api/properties",
		`{"name":"X","address":"A","city":"C","country":"K","features":{"guests":0}}`, nil)
	if resp.StatusCode != 400 || !strings.Contains(body.Message, "features.guests") {
		t.Fatalf("expected 400 naming features.guests, got %d %+v", resp.StatusCode, body)
	}
}

func TestSync_NotConfiguredAndMissingName(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/api/reviews/hostaway", "", nil)
	if resp.StatusCode != 500 || !strings.Contains(body.Error, "not configured") {
		t.Fatalf("expected 500 not configured, got %d %+v", resp.StatusCode, body)
	}
	resp, body = do(t, "GET", ts.URL+"/api/reviews/google", "", nil)
	if resp.StatusCode != 400 || !strings.Contains(body.Message, "propertyName") {
		t.Fatalf("expected 400 naming propertyName, got %d %+v", resp.StatusCode, body)
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/api/dashboard", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("dashboard: %d %+v", resp.StatusCode, body)
	}
	var d domain.Dashboard
	if err := json.Unmarshal(body.Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.TotalProperties != 2 || d.TotalReviews != 5 {
		t.Fatalf("unexpected totals: %+v", d)
	}
	if len(d.IssuesToAddress) != 1 || d.IssuesToAddress[0].PropertyID != "property-2" || d.IssuesToAddress[0].Count != 1 {
		t.Fatalf("expected one pending-review issue for property-2, got %+v", d.IssuesToAddress)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{RateLimit: true, RateLimitWindow: time.Minute, RateLimitMax: 2})
	for i := 0; i < 2; i++ {
		if resp, _ := do(t, "GET", ts.URL+"/api/properties", "", nil); resp.StatusCode != 200 {
			t.Fatalf("request %d: %d", i, resp.StatusCode)
		}
	}
	resp, body := do(t, "GET", ts.URL+"/api/properties", "", nil)
	if resp.StatusCode != http.StatusTooManyRequests || body.Success {
		t.Fatalf("expected 429, got %d %+v", resp.StatusCode, body)
	}
	// health is outside /api and never limited
	if resp, _ := do(t, "GET", ts.URL+"/health", "", nil); resp.StatusCode != 200 {
		t.Fatalf("health limited: %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, httpserver.Options{})
	resp, body := do(t, "GET", ts.URL+"/api/nope", "", nil)
	if resp.StatusCode != 404 || body.Error != "Route not found" {
		t.Fatalf("expected envelope 404, got %d %+v", resp.StatusCode, body)
	}
}

type slowHostaway struct{ delay time.Duration }

func (h slowHostaway) GetReviews(ctx context.Context) ([]map[string]any, error) {
	select {
	case <-time.After(h.delay):
		return []map[string]any{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestTimeouts_SyncRoutesGetLongerBudget(t *testing.T) {
	repo := memory.NewSeeded()
	q := app.NewQueryService(repo, nil, nil, 0)
	c := app.NewCommandService(repo, nil)
	norm := app.NewNormalizer(repo, app.NormalizerOptions{})
	i := app.NewIngestionService(slowHostaway{delay: 150 * time.Millisecond}, nil, repo, norm, nil, 2)

	srv := httpserver.New(httpserver.Options{
		Env:            "development",
		RequestTimeout: 50 * time.Millisecond,
		SyncTimeout:    5 * time.Second,
	})
	srv.MountHandlers(httpserver.NewHandlers(q, c, i, "development"))
	srv.Mount("/slow", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	resp, body := do(t, "GET", ts.URL+"/slow", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || body.Success || body.Error != "Request timeout" {
		t.Fatalf("expected 503 envelope, got %d %+v", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("timeout content type = %q", ct)
	}

	resp, body = do(t, "GET", ts.URL+"/api/reviews/hostaway", "", nil)
	if resp.StatusCode != 200 || !body.Success || !strings.Contains(body.Message, "0 reviews") {
		t.Fatalf("sync cut short: %d %+v", resp.StatusCode, body)
	}

	// ordinary routes still answer inside the short budget
	if resp, _ := do(t, "GET", ts.URL+"/api/properties", "", nil); resp.StatusCode != 200 {
		t.Fatalf("properties: %d", resp.StatusCode)
	}
	if resp, _ := do(t, "GET", ts.URL+"/api/reviews/1", "", nil); resp.StatusCode != 200 {
		t.Fatalf("review by id: %d", resp.StatusCode)
	}
}

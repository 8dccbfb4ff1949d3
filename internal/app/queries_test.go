package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct {
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) has(key string) bool { _, ok := c.data[key]; return ok }

var errDown = errors.New("connection refused")

// downStore fails every review read, like an unreachable database.
type downStore struct{ *memory.Repo }

func (downStore) ListReviews(context.Context, domain.ReviewFilter, domain.PageQuery) (domain.ReviewsPage, error) {
	return domain.ReviewsPage{}, errDown
}

func (downStore) GetReview(context.Context, string) (domain.Review, error) {
	return domain.Review{}, errDown
}

// countingStore records how often stats are computed from the store.
type countingStore struct {
	*memory.Repo
	scans int
}

func (s *countingStore) ScanReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	s.scans++
	return s.Repo.ScanReviews(ctx, f)
}

// ---- tests ----

func TestListReviews_FallsBackToFixtures(t *testing.T) {
	ctx := context.Background()
	q := app.NewQueryService(downStore{memory.New()}, memory.NewSeeded(), nil, time.Minute)

	page, err := q.ListReviews(ctx, domain.ReviewFilter{}, domain.PageQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.Total != 6 || len(page.Items) != 6 {
		t.Fatalf("fallback page total=%d items=%d", page.Pagination.Total, len(page.Items))
	}
	if page.Items[0].ID != "5" {
		t.Fatalf("newest first, got %s", page.Items[0].ID)
	}

	rv, err := q.GetReview(ctx, "2")
	if err != nil || rv.GuestName != "Mike Chen" {
		t.Fatalf("fallback get = %+v, %v", rv, err)
	}
}

func TestListReviews_NoFallbackSurfacesError(t *testing.T) {
	q := app.NewQueryService(downStore{memory.New()}, nil, nil, time.Minute)
	if _, err := q.ListReviews(context.Background(), domain.ReviewFilter{}, domain.PageQuery{}); !errors.Is(err, errDown) {
		t.Fatalf("err = %v", err)
	}
}

func TestListReviews_EmptyIsNotNil(t *testing.T) {
	q := app.NewQueryService(memory.New(), nil, nil, time.Minute)
	page, err := q.ListReviews(context.Background(), domain.ReviewFilter{}, domain.PageQuery{Page: 3})
	if err != nil {
		t.Fatal(err)
	}
	if page.Items == nil || page.Pagination.Page != 3 || page.Pagination.Limit != domain.DefaultPageLimit {
		t.Fatalf("page = %+v", page)
	}
}

func TestGetReview_NotFoundSkipsFallback(t *testing.T) {
	q := app.NewQueryService(memory.New(), memory.NewSeeded(), nil, time.Minute)
	if _, err := q.GetReview(context.Background(), "1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound from the primary store", err)
	}
}

func TestGetStats_CacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Repo: memory.NewSeeded()}
	cache := newFakeCache()
	q := app.NewQueryService(store, nil, cache, time.Minute)

	first, err := q.GetStats(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.GetStats(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if store.scans != 1 || cache.sets != 1 {
		t.Fatalf("scans=%d sets=%d, want 1 and 1", store.scans, cache.sets)
	}
	// five approved fixtures: 5, 4, 5, 5, 4
	if first.TotalReviews != 5 || second.TotalReviews != 5 || second.AverageRating != 4.6 {
		t.Fatalf("stats first=%+v second=%+v", first, second)
	}
	if second.ChannelBreakdown[domain.ChannelAirbnb] != 3 {
		t.Fatalf("channels = %v", second.ChannelBreakdown)
	}
}

func TestGetStats_ScopedToProperty(t *testing.T) {
	q := app.NewQueryService(memory.NewSeeded(), nil, nil, time.Minute)
	st, err := q.GetStats(context.Background(), "property-2")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalReviews != 2 || st.AverageRating != 4.5 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDashboard_CachedUntilApprovalChanges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	cache := newFakeCache()
	q := app.NewQueryService(store, nil, cache, time.Minute)
	cmd := app.NewCommandService(store, cache)

	d, err := q.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalReviews != 5 || d.TotalProperties != 2 || len(d.RecentReviews) != 5 {
		t.Fatalf("dashboard = %+v", d)
	}
	if !cache.has("dashboard") {
		t.Fatal("dashboard not cached")
	}

	if _, err := cmd.SetApproval(ctx, "3", true, nil); err != nil {
		t.Fatal(err)
	}
	if cache.has("dashboard") {
		t.Fatal("approval should drop the cached dashboard")
	}
	d, err = q.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalReviews != 6 {
		t.Fatalf("total after approval = %d, want 6", d.TotalReviews)
	}
}

func TestDashboard_ShowsNewResponse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	cache := newFakeCache()
	q := app.NewQueryService(store, nil, cache, time.Minute)
	cmd := app.NewCommandService(store, cache)

	d, err := q.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	latest := d.RecentReviews[0]
	if latest.Response != "" {
		t.Fatalf("review %s already answered", latest.ID)
	}

	if _, err := cmd.AddResponse(ctx, latest.ID, "thanks for staying"); err != nil {
		t.Fatal(err)
	}
	if cache.has("dashboard") || cache.has("stats:"+latest.PropertyID) {
		t.Fatal("response should drop the cached dashboard and property stats")
	}
	d, err = q.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.RecentReviews[0].ID != latest.ID || d.RecentReviews[0].Response != "thanks for staying" {
		t.Fatalf("recent[0] = %s response %q", d.RecentReviews[0].ID, d.RecentReviews[0].Response)
	}
}

func TestAddResponse_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Set(ctx, "dashboard", domain.Dashboard{TotalReviews: 5}, 60)
	cmd := app.NewCommandService(memory.NewSeeded(), cache)

	if _, err := cmd.AddResponse(ctx, "nope", "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if !cache.has("dashboard") {
		t.Fatal("failed response should not touch the cache")
	}
}

func TestDashboard_Issues(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	q := app.NewQueryService(store, nil, nil, time.Minute)

	low, _ := store.InsertProperty(ctx, domain.Property{Name: "Damp Basement", IsActive: true})
	_ = store.UpdatePropertyAggregate(ctx, low.ID, domain.PropertyAggregate{TotalReviews: 2, AverageRating: 2.0})
	fresh, _ := store.InsertProperty(ctx, domain.Property{Name: "Brand New", IsActive: true})

	d, err := q.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}

	byProp := map[string]domain.Issue{}
	for _, is := range d.IssuesToAddress {
		byProp[is.PropertyID+"/"+is.Issue] = is
	}
	if is, ok := byProp[low.ID+"/Low average rating"]; !ok || is.Severity != domain.SeverityHigh {
		t.Fatalf("low rating issue = %+v (found %v)", is, ok)
	}
	if is, ok := byProp["property-2/Pending reviews"]; !ok || is.Count != 1 || is.Severity != domain.SeverityLow {
		t.Fatalf("pending issue = %+v (found %v)", is, ok)
	}
	for k := range byProp {
		if k == fresh.ID+"/Low average rating" {
			t.Fatal("property without reviews flagged as low rated")
		}
	}
	if len(d.TopPerformingProperties) != 4 || d.TopPerformingProperties[0].ID != "property-1" {
		t.Fatalf("top = %+v", d.TopPerformingProperties)
	}
}

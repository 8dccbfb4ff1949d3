package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func TestSetApproval_RecomputesPropertyAverage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	cache := newFakeCache()
	cmd := app.NewCommandService(store, cache)

	// property-2 starts with reviews 4 (5.0) and 6 (4.0) approved, 3 (3.0) pending
	_ = cache.Set(ctx, "stats:property-2", domain.ReviewStats{TotalReviews: 99}, 60)

	rv, err := cmd.SetApproval(ctx, "3", true, ptr(true))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !rv.IsApproved || !rv.IsPublic {
		t.Fatalf("review after approval = %+v", rv)
	}

	p, err := store.GetProperty(ctx, "property-2")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalReviews != 3 || p.AverageRating != 4 {
		t.Fatalf("aggregate total=%d avg=%v, want 3 and 4", p.TotalReviews, p.AverageRating)
	}
	if p.LastReviewDate != "2024-01-18T11:30:00Z" {
		t.Fatalf("last review = %q", p.LastReviewDate)
	}
	if cache.has("stats:property-2") || cache.has("stats:all") {
		t.Fatal("stats cache should be invalidated")
	}
}

func TestSetApproval_LeavesVisibilityWhenOmitted(t *testing.T) {
	ctx := context.Background()
	cmd := app.NewCommandService(memory.NewSeeded(), nil)

	rv, err := cmd.SetApproval(ctx, "1", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rv.IsApproved || !rv.IsPublic {
		t.Fatalf("approved=%v public=%v, want false and unchanged true", rv.IsApproved, rv.IsPublic)
	}
}

func TestSetApproval_UnknownID(t *testing.T) {
	cmd := app.NewCommandService(memory.NewSeeded(), nil)
	if _, err := cmd.SetApproval(context.Background(), "nope", true, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBulkSetApproval_CountsExistingOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	cmd := app.NewCommandService(store, nil)

	n, err := cmd.BulkSetApproval(ctx, []string{"3", "missing", "1"}, false, ptr(false))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("updated %d, want 2", n)
	}
	for _, id := range []string{"1", "3"} {
		rv, _ := store.GetReview(ctx, id)
		if rv.IsApproved || rv.IsPublic {
			t.Fatalf("review %s = approved %v public %v", id, rv.IsApproved, rv.IsPublic)
		}
	}
	// property-1 keeps reviews 2 (4.0) and 5 (5.0)
	p, _ := store.GetProperty(ctx, "property-1")
	if p.TotalReviews != 2 || p.AverageRating != 4.5 {
		t.Fatalf("property-1 aggregate total=%d avg=%v", p.TotalReviews, p.AverageRating)
	}
}

func TestBulkSetApproval_Validation(t *testing.T) {
	cmd := app.NewCommandService(memory.NewSeeded(), nil)

	if _, err := cmd.BulkSetApproval(context.Background(), nil, true, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty ids err = %v", err)
	}
	n, err := cmd.BulkSetApproval(context.Background(), []string{"x", "y"}, true, nil)
	if err != nil || n != 0 {
		t.Fatalf("unknown ids = %d, %v", n, err)
	}
}

func TestAddResponse_Length(t *testing.T) {
	ctx := context.Background()
	cmd := app.NewCommandService(memory.NewSeeded(), nil)

	cases := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"empty", "", true},
		{"blank", "   \n\t", true},
		{"one", "x", false},
		{"max", strings.Repeat("é", domain.MaxResponseLength), false},
		{"too long", strings.Repeat("x", domain.MaxResponseLength+1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cmd.AddResponse(ctx, "4", tc.text)
			if tc.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestAddResponse_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	cmd := app.NewCommandService(store, nil)

	if _, err := cmd.AddResponse(ctx, "4", "  Thanks for staying with us!  "); err != nil {
		t.Fatal(err)
	}
	rv, err := store.GetReview(ctx, "4")
	if err != nil {
		t.Fatal(err)
	}
	if rv.Response != "Thanks for staying with us!" {
		t.Fatalf("response = %q", rv.Response)
	}

	if _, err := cmd.AddResponse(ctx, "nope", "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
}

func TestCreateProperty_ResetsAggregates(t *testing.T) {
	ctx := context.Background()
	cmd := app.NewCommandService(memory.New(), nil)

	p, err := cmd.CreateProperty(ctx, domain.Property{
		ID:            "client-picked",
		Name:          "Camden Loft",
		City:          "London",
		TotalReviews:  40,
		AverageRating: 5,
		IsActive:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.ID == "client-picked" {
		t.Fatalf("id = %q, want a generated one", p.ID)
	}
	if p.TotalReviews != 0 || p.AverageRating != 0 {
		t.Fatalf("aggregate carried over: %+v", p)
	}

	if _, err := cmd.CreateProperty(ctx, domain.Property{Name: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank name err = %v", err)
	}
}

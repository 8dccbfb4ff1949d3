package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/domain"
)

func TestCache_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	var miss domain.ReviewStats
	ok, err := c.Get(ctx, "stats:all", &miss)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	in := domain.ReviewStats{
		TotalReviews:       2,
		AverageRating:      4.5,
		RatingDistribution: map[int]int{4: 1, 5: 1},
		CategoryAverages:   map[domain.Category]float64{domain.CategoryCleanliness: 4.5},
		ChannelBreakdown:   map[domain.Channel]int{domain.ChannelAirbnb: 2},
		MonthlyTrends:      []domain.MonthlyTrend{},
	}
	if err := c.Set(ctx, "stats:all", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.ReviewStats
	ok, err = c.Get(ctx, "stats:all", &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if out.TotalReviews != 2 || out.RatingDistribution[5] != 1 || out.ChannelBreakdown[domain.ChannelAirbnb] != 2 {
		t.Fatalf("unexpected value: %+v", out)
	}

	mr.FastForward(61 * time.Second)
	ok, _ = c.Get(ctx, "stats:all", &out)
	if ok {
		t.Fatal("expected key to expire")
	}
}

func TestCache_Del(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "dashboard", map[string]int{"totalReviews": 1}, 60)
	if err := c.Del(ctx, "dashboard"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if mr.Exists("dashboard") {
		t.Fatal("key still present after Del")
	}
}

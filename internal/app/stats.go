package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"flex_reviews/internal/domain"
)

const trendMonths = 12

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// ComputeStats aggregates the given reviews. Callers pass the approved set.
func ComputeStats(reviews []domain.Review) domain.ReviewStats {
	st := domain.ReviewStats{
		TotalReviews:       len(reviews),
		RatingDistribution: map[int]int{},
		CategoryAverages:   map[domain.Category]float64{},
		ChannelBreakdown:   map[domain.Channel]int{},
		MonthlyTrends:      []domain.MonthlyTrend{},
	}
	if len(reviews) == 0 {
		return st
	}

	type acc struct {
		sum   float64
		n     int
		count int
	}
	var overall acc
	cats := map[domain.Category]*acc{}
	months := map[string]*acc{}

	for _, rv := range reviews {
		st.ChannelBreakdown[rv.Channel]++
		if rv.Rating != nil {
			overall.sum += *rv.Rating
			overall.n++
			bucket := int(math.Max(1, math.Min(5, math.Round(*rv.Rating))))
			st.RatingDistribution[bucket]++
		}
		for _, c := range rv.Categories {
			a := cats[c.Category]
			if a == nil {
				a = &acc{}
				cats[c.Category] = a
			}
			a.sum += float64(c.Rating)
			a.n++
		}
		if t, ok := rv.SubmittedTime(); ok {
			key := t.Format("2006-01")
			a := months[key]
			if a == nil {
				a = &acc{}
				months[key] = a
			}
			a.count++
			if rv.Rating != nil {
				a.sum += *rv.Rating
				a.n++
			}
		}
	}

	if overall.n > 0 {
		st.AverageRating = round1(overall.sum / float64(overall.n))
	}
	for c, a := range cats {
		st.CategoryAverages[c] = round1(a.sum / float64(a.n))
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > trendMonths {
		keys = keys[:trendMonths]
	}
	for _, k := range keys {
		a := months[k]
		mt := domain.MonthlyTrend{Month: k, Count: a.count}
		if a.n > 0 {
			mt.AverageRating = round1(a.sum / float64(a.n))
		}
		st.MonthlyTrends = append(st.MonthlyTrends, mt)
	}
	return st
}

// AggregateProperty derives a property's cached aggregate from its approved reviews.
func AggregateProperty(approved []domain.Review) domain.PropertyAggregate {
	st := ComputeStats(approved)
	return domain.PropertyAggregate{
		TotalReviews:   st.TotalReviews,
		AverageRating:  st.AverageRating,
		LastReviewDate: latestSubmitted(approved),
	}
}

// latestSubmitted prefers parseable timestamps and falls back to string order.
func latestSubmitted(reviews []domain.Review) string {
	var (
		best       string
		bestT      time.Time
		bestParsed bool
	)
	for _, rv := range reviews {
		t, ok := rv.SubmittedTime()
		switch {
		case ok && (!bestParsed || t.After(bestT)):
			best, bestT, bestParsed = rv.SubmittedAt, t, true
		case !ok && !bestParsed && rv.SubmittedAt > best:
			best = rv.SubmittedAt
		}
	}
	return best
}

// recomputeProperty rewrites the aggregate cache of one property.
func recomputeProperty(ctx context.Context, store domain.Store, propertyID string) (domain.PropertyAggregate, error) {
	approved := true
	reviews, err := store.ScanReviews(ctx, domain.ReviewFilter{PropertyID: propertyID, IsApproved: &approved})
	if err != nil {
		return domain.PropertyAggregate{}, fmt.Errorf("scan approved reviews: %w", err)
	}
	agg := AggregateProperty(reviews)
	if err := store.UpdatePropertyAggregate(ctx, propertyID, agg); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return agg, fmt.Errorf("update property %s: %w", propertyID, err)
	}
	return agg, nil
}

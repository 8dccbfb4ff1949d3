package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

const (
	recentReviewsLimit = 10
	topPropertiesLimit = 5
	lowRatingThreshold = 3.5
)

type QueryService struct {
	store    domain.Store
	fallback domain.ReviewReader
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewQueryService wires the read paths. fallback may be nil; when set, review
// listing and lookup use it if the primary store fails.
func NewQueryService(s domain.Store, fallback domain.ReviewReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, fallback: fallback, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, f domain.ReviewFilter, pg domain.PageQuery) (domain.ReviewsPage, error) {
	pg = pg.Normalize()
	out, err := s.store.ListReviews(ctx, f, pg)
	if err != nil && s.fallback != nil {
		log.Warn().Err(err).Msg("review query failed, serving fixtures")
		out, err = s.fallback.ListReviews(ctx, f, pg)
	}
	out.Items = nonNil(out.Items)
	return out, err
}

func (s *QueryService) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := s.store.GetReview(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && s.fallback != nil {
		log.Warn().Err(err).Str("id", id).Msg("review lookup failed, checking fixtures")
		return s.fallback.GetReview(ctx, id)
	}
	return rv, err
}

// GetStats aggregates approved reviews, optionally scoped to one property.
func (s *QueryService) GetStats(ctx context.Context, propertyID string) (domain.ReviewStats, error) {
	key := statsKey(propertyID)
	var st domain.ReviewStats
	if s.cacheGet(ctx, key, &st) {
		return st, nil
	}
	approved := true
	reviews, err := s.store.ScanReviews(ctx, domain.ReviewFilter{PropertyID: propertyID, IsApproved: &approved})
	if err != nil {
		return domain.ReviewStats{}, err
	}
	st = ComputeStats(reviews)
	s.cacheSet(ctx, key, st)
	return st, nil
}

func (s *QueryService) ListProperties(ctx context.Context, activeOnly bool) ([]domain.Property, error) {
	return s.store.ListProperties(ctx, domain.PropertiesQuery{ActiveOnly: activeOnly})
}

func (s *QueryService) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	return s.store.GetProperty(ctx, id)
}

func (s *QueryService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var d domain.Dashboard
	if s.cacheGet(ctx, dashboardKey, &d) {
		return d, nil
	}

	props, err := s.store.ListProperties(ctx, domain.PropertiesQuery{ActiveOnly: true})
	if err != nil {
		return domain.Dashboard{}, err
	}
	approved := true
	recent, err := s.store.ListReviews(ctx, domain.ReviewFilter{IsApproved: &approved}, domain.PageQuery{Page: 1, Limit: recentReviewsLimit})
	if err != nil {
		return domain.Dashboard{}, err
	}
	st, err := s.GetStats(ctx, "")
	if err != nil {
		return domain.Dashboard{}, err
	}
	issues, err := s.issues(ctx, props)
	if err != nil {
		// partial issue list is still useful on the dashboard
		log.Error().Err(err).Msg("collect dashboard issues failed")
	}

	top := props
	if len(top) > topPropertiesLimit {
		top = top[:topPropertiesLimit]
	}
	d = domain.Dashboard{
		TotalReviews:            st.TotalReviews,
		TotalProperties:         len(props),
		AverageRating:           st.AverageRating,
		Properties:              nonNil(props),
		RecentReviews:           nonNil(recent.Items),
		TopPerformingProperties: nonNil(top),
		IssuesToAddress:         nonNil(issues),
		Stats:                   st,
	}
	s.cacheSet(ctx, dashboardKey, d)
	return d, nil
}

// issues lists low-rated active properties and properties with reviews
// waiting for moderation.
func (s *QueryService) issues(ctx context.Context, active []domain.Property) ([]domain.Issue, error) {
	var out []domain.Issue
	for _, p := range active {
		if p.TotalReviews == 0 || p.AverageRating >= lowRatingThreshold {
			continue
		}
		sev := domain.SeverityLow
		switch {
		case p.AverageRating < 2.5:
			sev = domain.SeverityHigh
		case p.AverageRating < 3:
			sev = domain.SeverityMedium
		}
		out = append(out, domain.Issue{PropertyID: p.ID, PropertyName: p.Name, Issue: "Low average rating", Count: 1, Severity: sev})
	}

	pending := false
	waiting, err := s.store.ScanReviews(ctx, domain.ReviewFilter{IsApproved: &pending})
	if err != nil {
		return out, err
	}
	counts := map[string]int{}
	var order []string
	for _, rv := range waiting {
		if rv.PropertyID == "" {
			continue
		}
		if counts[rv.PropertyID] == 0 {
			order = append(order, rv.PropertyID)
		}
		counts[rv.PropertyID]++
	}
	for _, pid := range order {
		p, err := s.store.GetProperty(ctx, pid)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return out, err
		}
		n := counts[pid]
		sev := domain.SeverityLow
		switch {
		case n > 10:
			sev = domain.SeverityHigh
		case n > 5:
			sev = domain.SeverityMedium
		}
		out = append(out, domain.Issue{PropertyID: p.ID, PropertyName: p.Name, Issue: "Pending reviews", Count: n, Severity: sev})
	}
	return out, nil
}

func (s *QueryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (s *QueryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

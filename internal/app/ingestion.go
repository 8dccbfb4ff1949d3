package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

type IngestionService struct {
	hostaway domain.HostawayClient
	places   domain.PlacesClient
	store    domain.Store
	norm     *Normalizer
	cache    domain.Cache
	workers  int
}

func NewIngestionService(h domain.HostawayClient, p domain.PlacesClient, store domain.Store, norm *Normalizer, cache domain.Cache, workers int) *IngestionService {
	if workers <= 0 {
		workers = 4
	}
	return &IngestionService{hostaway: h, places: p, store: store, norm: norm, cache: cache, workers: workers}
}

// SyncHostaway pulls every review from the channel manager, stores the new
// ones and recomputes the aggregates of all active properties.
func (s *IngestionService) SyncHostaway(ctx context.Context) (domain.SyncResult, error) {
	if s.hostaway == nil {
		return domain.SyncResult{}, fmt.Errorf("hostaway client: %w", domain.ErrNotConfigured)
	}
	log.Info().Msg("fetching reviews from hostaway")
	raws, err := s.hostaway.GetReviews(ctx)
	if err != nil {
		observability.ObserveSync(string(domain.ChannelHostaway), "error")
		return domain.SyncResult{}, fmt.Errorf("fetch hostaway reviews: %w", err)
	}

	reviews := s.norm.Normalize(ctx, domain.ChannelHostaway, raws, mapHostawayReview)
	s.recomputeActive(ctx)
	observability.ObserveSync(string(domain.ChannelHostaway), "ok")

	log.Info().Int("fetched", len(raws)).Int("normalized", len(reviews)).Msg("hostaway sync done")
	return domain.SyncResult{
		Count:   len(reviews),
		Message: fmt.Sprintf("Successfully synced %d reviews from Hostaway", len(reviews)),
	}, nil
}

// FetchGoogleReviews looks the property up on the places API, takes the most
// relevant match and stores its reviews.
func (s *IngestionService) FetchGoogleReviews(ctx context.Context, propertyName string) ([]domain.Review, error) {
	if s.places == nil || !s.places.Configured() {
		return nil, fmt.Errorf("google places api key: %w", domain.ErrNotConfigured)
	}
	places, err := s.places.SearchPlaces(ctx, propertyName)
	if err != nil {
		return nil, fmt.Errorf("search places for %q: %w", propertyName, err)
	}
	if len(places) == 0 {
		log.Warn().Str("property", propertyName).Msg("no places found")
		return []domain.Review{}, nil
	}

	raws, err := s.places.GetPlaceReviews(ctx, places[0].PlaceID)
	if err != nil {
		return nil, fmt.Errorf("place reviews %s: %w", places[0].PlaceID, err)
	}
	reviews := s.norm.Normalize(ctx, domain.ChannelGoogle, raws, googleMapper(propertyName))
	invalidateAggregates(ctx, s.cache)

	log.Info().Str("property", propertyName).Str("place", places[0].Name).Int("count", len(reviews)).Msg("google reviews fetched")
	return reviews, nil
}

// SyncAllGoogle runs FetchGoogleReviews for every active property with bounded
// concurrency. A failing property is logged and skipped.
func (s *IngestionService) SyncAllGoogle(ctx context.Context) (domain.SyncResult, error) {
	if s.places == nil || !s.places.Configured() {
		return domain.SyncResult{}, fmt.Errorf("google places api key: %w", domain.ErrNotConfigured)
	}
	props, err := s.store.ListProperties(ctx, domain.PropertiesQuery{ActiveOnly: true})
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("list properties: %w", err)
	}

	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup
	var total int64

	for _, p := range props {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer sem.Release(1)

			reviews, err := s.FetchGoogleReviews(ctx, name)
			if err != nil {
				observability.ObserveSync(string(domain.ChannelGoogle), "error")
				log.Warn().Err(err).Str("property", name).Msg("google sync failed")
				return
			}
			observability.ObserveSync(string(domain.ChannelGoogle), "ok")
			atomic.AddInt64(&total, int64(len(reviews)))
		}(p.Name)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return domain.SyncResult{}, ctx.Err()
	}
	n := int(atomic.LoadInt64(&total))
	return domain.SyncResult{
		Count:   n,
		Message: fmt.Sprintf("Successfully synced %d Google reviews for %d properties", n, len(props)),
	}, nil
}

func (s *IngestionService) recomputeActive(ctx context.Context) {
	props, err := s.store.ListProperties(ctx, domain.PropertiesQuery{ActiveOnly: true})
	if err != nil {
		log.Error().Err(err).Msg("list properties for recompute failed")
		return
	}
	ids := make([]string, 0, len(props))
	for _, p := range props {
		if _, err := recomputeProperty(ctx, s.store, p.ID); err != nil {
			log.Error().Err(err).Str("property", p.ID).Msg("recompute property stats failed")
		}
		ids = append(ids, p.ID)
	}
	invalidateAggregates(ctx, s.cache, ids...)
	log.Info().Int("properties", len(props)).Msg("updated property statistics")
}

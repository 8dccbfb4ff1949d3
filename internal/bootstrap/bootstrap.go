// Package bootstrap builds the service graph shared by the API and the syncer.
package bootstrap

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/hostaway"
	"flex_reviews/internal/adapters/places"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage"
	"flex_reviews/internal/storage/memory"
)

type Services struct {
	Store     domain.Store
	Query     *app.QueryService
	Commands  *app.CommandService
	Ingestion *app.IngestionService

	closers []func()
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func Build(ctx context.Context, cfg shared.Config) (*Services, error) {
	s := &Services{}

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.Store = store
	s.closers = append(s.closers, closeStore)
	log.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	// nil interfaces below mean "disabled"; never assign a typed nil
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache disabled")
			_ = rc.Close()
		} else {
			cache = rc
			s.closers = append(s.closers, func() { _ = rc.Close() })
		}
	}

	var hc domain.HostawayClient
	if cfg.HostawayKey != "" {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.UpstreamRPS)
		if err != nil {
			s.Close()
			return nil, err
		}
		hc = c
	}
	pc := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.UpstreamRPS)

	var fallback domain.ReviewReader
	if cfg.FallbackFixtures && cfg.StoreDriver != "memory" {
		fallback = memory.NewSeeded()
	}

	norm := app.NewNormalizer(store, app.NormalizerOptions{
		UnknownCategory:      cfg.UnknownCategory,
		SynthesizeCategories: cfg.SynthesizeCategories,
	})
	s.Query = app.NewQueryService(store, fallback, cache, cfg.CacheTTL)
	s.Commands = app.NewCommandService(store, cache)
	s.Ingestion = app.NewIngestionService(hc, pc, store, norm, cache, cfg.SyncWorkers)
	return s, nil
}

// Command syncer pulls reviews from the upstream channels once and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/bootstrap"
	"flex_reviews/internal/shared"
)

func main() {
	source := flag.String("source", "all", "hostaway|google|all")
	property := flag.String("property", "", "sync Google reviews for this property name only")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	svc, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer svc.Close()

	log.Info().Str("source", *source).Int("workers", cfg.SyncWorkers).Msg("syncer starting")

	failed := false
	if *source == "hostaway" || *source == "all" {
		res, err := svc.Ingestion.SyncHostaway(ctx)
		if err != nil {
			log.Error().Err(err).Msg("hostaway sync failed")
			failed = true
		} else {
			log.Info().Int("count", res.Count).Msg(res.Message)
		}
	}
	if *source == "google" || *source == "all" {
		if *property != "" {
			reviews, err := svc.Ingestion.FetchGoogleReviews(ctx, *property)
			if err != nil {
				log.Error().Err(err).Str("property", *property).Msg("google sync failed")
				failed = true
			} else {
				log.Info().Int("count", len(reviews)).Str("property", *property).Msg("google reviews synced")
			}
		} else {
			res, err := svc.Ingestion.SyncAllGoogle(ctx)
			if err != nil {
				log.Error().Err(err).Msg("google sync failed")
				failed = true
			} else {
				log.Info().Int("count", res.Count).Msg(res.Message)
			}
		}
	}
	if *source != "hostaway" && *source != "google" && *source != "all" {
		log.Error().Str("source", *source).Msg("unknown source")
		failed = true
	}

	if failed {
		svc.Close()
		os.Exit(1)
	}
	log.Info().Msg("sync completed")
}

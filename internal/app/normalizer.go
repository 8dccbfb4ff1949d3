package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

type NormalizerOptions struct {
	// UnknownCategory receives category labels missing from the mapping table.
	UnknownCategory domain.Category
	// SynthesizeCategories fills category ratings from the overall rating when
	// a record has none.
	SynthesizeCategories bool
	// Jitter returns values in [0,1); defaults to math/rand.
	Jitter func() float64
}

// Normalizer turns raw channel payloads into stored reviews.
type Normalizer struct {
	store domain.Store
	opts  NormalizerOptions
}

func NewNormalizer(store domain.Store, opts NormalizerOptions) *Normalizer {
	if opts.UnknownCategory == "" {
		opts.UnknownCategory = domain.CategoryCleanliness
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	return &Normalizer{store: store, opts: opts}
}

// Normalize maps and stores every raw record, returning the stored review for
// each one that succeeded (the existing record for duplicates). A failing
// record is logged and skipped.
func (n *Normalizer) Normalize(ctx context.Context, channel domain.Channel, raws []map[string]any, mapFn mapFunc) []domain.Review {
	out := make([]domain.Review, 0, len(raws))
	for i, raw := range raws {
		c, err := mapFn(raw, n.opts.UnknownCategory)
		if err == nil {
			var rv domain.Review
			if rv, err = n.ingest(ctx, c); err == nil {
				out = append(out, rv)
				continue
			}
		}
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Str("channel", string(channel)).Msg("normalize aborted")
			return out
		}
		log.Warn().
			Err(err).
			Str("channel", string(channel)).
			Int("index", i).
			Str("ref", c.ref).
			Msg("skipping review")
	}
	return out
}

func (n *Normalizer) ingest(ctx context.Context, c candidate) (domain.Review, error) {
	rv := c.review
	key := rv.Key()

	existing, err := n.store.FindReviewByKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Review{}, fmt.Errorf("dedup lookup: %w", err)
	}

	prop, err := n.findOrCreateProperty(ctx, c.propertyHint, rv.ListingName)
	if err != nil {
		return domain.Review{}, fmt.Errorf("resolve property %q: %w", c.propertyHint, err)
	}
	rv.PropertyID = prop.ID

	if len(rv.Categories) == 0 && rv.Rating != nil && n.opts.SynthesizeCategories {
		rv.Categories = synthesizeCategories(*rv.Rating, n.opts.Jitter)
	}
	// ingested reviews wait for manual moderation
	rv.IsApproved, rv.IsPublic = false, false

	saved, err := n.store.InsertReview(ctx, rv)
	if errors.Is(err, domain.ErrDuplicate) {
		// lost a race with a concurrent sync
		return n.store.FindReviewByKey(ctx, key)
	}
	return saved, err
}

// findOrCreateProperty matches on a case-insensitive substring of the name.
func (n *Normalizer) findOrCreateProperty(ctx context.Context, fragment, name string) (domain.Property, error) {
	p, err := n.store.FindPropertyByName(ctx, fragment)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Property{}, err
	}
	p, err = n.store.InsertProperty(ctx, domain.Property{
		Name:     name,
		Address:  domain.PlaceholderAddress,
		City:     domain.PlaceholderCity,
		Country:  domain.PlaceholderCountry,
		IsActive: true,
	})
	if err != nil {
		return domain.Property{}, err
	}
	log.Info().Str("property", p.Name).Str("id", p.ID).Msg("created property")
	return p, nil
}

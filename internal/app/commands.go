package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// CommandService carries the staff-facing write paths.
type CommandService struct {
	store domain.Store
	cache domain.Cache
}

func NewCommandService(s domain.Store, cache domain.Cache) *CommandService {
	return &CommandService{store: s, cache: cache}
}

func (s *CommandService) SetApproval(ctx context.Context, id string, isApproved bool, isPublic *bool) (domain.Review, error) {
	n, err := s.store.UpdateApproval(ctx, []string{id}, isApproved, isPublic)
	if err != nil {
		return domain.Review{}, fmt.Errorf("update approval %s: %w", id, err)
	}
	if n == 0 {
		return domain.Review{}, domain.ErrNotFound
	}
	rv, err := s.store.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	s.refresh(ctx, []string{rv.PropertyID})
	return rv, nil
}

// BulkSetApproval updates every id that exists and reports how many were
// written. Property aggregates are recomputed once per distinct property.
func (s *CommandService) BulkSetApproval(ctx context.Context, ids []string, isApproved bool, isPublic *bool) (int, error) {
	if len(ids) == 0 {
		return 0, domain.Invalid("reviewIds", "must be a non-empty array")
	}
	found, err := s.store.GetReviews(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load reviews: %w", err)
	}
	if len(found) == 0 {
		return 0, nil
	}

	existing := make([]string, 0, len(found))
	seen := map[string]struct{}{}
	var props []string
	for _, rv := range found {
		existing = append(existing, rv.ID)
		if _, ok := seen[rv.PropertyID]; !ok && rv.PropertyID != "" {
			seen[rv.PropertyID] = struct{}{}
			props = append(props, rv.PropertyID)
		}
	}

	n, err := s.store.UpdateApproval(ctx, existing, isApproved, isPublic)
	if err != nil {
		return 0, fmt.Errorf("bulk update approval: %w", err)
	}
	s.refresh(ctx, props)
	return n, nil
}

func (s *CommandService) AddResponse(ctx context.Context, id, response string) (domain.Review, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return domain.Review{}, domain.Invalid("response", "is required")
	}
	if utf8.RuneCountInString(text) > domain.MaxResponseLength {
		return domain.Review{}, domain.Invalid("response", fmt.Sprintf("must be at most %d characters", domain.MaxResponseLength))
	}
	rv, err := s.store.SetResponse(ctx, id, text)
	if err != nil {
		return domain.Review{}, err
	}
	// the dashboard embeds recent reviews with their responses
	invalidateAggregates(ctx, s.cache, rv.PropertyID)
	return rv, nil
}

func (s *CommandService) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Property{}, domain.Invalid("name", "is required")
	}
	p.ID = ""
	p.TotalReviews, p.AverageRating, p.LastReviewDate = 0, 0, ""
	return s.store.InsertProperty(ctx, p)
}

// refresh recomputes the listed property aggregates and drops cached stats.
// Recompute failures leave the aggregate stale until the next mutation.
func (s *CommandService) refresh(ctx context.Context, propertyIDs []string) {
	for _, pid := range propertyIDs {
		if pid == "" {
			continue
		}
		if _, err := recomputeProperty(ctx, s.store, pid); err != nil {
			log.Error().Err(err).Str("property", pid).Msg("recompute property stats failed")
		}
	}
	invalidateAggregates(ctx, s.cache, propertyIDs...)
}

package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

const dashboardKey = "dashboard"

func statsKey(propertyID string) string {
	if propertyID == "" {
		return "stats:all"
	}
	return "stats:" + propertyID
}

// invalidateAggregates drops the overall stats, the dashboard and the stats of
// each listed property. A nil cache is a no-op.
func invalidateAggregates(ctx context.Context, c domain.Cache, propertyIDs ...string) {
	if c == nil {
		return
	}
	keys := []string{statsKey(""), dashboardKey}
	for _, id := range propertyIDs {
		if id != "" {
			keys = append(keys, statsKey(id))
		}
	}
	for _, k := range keys {
		if err := c.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache del failed")
		}
	}
}

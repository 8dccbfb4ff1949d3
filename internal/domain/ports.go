package domain

import "context"

type ReviewRepository interface {
	// Write paths
	InsertReview(ctx context.Context, r Review) (Review, error) // ErrDuplicate on key collision
	UpdateApproval(ctx context.Context, ids []string, isApproved bool, isPublic *bool) (int, error)
	SetResponse(ctx context.Context, id, response string) (Review, error)

	// Read paths
	GetReview(ctx context.Context, id string) (Review, error)
	GetReviews(ctx context.Context, ids []string) ([]Review, error) // unknown ids are skipped
	FindReviewByKey(ctx context.Context, k DedupKey) (Review, error)
	ListReviews(ctx context.Context, f ReviewFilter, pg PageQuery) (ReviewsPage, error)
	ScanReviews(ctx context.Context, f ReviewFilter) ([]Review, error) // unpaged, same order as ListReviews
}

type PropertyRepository interface {
	InsertProperty(ctx context.Context, p Property) (Property, error)
	GetProperty(ctx context.Context, id string) (Property, error)
	ListProperties(ctx context.Context, q PropertiesQuery) ([]Property, error) // by averageRating desc
	FindPropertyByName(ctx context.Context, fragment string) (Property, error)
	UpdatePropertyAggregate(ctx context.Context, id string, agg PropertyAggregate) error
}

type Store interface {
	ReviewRepository
	PropertyRepository
}

// ReviewReader is the slice of the store the read path can fall back on.
type ReviewReader interface {
	GetReview(ctx context.Context, id string) (Review, error)
	ListReviews(ctx context.Context, f ReviewFilter, pg PageQuery) (ReviewsPage, error)
}

type HostawayClient interface {
	GetReviews(ctx context.Context) ([]map[string]any, error)
}

type Place struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
}

type PlacesClient interface {
	Configured() bool
	SearchPlaces(ctx context.Context, query string) ([]Place, error)
	GetPlaceReviews(ctx context.Context, placeID string) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PropertiesQuery struct {
	ActiveOnly bool
}

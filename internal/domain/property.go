package domain

import "time"

type Features struct {
	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`
	Sqft      int `json:"sqft"`
	Guests    int `json:"guests"`
}

type Property struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Images        []string  `json:"images,omitempty"`
	Description   string    `json:"description,omitempty"`
	Features      *Features `json:"features,omitempty"`
	Amenities     []string  `json:"amenities,omitempty"`
	PricePerNight *float64  `json:"pricePerNight,omitempty"`
	Availability  string    `json:"availability,omitempty"`
	IsActive      bool      `json:"isActive"`

	// Aggregate cache over approved reviews; rewritten by the stats recompute.
	TotalReviews   int     `json:"totalReviews"`
	AverageRating  float64 `json:"averageRating"`
	LastReviewDate string  `json:"lastReviewDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PropertyAggregate struct {
	TotalReviews   int
	AverageRating  float64
	LastReviewDate string
}

// Placeholder values for properties created implicitly during ingestion.
const (
	PlaceholderAddress = "Address to be updated"
	PlaceholderCity    = "City to be updated"
	PlaceholderCountry = "Country to be updated"
)

package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"flex_reviews/internal/domain"
)

type categoryDoc struct {
	Category string `bson:"category"`
	Rating   int    `bson:"rating"`
}

type reviewDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Type          string             `bson:"type"`
	Status        string             `bson:"status"`
	Rating        *float64           `bson:"rating"`
	PublicReview  string             `bson:"publicReview"`
	PrivateReview string             `bson:"privateReview,omitempty"`
	Categories    []categoryDoc      `bson:"reviewCategory"`
	SubmittedAt   string             `bson:"submittedAt"`
	GuestName     string             `bson:"guestName"`
	ListingName   string             `bson:"listingName"`
	PropertyID    string             `bson:"propertyId,omitempty"`
	Channel       string             `bson:"channel"`
	IsApproved    bool               `bson:"isApproved"`
	IsPublic      bool               `bson:"isPublic"`
	Response      string             `bson:"response,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type featuresDoc struct {
	Bedrooms  int `bson:"bedrooms"`
	Bathrooms int `bson:"bathrooms"`
	Sqft      int `bson:"sqft"`
	Guests    int `bson:"guests"`
}

type propertyDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Address        string             `bson:"address"`
	City           string             `bson:"city"`
	Country        string             `bson:"country"`
	ImageURL       string             `bson:"imageUrl,omitempty"`
	Images         []string           `bson:"images,omitempty"`
	Description    string             `bson:"description,omitempty"`
	Features       *featuresDoc       `bson:"features,omitempty"`
	Amenities      []string           `bson:"amenities,omitempty"`
	PricePerNight  *float64           `bson:"pricePerNight,omitempty"`
	Availability   string             `bson:"availability,omitempty"`
	IsActive       bool               `bson:"isActive"`
	TotalReviews   int                `bson:"totalReviews"`
	AverageRating  float64            `bson:"averageRating"`
	LastReviewDate string             `bson:"lastReviewDate,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func toReviewDoc(r domain.Review) reviewDoc {
	d := reviewDoc{
		Type:          string(r.Type),
		Status:        string(r.Status),
		Rating:        r.Rating,
		PublicReview:  r.PublicReview,
		PrivateReview: r.PrivateReview,
		Categories:    make([]categoryDoc, 0, len(r.Categories)),
		SubmittedAt:   r.SubmittedAt,
		GuestName:     r.GuestName,
		ListingName:   r.ListingName,
		PropertyID:    r.PropertyID,
		Channel:       string(r.Channel),
		IsApproved:    r.IsApproved,
		IsPublic:      r.IsPublic,
		Response:      r.Response,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for _, c := range r.Categories {
		d.Categories = append(d.Categories, categoryDoc{Category: string(c.Category), Rating: c.Rating})
	}
	if oid, err := primitive.ObjectIDFromHex(r.ID); err == nil {
		d.ID = oid
	}
	return d
}

func (d reviewDoc) toDomain() domain.Review {
	r := domain.Review{
		ID:            d.ID.Hex(),
		Type:          domain.ReviewType(d.Type),
		Status:        domain.ReviewStatus(d.Status),
		Rating:        d.Rating,
		PublicReview:  d.PublicReview,
		PrivateReview: d.PrivateReview,
		Categories:    make([]domain.ReviewCategory, 0, len(d.Categories)),
		SubmittedAt:   d.SubmittedAt,
		GuestName:     d.GuestName,
		ListingName:   d.ListingName,
		PropertyID:    d.PropertyID,
		Channel:       domain.Channel(d.Channel),
		IsApproved:    d.IsApproved,
		IsPublic:      d.IsPublic,
		Response:      d.Response,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	for _, c := range d.Categories {
		r.Categories = append(r.Categories, domain.ReviewCategory{Category: domain.Category(c.Category), Rating: c.Rating})
	}
	return r
}

func toPropertyDoc(p domain.Property) propertyDoc {
	d := propertyDoc{
		Name:           p.Name,
		Address:        p.Address,
		City:           p.City,
		Country:        p.Country,
		ImageURL:       p.ImageURL,
		Images:         p.Images,
		Description:    p.Description,
		Amenities:      p.Amenities,
		PricePerNight:  p.PricePerNight,
		Availability:   p.Availability,
		IsActive:       p.IsActive,
		TotalReviews:   p.TotalReviews,
		AverageRating:  p.AverageRating,
		LastReviewDate: p.LastReviewDate,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if f := p.Features; f != nil {
		d.Features = &featuresDoc{Bedrooms: f.Bedrooms, Bathrooms: f.Bathrooms, Sqft: f.Sqft, Guests: f.Guests}
	}
	if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
		d.ID = oid
	}
	return d
}

func (d propertyDoc) toDomain() domain.Property {
	p := domain.Property{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Address:        d.Address,
		City:           d.City,
		Country:        d.Country,
		ImageURL:       d.ImageURL,
		Images:         d.Images,
		Description:    d.Description,
		Amenities:      d.Amenities,
		PricePerNight:  d.PricePerNight,
		Availability:   d.Availability,
		IsActive:       d.IsActive,
		TotalReviews:   d.TotalReviews,
		AverageRating:  d.AverageRating,
		LastReviewDate: d.LastReviewDate,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if f := d.Features; f != nil {
		p.Features = &domain.Features{Bedrooms: f.Bedrooms, Bathrooms: f.Bathrooms, Sqft: f.Sqft, Guests: f.Guests}
	}
	return p
}

package memory

import (
	"time"

	"flex_reviews/internal/domain"
)

// NewSeeded returns a Repo preloaded with the demo dataset served when the
// primary store is unreachable.
func NewSeeded() *Repo {
	r := New()
	r.properties = fixtureProperties()
	r.reviews = fixtureReviews()
	return r
}

func fixtureProperties() []domain.Property {
	price := func(f float64) *float64 { return &f }
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Property{
		{
			ID:          "property-1",
			Name:        "Modern Downtown Apartment",
			Address:     "123 Main Street",
			City:        "New York",
			Country:     "USA",
			Description: "A beautiful modern apartment in the heart of downtown with stunning city views.",
			Images: []string{
				"https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800",
				"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800",
				"https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=800",
			},
			Features:      &domain.Features{Bedrooms: 2, Bathrooms: 2, Sqft: 1200, Guests: 4},
			Amenities:     []string{"WiFi", "Air Conditioning", "Kitchen", "Washer", "Dryer", "Parking", "Gym", "Pool"},
			PricePerNight: price(150),
			IsActive:      true,
			TotalReviews:  3,
			AverageRating: 4.7,
			CreatedAt:     jan1,
			UpdatedAt:     time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:          "property-2",
			Name:        "Cozy Studio in Historic District",
			Address:     "456 Heritage Lane",
			City:        "Boston",
			Country:     "USA",
			Description: "A charming studio apartment in the historic district with original architectural details.",
			Images: []string{
				"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800",
				"https://images.unsplash.com/photo-1484154218962-a197022b5858?w=800",
				"https://images.unsplash.com/photo-1560448204-603b3fc33ddc?w=800",
			},
			Features:      &domain.Features{Bedrooms: 1, Bathrooms: 1, Sqft: 600, Guests: 2},
			Amenities:     []string{"WiFi", "Heating", "Kitchenette", "TV", "Parking"},
			PricePerNight: price(120),
			IsActive:      true,
			TotalReviews:  2,
			AverageRating: 4.5,
			CreatedAt:     jan1,
			UpdatedAt:     time.Date(2024, 1, 8, 9, 15, 0, 0, time.UTC),
		},
	}
}

func fixtureReviews() []domain.Review {
	all := func(r int) []domain.ReviewCategory {
		return cats(r, r, r, r, r, r)
	}
	return []domain.Review{
		fixture("1", "property-1", 5, "Amazing stay! The property was exactly as described and the location was perfect.",
			all(5), "2024-01-15T10:30:00Z", "Sarah Johnson", "Modern Downtown Apartment", domain.ChannelAirbnb, true, ""),
		fixture("2", "property-1", 4, "Great location and clean apartment. The host was very responsive.",
			cats(4, 5, 4, 4, 5, 4), "2024-01-10T14:20:00Z", "Mike Chen", "Modern Downtown Apartment", domain.ChannelBooking, true,
			"Thank you for your feedback! We're glad you enjoyed your stay."),
		fixture("3", "property-2", 3, "The property was okay but could use some improvements in cleanliness.",
			cats(2, 4, 3, 3, 4, 3), "2024-01-08T09:15:00Z", "Emma Wilson", "Cozy Studio in Historic District", domain.ChannelDirect, false, ""),
		fixture("4", "property-2", 5, "Perfect location and beautiful property. Highly recommended!",
			all(5), "2024-01-05T16:45:00Z", "David Rodriguez", "Cozy Studio in Historic District", domain.ChannelAirbnb, true, ""),
		fixture("5", "property-1", 5, "Absolutely perfect! The host was amazing and the place was spotless.",
			all(5), "2024-01-20T16:45:00Z", "David Kim", "Modern Downtown Apartment", domain.ChannelAirbnb, true, ""),
		fixture("6", "property-2", 4, "Great beach house with amazing views. Would definitely stay again!",
			cats(4, 4, 5, 4, 5, 4), "2024-01-18T11:30:00Z", "Lisa Wang", "Cozy Beach House", domain.ChannelBooking, true, ""),
	}
}

// cats builds the six-category breakdown used by the demo data.
func cats(clean, comm, checkIn, acc, loc, val int) []domain.ReviewCategory {
	return []domain.ReviewCategory{
		{Category: domain.CategoryCleanliness, Rating: clean},
		{Category: domain.CategoryCommunication, Rating: comm},
		{Category: domain.CategoryCheckIn, Rating: checkIn},
		{Category: domain.CategoryAccuracy, Rating: acc},
		{Category: domain.CategoryLocation, Rating: loc},
		{Category: domain.CategoryValue, Rating: val},
	}
}

func fixture(id, propertyID string, rating float64, body string, c []domain.ReviewCategory,
	submitted, guest, listing string, ch domain.Channel, approved bool, response string) domain.Review {
	ts, _ := time.Parse(time.RFC3339, submitted)
	return domain.Review{
		ID:           id,
		PropertyID:   propertyID,
		Type:         domain.GuestToHost,
		Status:       domain.StatusPublished,
		Rating:       &rating,
		PublicReview: body,
		Categories:   c,
		SubmittedAt:  submitted,
		GuestName:    guest,
		ListingName:  listing,
		Channel:      ch,
		IsApproved:   approved,
		IsPublic:     approved,
		Response:     response,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

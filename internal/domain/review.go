package domain

import (
	"strings"
	"time"
)

type ReviewType string

const (
	HostToGuest ReviewType = "host-to-guest"
	GuestToHost ReviewType = "guest-to-host"
)

type ReviewStatus string

const (
	StatusPublished ReviewStatus = "published"
	StatusPending   ReviewStatus = "pending"
	StatusRejected  ReviewStatus = "rejected"
)

type Channel string

const (
	ChannelAirbnb   Channel = "airbnb"
	ChannelBooking  Channel = "booking"
	ChannelHostaway Channel = "hostaway"
	ChannelGoogle   Channel = "google"
	ChannelDirect   Channel = "direct"
)

type Category string

const (
	CategoryCleanliness       Category = "cleanliness"
	CategoryCommunication     Category = "communication"
	CategoryRespectHouseRules Category = "respect_house_rules"
	CategoryCheckIn           Category = "check_in"
	CategoryAccuracy          Category = "accuracy"
	CategoryLocation          Category = "location"
	CategoryValue             Category = "value"

	// CategoryUnclassified is only produced when the normalizer runs with the
	// "unclassified" unknown-label policy.
	CategoryUnclassified Category = "unclassified"
)

// MaxResponseLength bounds a host response, counted in runes.
const MaxResponseLength = 1000

type ReviewCategory struct {
	Category Category `json:"category"`
	Rating   int      `json:"rating"`
}

type Review struct {
	ID            string           `json:"id"`
	Type          ReviewType       `json:"type"`
	Status        ReviewStatus     `json:"status"`
	Rating        *float64         `json:"rating"`
	PublicReview  string           `json:"publicReview"`
	PrivateReview string           `json:"privateReview,omitempty"`
	Categories    []ReviewCategory `json:"reviewCategory"`
	SubmittedAt   string           `json:"submittedAt"` // as supplied by the source
	GuestName     string           `json:"guestName"`
	ListingName   string           `json:"listingName"`
	PropertyID    string           `json:"propertyId,omitempty"`
	Channel       Channel          `json:"channel"`
	IsApproved    bool             `json:"isApproved"`
	IsPublic      bool             `json:"isPublic"`
	Response      string           `json:"response,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// DedupKey identifies an ingested review across sync runs. Exact match only.
type DedupKey struct {
	GuestName   string
	ListingName string
	SubmittedAt string
	Channel     Channel
}

func (r Review) Key() DedupKey {
	return DedupKey{GuestName: r.GuestName, ListingName: r.ListingName, SubmittedAt: r.SubmittedAt, Channel: r.Channel}
}

func (r Review) HasCategory(c Category) bool {
	for _, rc := range r.Categories {
		if rc.Category == c {
			return true
		}
	}
	return false
}

var submittedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SubmittedTime parses SubmittedAt using the layouts seen from upstream channels.
func (r Review) SubmittedTime() (time.Time, bool) {
	s := strings.TrimSpace(r.SubmittedAt)
	for _, l := range submittedLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func ValidChannel(c Channel) bool {
	switch c {
	case ChannelAirbnb, ChannelBooking, ChannelHostaway, ChannelGoogle, ChannelDirect:
		return true
	}
	return false
}

func ValidCategory(c Category) bool {
	switch c {
	case CategoryCleanliness, CategoryCommunication, CategoryRespectHouseRules, CategoryCheckIn,
		CategoryAccuracy, CategoryLocation, CategoryValue, CategoryUnclassified:
		return true
	}
	return false
}

func ValidStatus(s ReviewStatus) bool {
	return s == StatusPublished || s == StatusPending || s == StatusRejected
}

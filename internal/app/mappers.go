package app

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"flex_reviews/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hostawayAliases = map[string][]string{
	"id":       {"id", "reviewId", "review_id"},
	"type":     {"type", "reviewType"},
	"status":   {"status"},
	"guest":    {"guestName", "guest_name", "guest.name", "reviewerName"},
	"listing":  {"listingName", "listing_name", "listing.name", "propertyName"},
	"body":     {"publicReview", "public_review", "text", "comment"},
	"private":  {"privateReview", "private_review"},
	"date":     {"submittedAt", "submitted_at", "departureDate", "date"},
	"rating":   {"rating", "overallRating", "rating.value"},
	"category": {"reviewCategory", "review_category", "categories"},
}

var googleAliases = map[string][]string{
	"author": {"author_name", "authorAttribution.displayName", "author"},
	"body":   {"text", "text.text", "originalText.text"},
	"rating": {"rating"},
	"time":   {"time"},
	"date":   {"publishTime"},
}

// categoryTable maps channel category labels onto the internal enum.
var categoryTable = map[string]domain.Category{
	"cleanliness":         domain.CategoryCleanliness,
	"communication":       domain.CategoryCommunication,
	"respect_house_rules": domain.CategoryRespectHouseRules,
	"check_in":            domain.CategoryCheckIn,
	"accuracy":            domain.CategoryAccuracy,
	"location":            domain.CategoryLocation,
	"value":               domain.CategoryValue,
	"clean":               domain.CategoryCleanliness,
	"comm":                domain.CategoryCommunication,
	"rules":               domain.CategoryRespectHouseRules,
	"checkin":             domain.CategoryCheckIn,
	"acc":                 domain.CategoryAccuracy,
	"loc":                 domain.CategoryLocation,
	"val":                 domain.CategoryValue,
}

// synthesizedCategories are filled in when a source only carries an overall rating.
var synthesizedCategories = []domain.Category{
	domain.CategoryCleanliness,
	domain.CategoryCommunication,
	domain.CategoryLocation,
	domain.CategoryValue,
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty trimmed string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		if f, ok := toFloat(lookupAny(m, k)); ok {
			return &f
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// sourceRef renders a raw id for log lines.
func sourceRef(m map[string]any, aliases map[string][]string) string {
	for _, p := range aliases["id"] {
		if v := lookupAny(m, p); v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

/********** rating scales **********/

// normalizeOverall maps an upstream overall rating into [1,5]. Values in (5,10]
// are read as a ten-point scale. Non-positive ratings count as absent.
func normalizeOverall(f *float64) *float64 {
	if f == nil || *f <= 0 {
		return nil
	}
	v := *f
	if v > 5 {
		v /= 2
	}
	v = math.Max(1, math.Min(5, v))
	v = math.Round(v*10) / 10
	return &v
}

func clampStar(f float64) int {
	if f > 5 {
		f /= 2
	}
	return int(math.Max(1, math.Min(5, math.Round(f))))
}

/********** category mapping **********/

var errNoCategory = errors.New("category entry without label")

func mapCategory(label string, unknown domain.Category) domain.Category {
	if c, ok := categoryTable[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return unknown
}

func mapCategories(raw any, unknown domain.Category) ([]domain.ReviewCategory, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]domain.ReviewCategory, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		label, _ := obj["category"].(string)
		if strings.TrimSpace(label) == "" {
			return nil, errNoCategory
		}
		r, ok := toFloat(obj["rating"])
		if !ok || r <= 0 {
			continue
		}
		out = append(out, domain.ReviewCategory{Category: mapCategory(label, unknown), Rating: clampStar(r)})
	}
	return out, nil
}

// synthesizeCategories derives display-filler category ratings from the overall
// rating: each is the overall rating jittered by up to ±0.5 and rounded into [1,5].
// jitter returns values in [0,1).
func synthesizeCategories(overall float64, jitter func() float64) []domain.ReviewCategory {
	base := math.Max(1, math.Min(5, overall))
	out := make([]domain.ReviewCategory, 0, len(synthesizedCategories))
	for _, c := range synthesizedCategories {
		v := base + (jitter() - 0.5)
		out = append(out, domain.ReviewCategory{Category: c, Rating: int(math.Max(1, math.Min(5, math.Round(v))))})
	}
	return out
}

/********** channel mappers **********/

// candidate is a mapped review plus the name fragment used to resolve its property.
type candidate struct {
	review       domain.Review
	propertyHint string
	ref          string
}

type mapFunc func(raw map[string]any, unknown domain.Category) (candidate, error)

func mapHostawayReview(r map[string]any, unknown domain.Category) (candidate, error) {
	c := candidate{ref: sourceRef(r, hostawayAliases)}

	guest := firstNonEmptyAlias(r, hostawayAliases, "guest")
	if guest == "" {
		return c, errors.New("missing guest name")
	}
	listing := firstNonEmptyAlias(r, hostawayAliases, "listing")
	if listing == "" {
		return c, errors.New("missing listing name")
	}
	submitted := firstNonEmptyAlias(r, hostawayAliases, "date")
	if submitted == "" {
		return c, errors.New("missing submission date")
	}

	var cats []domain.ReviewCategory
	for _, p := range hostawayAliases["category"] {
		if v := lookupAny(r, p); v != nil {
			var err error
			if cats, err = mapCategories(v, unknown); err != nil {
				return c, err
			}
			break
		}
	}

	typ := domain.ReviewType(firstNonEmptyAlias(r, hostawayAliases, "type"))
	if typ != domain.HostToGuest && typ != domain.GuestToHost {
		typ = domain.GuestToHost
	}
	status := domain.ReviewStatus(firstNonEmptyAlias(r, hostawayAliases, "status"))
	if !domain.ValidStatus(status) {
		status = domain.StatusPending
	}

	c.review = domain.Review{
		Type:          typ,
		Status:        status,
		Rating:        normalizeOverall(getFloatFlexible(r, hostawayAliases["rating"]...)),
		PublicReview:  firstNonEmptyAlias(r, hostawayAliases, "body"),
		PrivateReview: firstNonEmptyAlias(r, hostawayAliases, "private"),
		Categories:    cats,
		SubmittedAt:   submitted,
		GuestName:     guest,
		ListingName:   listing,
		Channel:       domain.ChannelHostaway,
	}
	c.propertyHint = listingFragment(listing)
	return c, nil
}

// listingFragment takes the second " - " segment of a channel listing name,
// e.g. "2B N1 A - 29 Shoreditch Heights" resolves by "29 Shoreditch Heights".
func listingFragment(listing string) string {
	if parts := strings.Split(listing, " - "); len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		return strings.TrimSpace(parts[1])
	}
	return listing
}

// googleMapper binds the property name the reviews were fetched for.
func googleMapper(propertyName string) mapFunc {
	return func(r map[string]any, _ domain.Category) (candidate, error) {
		c := candidate{ref: lookupStr(r, "author_url")}

		author := firstNonEmptyAlias(r, googleAliases, "author")
		if author == "" {
			return c, errors.New("missing author name")
		}
		var submitted string
		if secs := getFloatFlexible(r, googleAliases["time"]...); secs != nil {
			submitted = time.Unix(int64(*secs), 0).UTC().Format(time.RFC3339)
		} else if s := firstNonEmptyAlias(r, googleAliases, "date"); s != "" {
			submitted = s
		} else {
			return c, errors.New("missing review time")
		}

		c.review = domain.Review{
			Type:         domain.GuestToHost,
			Status:       domain.StatusPublished,
			Rating:       normalizeOverall(getFloatFlexible(r, googleAliases["rating"]...)),
			PublicReview: firstNonEmptyAlias(r, googleAliases, "body"),
			SubmittedAt:  submitted,
			GuestName:    author,
			ListingName:  propertyName,
			Channel:      domain.ChannelGoogle,
		}
		c.propertyHint = propertyName
		return c, nil
	}
}

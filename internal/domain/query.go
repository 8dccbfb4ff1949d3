package domain

import "strings"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// ReviewFilter holds review query constraints. Zero values mean "no constraint".
type ReviewFilter struct {
	PropertyID string
	MinRating  *float64
	Category   Category
	Channel    Channel
	DateFrom   string
	DateTo     string
	Status     ReviewStatus
	IsApproved *bool
	IsPublic   *bool
	Search     string
}

// Matches reports whether r satisfies f. Stores that cannot push the filter
// down use it directly; the others mirror these semantics in their query language.
func (f ReviewFilter) Matches(r Review) bool {
	if f.PropertyID != "" && r.PropertyID != f.PropertyID {
		return false
	}
	if f.MinRating != nil && (r.Rating == nil || *r.Rating < *f.MinRating) {
		return false
	}
	if f.Category != "" && !r.HasCategory(f.Category) {
		return false
	}
	if f.Channel != "" && r.Channel != f.Channel {
		return false
	}
	if f.DateFrom != "" && r.SubmittedAt < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.SubmittedAt > f.DateTo {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.IsApproved != nil && r.IsApproved != *f.IsApproved {
		return false
	}
	if f.IsPublic != nil && r.IsPublic != *f.IsPublic {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.GuestName), q) &&
			!strings.Contains(strings.ToLower(r.PublicReview), q) &&
			!strings.Contains(strings.ToLower(r.ListingName), q) {
			return false
		}
	}
	return true
}

type PageQuery struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (p PageQuery) Normalize() PageQuery {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageQuery) Offset() int { return (p.Page - 1) * p.Limit }

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(pg PageQuery, total int) Pagination {
	pages := 0
	if pg.Limit > 0 {
		pages = (total + pg.Limit - 1) / pg.Limit
	}
	return Pagination{Page: pg.Page, Limit: pg.Limit, Total: total, TotalPages: pages}
}

type ReviewsPage struct {
	Items      []Review
	Pagination Pagination
}

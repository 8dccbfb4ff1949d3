// Package memory is a process-local Store. It backs the fixture fallback on
// the read path, STORE_DRIVER=memory, and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

type Repo struct {
	mu         sync.RWMutex
	reviews    []domain.Review // insertion order
	properties []domain.Property
	now        func() time.Time
}

func New() *Repo { return &Repo{now: func() time.Time { return time.Now().UTC() }} }

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := rv.Key()
	for _, ex := range r.reviews {
		if ex.Key() == k {
			return domain.Review{}, domain.ErrDuplicate
		}
	}
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	now := r.now()
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = now
	}
	rv.UpdatedAt = now
	rv.Categories = append([]domain.ReviewCategory(nil), rv.Categories...)
	r.reviews = append(r.reviews, rv)
	return cloneReview(rv), nil
}

func (r *Repo) UpdateApproval(ctx context.Context, ids []string, isApproved bool, isPublic *bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	now := r.now()
	for i := range r.reviews {
		if _, ok := want[r.reviews[i].ID]; !ok {
			continue
		}
		r.reviews[i].IsApproved = isApproved
		if isPublic != nil {
			r.reviews[i].IsPublic = *isPublic
		}
		r.reviews[i].UpdatedAt = now
		n++
	}
	return n, nil
}

func (r *Repo) SetResponse(ctx context.Context, id, response string) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reviews {
		if r.reviews[i].ID == id {
			r.reviews[i].Response = response
			r.reviews[i].UpdatedAt = r.now()
			return cloneReview(r.reviews[i]), nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rv := range r.reviews {
		if rv.ID == id {
			return cloneReview(rv), nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (r *Repo) GetReviews(ctx context.Context, ids []string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Review
	for _, rv := range r.reviews {
		if _, ok := want[rv.ID]; ok {
			out = append(out, cloneReview(rv))
		}
	}
	return out, nil
}

func (r *Repo) FindReviewByKey(ctx context.Context, k domain.DedupKey) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rv := range r.reviews {
		if rv.Key() == k {
			return cloneReview(rv), nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (r *Repo) ListReviews(ctx context.Context, f domain.ReviewFilter, pg domain.PageQuery) (domain.ReviewsPage, error) {
	pg = pg.Normalize()
	all, _ := r.ScanReviews(ctx, f)
	out := domain.ReviewsPage{Pagination: domain.NewPagination(pg, len(all))}
	if off := pg.Offset(); off < len(all) {
		end := off + pg.Limit
		if end > len(all) {
			end = len(all)
		}
		out.Items = all[off:end]
	}
	return out, nil
}

func (r *Repo) ScanReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Review
	for _, rv := range r.reviews {
		if f.Matches(rv) {
			out = append(out, cloneReview(rv))
		}
	}
	// stable: ties keep insertion order
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt > out[j].SubmittedAt })
	return out, nil
}

func (r *Repo) InsertProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.properties = append(r.properties, p)
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (r *Repo) ListProperties(ctx context.Context, q domain.PropertiesQuery) ([]domain.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Property, 0, len(r.properties))
	for _, p := range r.properties {
		if q.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRating > out[j].AverageRating })
	return out, nil
}

// FindPropertyByName returns the first property (insertion order) whose name
// contains fragment, case-insensitively.
func (r *Repo) FindPropertyByName(ctx context.Context, fragment string) (domain.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(fragment)
	for _, p := range r.properties {
		if strings.Contains(strings.ToLower(p.Name), q) {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (r *Repo) UpdatePropertyAggregate(ctx context.Context, id string, agg domain.PropertyAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.properties {
		if r.properties[i].ID == id {
			r.properties[i].TotalReviews = agg.TotalReviews
			r.properties[i].AverageRating = agg.AverageRating
			r.properties[i].LastReviewDate = agg.LastReviewDate
			r.properties[i].UpdatedAt = r.now()
			return nil
		}
	}
	return domain.ErrNotFound
}

func cloneReview(rv domain.Review) domain.Review {
	rv.Categories = append([]domain.ReviewCategory(nil), rv.Categories...)
	if rv.Rating != nil {
		f := *rv.Rating
		rv.Rating = &f
	}
	return rv
}

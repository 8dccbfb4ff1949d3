package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// isDuplicate reports a unique-key violation (ER_DUP_ENTRY).
func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }} }

// ---- reviews ----

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	now := r.now()
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = now
	}
	rv.UpdatedAt = now
	if rv.Categories == nil {
		rv.Categories = []domain.ReviewCategory{}
	}
	cats, err := json.Marshal(rv.Categories)
	if err != nil {
		return domain.Review{}, err
	}
	_, err = r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		string(rv.Type),
		string(rv.Status),
		valF64(rv.Rating),
		rv.PublicReview,
		valStr(rv.PrivateReview),
		string(cats),
		rv.SubmittedAt,
		rv.GuestName,
		rv.ListingName,
		valStr(rv.PropertyID),
		string(rv.Channel),
		rv.IsApproved,
		rv.IsPublic,
		valStr(rv.Response),
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if isDuplicate(err) {
		return domain.Review{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return rv, nil
}

func (r *Repo) UpdateApproval(ctx context.Context, ids []string, isApproved bool, isPublic *bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := "UPDATE reviews SET is_approved = ?, updated_at = ?"
	args := []any{isApproved, r.now()}
	if isPublic != nil {
		q += ", is_public = ?"
		args = append(args, *isPublic)
	}
	q += " WHERE id IN " + inClause(len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	// MySQL reports changed rows, not matched ones; count the ids that exist.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	cq := "SELECT COUNT(*) FROM reviews WHERE id IN " + inClause(len(ids))
	if err := tx.QueryRowContext(ctx, cq, args[len(args)-len(ids):]...).Scan(&n); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return 0, fmt.Errorf("update approval: %w", err)
	}
	return n, tx.Commit()
}

func (r *Repo) SetResponse(ctx context.Context, id, response string) (domain.Review, error) {
	if _, err := r.db.ExecContext(ctx, setResponseSQL, response, r.now(), id); err != nil {
		return domain.Review{}, fmt.Errorf("set response: %w", err)
	}
	return r.GetReview(ctx, id)
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id)
	rv, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) GetReviews(ctx context.Context, ids []string) ([]domain.Review, error) {
	if len(ids) == 0 {
		return []domain.Review{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryReviews(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id IN "+inClause(len(ids))+reviewOrder, args...)
}

func (r *Repo) FindReviewByKey(ctx context.Context, k domain.DedupKey) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, findReviewByKeySQL, k.GuestName, k.ListingName, k.SubmittedAt, string(k.Channel))
	rv, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) ListReviews(ctx context.Context, f domain.ReviewFilter, pg domain.PageQuery) (domain.ReviewsPage, error) {
	pg = pg.Normalize()
	where, args := whereReviews(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews"+where, args...).Scan(&total); err != nil {
		return domain.ReviewsPage{}, fmt.Errorf("count reviews: %w", err)
	}
	items, err := r.queryReviews(ctx, "SELECT "+reviewColumns+" FROM reviews"+where+reviewOrder+" LIMIT ? OFFSET ?",
		append(args, pg.Limit, pg.Offset())...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items, Pagination: domain.NewPagination(pg, total)}, nil
}

func (r *Repo) ScanReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	where, args := whereReviews(f)
	return r.queryReviews(ctx, "SELECT "+reviewColumns+" FROM reviews"+where+reviewOrder, args...)
}

func (r *Repo) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanReview(s scanner) (domain.Review, error) {
	var (
		rv                         domain.Review
		typ, status, channel       string
		rating                     sql.NullFloat64
		private, propertyID, reply sql.NullString
		cats                       []byte
	)
	if err := s.Scan(
		&rv.ID,
		&typ,
		&status,
		&rating,
		&rv.PublicReview,
		&private,
		&cats,
		&rv.SubmittedAt,
		&rv.GuestName,
		&rv.ListingName,
		&propertyID,
		&channel,
		&rv.IsApproved,
		&rv.IsPublic,
		&reply,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	rv.Type = domain.ReviewType(typ)
	rv.Status = domain.ReviewStatus(status)
	rv.Channel = domain.Channel(channel)
	if rating.Valid {
		f := rating.Float64
		rv.Rating = &f
	}
	rv.PrivateReview = private.String
	rv.PropertyID = propertyID.String
	rv.Response = reply.String
	rv.Categories = []domain.ReviewCategory{}
	if len(cats) > 0 {
		if err := json.Unmarshal(cats, &rv.Categories); err != nil {
			return domain.Review{}, fmt.Errorf("decode categories of %s: %w", rv.ID, err)
		}
	}
	return rv, nil
}

// ---- properties ----

func (r *Repo) InsertProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	images, err := valJSON(p.Images)
	if err != nil {
		return domain.Property{}, err
	}
	features, err := valJSON(p.Features)
	if err != nil {
		return domain.Property{}, err
	}
	amenities, err := valJSON(p.Amenities)
	if err != nil {
		return domain.Property{}, err
	}
	_, err = r.db.ExecContext(ctx, insertPropertySQL,
		p.ID,
		p.Name,
		p.Address,
		p.City,
		p.Country,
		valStr(p.ImageURL),
		images,
		valStr(p.Description),
		features,
		amenities,
		valF64(p.PricePerNight),
		valStr(p.Availability),
		p.IsActive,
		p.TotalReviews,
		p.AverageRating,
		valStr(p.LastReviewDate),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return domain.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, "SELECT "+propertyColumns+" FROM properties WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context, q domain.PropertiesQuery) ([]domain.Property, error) {
	stmt := "SELECT " + propertyColumns + " FROM properties"
	if q.ActiveOnly {
		stmt += " WHERE is_active = 1"
	}
	rows, err := r.db.QueryContext(ctx, stmt+propertyOrder)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	out := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindPropertyByName returns the oldest property whose name contains fragment.
func (r *Repo) FindPropertyByName(ctx context.Context, fragment string) (domain.Property, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+propertyColumns+" FROM properties WHERE LOWER(name) LIKE ? ORDER BY seq ASC LIMIT 1",
		likeEscape(fragment))
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) UpdatePropertyAggregate(ctx context.Context, id string, agg domain.PropertyAggregate) error {
	res, err := r.db.ExecContext(ctx, updateAggregateSQL,
		agg.TotalReviews, agg.AverageRating, valStr(agg.LastReviewDate), r.now(), id)
	if err != nil {
		return fmt.Errorf("update aggregate: %w", err)
	}
	// updated_at always changes, so zero rows means the id is unknown
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProperty(s scanner) (domain.Property, error) {
	var (
		p                                        domain.Property
		imageURL, desc, availability, lastReview sql.NullString
		images, features, amenities              []byte
		price                                    sql.NullFloat64
	)
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Address,
		&p.City,
		&p.Country,
		&imageURL,
		&images,
		&desc,
		&features,
		&amenities,
		&price,
		&availability,
		&p.IsActive,
		&p.TotalReviews,
		&p.AverageRating,
		&lastReview,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	p.ImageURL = imageURL.String
	p.Description = desc.String
	p.Availability = availability.String
	p.LastReviewDate = lastReview.String
	if price.Valid {
		f := price.Float64
		p.PricePerNight = &f
	}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &p.Images)
	}
	if len(features) > 0 {
		p.Features = &domain.Features{}
		_ = json.Unmarshal(features, p.Features)
	}
	if len(amenities) > 0 {
		_ = json.Unmarshal(amenities, &p.Amenities)
	}
	return p, nil
}

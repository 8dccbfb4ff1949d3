package mysql

import (
	"strings"

	"flex_reviews/internal/domain"
)

const reviewColumns = "id, type, status, rating, public_review, private_review, categories, submitted_at, " +
	"guest_name, listing_name, property_id, channel, is_approved, is_public, response, created_at, updated_at"

const insertReviewSQL = "INSERT INTO reviews (" + reviewColumns + ") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"

const propertyColumns = "id, name, address, city, country, image_url, images, description, features, amenities, " +
	"price_per_night, availability, is_active, total_reviews, average_rating, last_review_date, created_at, updated_at"

const insertPropertySQL = "INSERT INTO properties (" + propertyColumns + ") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"

const findReviewByKeySQL = "SELECT " + reviewColumns + ` FROM reviews
WHERE guest_name = ? AND listing_name = ? AND submitted_at = ? AND channel = ?
LIMIT 1`

const setResponseSQL = `UPDATE reviews SET response = ?, updated_at = ? WHERE id = ?`

const updateAggregateSQL = `
UPDATE properties
SET total_reviews = ?, average_rating = ?, last_review_date = ?, updated_at = ?
WHERE id = ?`

// Ties on submitted_at keep insertion order.
const reviewOrder = " ORDER BY submitted_at DESC, seq ASC"

// Ties on average_rating keep insertion order.
const propertyOrder = " ORDER BY average_rating DESC, seq ASC"

// likeEscape quotes LIKE wildcards so user input matches literally.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// whereReviews renders f as a WHERE clause with positional args. It mirrors
// domain.ReviewFilter.Matches.
func whereReviews(f domain.ReviewFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(c string, a ...any) {
		conds = append(conds, c)
		args = append(args, a...)
	}
	if f.PropertyID != "" {
		add("property_id = ?", f.PropertyID)
	}
	if f.MinRating != nil {
		add("rating >= ?", *f.MinRating)
	}
	if f.Category != "" {
		add("JSON_CONTAINS(categories, JSON_OBJECT('category', ?))", string(f.Category))
	}
	if f.Channel != "" {
		add("channel = ?", string(f.Channel))
	}
	if f.DateFrom != "" {
		add("submitted_at >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		add("submitted_at <= ?", f.DateTo)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.IsApproved != nil {
		add("is_approved = ?", *f.IsApproved)
	}
	if f.IsPublic != nil {
		add("is_public = ?", *f.IsPublic)
	}
	if f.Search != "" {
		q := likeEscape(f.Search)
		add("(LOWER(guest_name) LIKE ? OR LOWER(public_review) LIKE ? OR LOWER(listing_name) LIKE ?)", q, q, q)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// inClause returns "(?,?,...)" for n placeholders.
func inClause(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

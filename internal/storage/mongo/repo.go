// Package mongo stores reviews and properties as documents, one collection each.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flex_reviews/internal/domain"
)

const (
	reviewsCollection    = "reviews"
	propertiesCollection = "properties"
)

type Repo struct {
	client     *mgo.Client
	reviews    *mgo.Collection
	properties *mgo.Collection
	now        func() time.Time
}

// Connect dials uri, pings the server and ensures the indexes of database db.
func Connect(ctx context.Context, uri, db string) (*Repo, error) {
	client, err := mgo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	r := New(client, db)
	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func New(client *mgo.Client, db string) *Repo {
	d := client.Database(db)
	return &Repo{
		client:     client,
		reviews:    d.Collection(reviewsCollection),
		properties: d.Collection(propertiesCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repo) Close(ctx context.Context) error { return r.client.Disconnect(ctx) }

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.reviews.Indexes().CreateMany(ctx, []mgo.IndexModel{
		{
			Keys:    bson.D{{Key: "guestName", Value: 1}, {Key: "listingName", Value: 1}, {Key: "submittedAt", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_review_dedup"),
		},
		{Keys: bson.D{{Key: "propertyId", Value: 1}, {Key: "isApproved", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "submittedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("review indexes: %w", err)
	}
	_, err = r.properties.Indexes().CreateOne(ctx, mgo.IndexModel{
		Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "averageRating", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("property indexes: %w", err)
	}
	return nil
}

// Ties on submittedAt fall back to _id, which grows with insertion.
var reviewSort = bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: 1}}

var propertySort = bson.D{{Key: "averageRating", Value: -1}, {Key: "_id", Value: 1}}

func containsCI(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// reviewFilter mirrors domain.ReviewFilter.Matches as a query document.
func reviewFilter(f domain.ReviewFilter) bson.M {
	q := bson.M{}
	if f.PropertyID != "" {
		q["propertyId"] = f.PropertyID
	}
	if f.MinRating != nil {
		q["rating"] = bson.M{"$gte": *f.MinRating}
	}
	if f.Category != "" {
		q["reviewCategory.category"] = string(f.Category)
	}
	if f.Channel != "" {
		q["channel"] = string(f.Channel)
	}
	if f.DateFrom != "" || f.DateTo != "" {
		rng := bson.M{}
		if f.DateFrom != "" {
			rng["$gte"] = f.DateFrom
		}
		if f.DateTo != "" {
			rng["$lte"] = f.DateTo
		}
		q["submittedAt"] = rng
	}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if f.IsApproved != nil {
		q["isApproved"] = *f.IsApproved
	}
	if f.IsPublic != nil {
		q["isPublic"] = *f.IsPublic
	}
	if f.Search != "" {
		re := containsCI(f.Search)
		q["$or"] = bson.A{
			bson.M{"guestName": re},
			bson.M{"publicReview": re},
			bson.M{"listingName": re},
		}
	}
	return q
}

func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// ---- reviews ----

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	now := r.now()
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = now
	}
	rv.UpdatedAt = now
	doc := toReviewDoc(rv)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		if mgo.IsDuplicateKeyError(err) {
			return domain.Review{}, domain.ErrDuplicate
		}
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repo) UpdateApproval(ctx context.Context, ids []string, isApproved bool, isPublic *bool) (int, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}
	set := bson.M{"isApproved": isApproved, "updatedAt": r.now()}
	if isPublic != nil {
		set["isPublic"] = *isPublic
	}
	res, err := r.reviews.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("update approval: %w", err)
	}
	return int(res.MatchedCount), nil
}

func (r *Repo) SetResponse(ctx context.Context, id, response string) (domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Review{}, domain.ErrNotFound
	}
	var doc reviewDoc
	err = r.reviews.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"response": response, "updatedAt": r.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, fmt.Errorf("set response: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Review{}, domain.ErrNotFound
	}
	return r.findOneReview(ctx, bson.M{"_id": oid})
}

func (r *Repo) GetReviews(ctx context.Context, ids []string) ([]domain.Review, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []domain.Review{}, nil
	}
	return r.findReviews(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetSort(reviewSort))
}

func (r *Repo) FindReviewByKey(ctx context.Context, k domain.DedupKey) (domain.Review, error) {
	return r.findOneReview(ctx, bson.M{
		"guestName":   k.GuestName,
		"listingName": k.ListingName,
		"submittedAt": k.SubmittedAt,
		"channel":     string(k.Channel),
	})
}

func (r *Repo) ListReviews(ctx context.Context, f domain.ReviewFilter, pg domain.PageQuery) (domain.ReviewsPage, error) {
	pg = pg.Normalize()
	q := reviewFilter(f)
	total, err := r.reviews.CountDocuments(ctx, q)
	if err != nil {
		return domain.ReviewsPage{}, fmt.Errorf("count reviews: %w", err)
	}
	items, err := r.findReviews(ctx, q, options.Find().
		SetSort(reviewSort).
		SetSkip(int64(pg.Offset())).
		SetLimit(int64(pg.Limit)))
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items, Pagination: domain.NewPagination(pg, int(total))}, nil
}

func (r *Repo) ScanReviews(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	return r.findReviews(ctx, reviewFilter(f), options.Find().SetSort(reviewSort))
}

func (r *Repo) findOneReview(ctx context.Context, q bson.M) (domain.Review, error) {
	var doc reviewDoc
	err := r.reviews.FindOne(ctx, q).Decode(&doc)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, fmt.Errorf("find review: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repo) findReviews(ctx context.Context, q bson.M, opts *options.FindOptions) ([]domain.Review, error) {
	cur, err := r.reviews.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// ---- properties ----

func (r *Repo) InsertProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	doc := toPropertyDoc(p)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.properties.InsertOne(ctx, doc); err != nil {
		return domain.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Property{}, domain.ErrNotFound
	}
	return r.findOneProperty(ctx, bson.M{"_id": oid}, nil)
}

func (r *Repo) ListProperties(ctx context.Context, q domain.PropertiesQuery) ([]domain.Property, error) {
	filter := bson.M{}
	if q.ActiveOnly {
		filter["isActive"] = true
	}
	cur, err := r.properties.Find(ctx, filter, options.Find().SetSort(propertySort))
	if err != nil {
		return nil, fmt.Errorf("find properties: %w", err)
	}
	var docs []propertyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	out := make([]domain.Property, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// FindPropertyByName returns the oldest property whose name contains fragment.
func (r *Repo) FindPropertyByName(ctx context.Context, fragment string) (domain.Property, error) {
	return r.findOneProperty(ctx,
		bson.M{"name": containsCI(fragment)},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *Repo) UpdatePropertyAggregate(ctx context.Context, id string, agg domain.PropertyAggregate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := r.properties.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"totalReviews":   agg.TotalReviews,
		"averageRating":  agg.AverageRating,
		"lastReviewDate": agg.LastReviewDate,
		"updatedAt":      r.now(),
	}})
	if err != nil {
		return fmt.Errorf("update aggregate: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) findOneProperty(ctx context.Context, q bson.M, opts *options.FindOneOptions) (domain.Property, error) {
	var doc propertyDoc
	var err error
	if opts != nil {
		err = r.properties.FindOne(ctx, q, opts).Decode(&doc)
	} else {
		err = r.properties.FindOne(ctx, q).Decode(&doc)
	}
	if errors.Is(err, mgo.ErrNoDocuments) {
		return domain.Property{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("find property: %w", err)
	}
	return doc.toDomain(), nil
}

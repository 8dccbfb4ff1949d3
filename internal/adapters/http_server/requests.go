package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"flex_reviews/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type approvalRequest struct {
	IsApproved *bool `json:"isApproved" validate:"required"`
	IsPublic   *bool `json:"isPublic"`
}

type bulkApprovalRequest struct {
	ReviewIDs  []string `json:"reviewIds" validate:"required,min=1,dive,required"`
	IsApproved *bool    `json:"isApproved" validate:"required"`
	IsPublic   *bool    `json:"isPublic"`
}

type responseRequest struct {
	Response string `json:"response" validate:"required,max=1000"`
}

type featuresRequest struct {
	Bedrooms  *int `json:"bedrooms" validate:"omitempty,min=0"`
	Bathrooms *int `json:"bathrooms" validate:"omitempty,min=0"`
	Sqft      *int `json:"sqft" validate:"omitempty,min=0"`
	Guests    *int `json:"guests" validate:"omitempty,min=1"`
}

type createPropertyRequest struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Address       string           `json:"address" validate:"required,max=500"`
	City          string           `json:"city" validate:"required,max=100"`
	Country       string           `json:"country" validate:"required,max=100"`
	ImageURL      string           `json:"imageUrl" validate:"omitempty,url"`
	Images        []string         `json:"images" validate:"omitempty,dive,url"`
	Description   string           `json:"description" validate:"max=2000"`
	Features      *featuresRequest `json:"features"`
	Amenities     []string         `json:"amenities"`
	PricePerNight *float64         `json:"pricePerNight" validate:"omitempty,min=0"`
	Availability  string           `json:"availability"`
	IsActive      *bool            `json:"isActive"`
}

func (req createPropertyRequest) toDomain() domain.Property {
	p := domain.Property{
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Country:       strings.TrimSpace(req.Country),
		ImageURL:      req.ImageURL,
		Images:        req.Images,
		Description:   req.Description,
		Amenities:     req.Amenities,
		PricePerNight: req.PricePerNight,
		Availability:  req.Availability,
		IsActive:      true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if f := req.Features; f != nil {
		p.Features = &domain.Features{
			Bedrooms:  deref(f.Bedrooms),
			Bathrooms: deref(f.Bathrooms),
			Sqft:      deref(f.Sqft),
			Guests:    deref(f.Guests),
		}
	}
	return p
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// reviewQuery mirrors the accepted query string of GET /api/reviews.
type reviewQuery struct {
	PropertyID string   `json:"propertyId"`
	Rating     *float64 `json:"rating" validate:"omitempty,min=0,max=5"`
	Channel    string   `json:"channel" validate:"omitempty,oneof=airbnb booking hostaway google direct"`
	Category   string   `json:"category" validate:"omitempty,oneof=cleanliness communication respect_house_rules check_in accuracy location value unclassified"`
	Status     string   `json:"status" validate:"omitempty,oneof=published pending rejected"`
	IsApproved *bool    `json:"isApproved"`
	IsPublic   *bool    `json:"isPublic"`
	DateFrom   string   `json:"dateFrom"`
	DateTo     string   `json:"dateTo"`
	Search     string   `json:"search"`
	Page       int      `json:"page" validate:"omitempty,min=1"`
	Limit      int      `json:"limit" validate:"omitempty,min=1"`
}

// decodeBody reads a single JSON object with a strict field set and validates it.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("body", "is required")
		}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return domain.Invalid(te.Field, "must be of type "+te.Type.String())
		}
		return domain.Invalid("body", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return domain.Invalid("body", "must contain a single JSON object")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return domain.Invalid(fieldPath(ves[0]), reason(ves[0]))
	}
	return domain.Invalid("body", err.Error())
}

// fieldPath drops the root struct name from the namespace (e.g. "features.guests").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	} else if fe.Kind() == reflect.Slice {
		unit = " items"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must be at most " + fe.Param() + unit
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// parseReviewQuery reads filters and paging. Empty values and "all" mean no constraint.
func parseReviewQuery(q url.Values) (domain.ReviewFilter, domain.PageQuery, error) {
	var rq reviewQuery
	get := func(k string) string {
		v := strings.TrimSpace(q.Get(k))
		if strings.EqualFold(v, "all") {
			return ""
		}
		return v
	}

	rq.PropertyID = get("propertyId")
	rq.Channel = get("channel")
	rq.Category = get("category")
	rq.Status = get("status")
	rq.DateFrom = get("dateFrom")
	rq.DateTo = get("dateTo")
	rq.Search = strings.TrimSpace(q.Get("search"))

	if v := get("rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.ReviewFilter{}, domain.PageQuery{}, domain.Invalid("rating", "must be a number")
		}
		rq.Rating = &f
	}
	for _, b := range []struct {
		key string
		dst **bool
	}{{"isApproved", &rq.IsApproved}, {"isPublic", &rq.IsPublic}} {
		if v := get(b.key); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return domain.ReviewFilter{}, domain.PageQuery{}, domain.Invalid(b.key, "must be true or false")
			}
			*b.dst = &parsed
		}
	}
	for _, n := range []struct {
		key string
		dst *int
	}{{"page", &rq.Page}, {"limit", &rq.Limit}} {
		if v := get(n.key); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return domain.ReviewFilter{}, domain.PageQuery{}, domain.Invalid(n.key, "must be a positive integer")
			}
			*n.dst = parsed
		}
	}
	if err := validateStruct(&rq); err != nil {
		return domain.ReviewFilter{}, domain.PageQuery{}, err
	}

	f := domain.ReviewFilter{
		PropertyID: rq.PropertyID,
		MinRating:  rq.Rating,
		Category:   domain.Category(rq.Category),
		Channel:    domain.Channel(rq.Channel),
		DateFrom:   rq.DateFrom,
		DateTo:     rq.DateTo,
		Status:     domain.ReviewStatus(rq.Status),
		IsApproved: rq.IsApproved,
		IsPublic:   rq.IsPublic,
		Search:     rq.Search,
	}
	return f, domain.PageQuery{Page: rq.Page, Limit: rq.Limit}.Normalize(), nil
}

func parseBoolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" || strings.EqualFold(v, "all") {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.Invalid(key, fmt.Sprintf("must be true or false, got %q", v))
	}
	return b, nil
}

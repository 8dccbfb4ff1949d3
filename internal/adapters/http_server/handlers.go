package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
	I *app.IngestionService

	env        string
	production bool
}

func NewHandlers(q *app.QueryService, c *app.CommandService, i *app.IngestionService, env string) *Handlers {
	return &Handlers{Q: q, C: c, I: i, env: env, production: env == "prod" || env == "production"}
}

func (s *Server) MountHandlers(h *Handlers) {
	short := Timeout(s.opts.RequestTimeout)
	// upstream syncs wait on rate-limited, retried channel calls
	long := Timeout(s.opts.SyncTimeout)

	s.mux.With(short).Get("/health", h.health)
	s.mux.With(short).Get("/", h.index)

	s.mux.Route("/api", func(r chi.Router) {
		if s.opts.RateLimit {
			r.Use(RateLimit(s.opts.RateLimitWindow, s.opts.RateLimitMax))
		}

		r.Route("/reviews", func(r chi.Router) {
			r.With(short).Get("/", h.listReviews)
			// static segments before /{id}
			r.With(short).Get("/stats", h.reviewStats)
			r.With(long).Get("/hostaway", h.syncHostaway)
			r.With(long).Get("/google", h.fetchGoogle)
			r.With(long).Post("/google/sync-all", h.syncAllGoogle)
			r.With(short).Patch("/bulk-approval", h.bulkApproval)

			r.With(short).Get("/{id}", h.getReview)
			r.With(short).Patch("/{id}/approval", h.setApproval)
			r.With(short).Post("/{id}/response", h.addResponse)
		})

		r.With(short).Get("/properties", h.listProperties)
		r.With(short).Post("/properties", h.createProperty)
		r.With(short).Get("/properties/{id}", h.getProperty)

		r.With(short).Get("/dashboard", h.dashboard)
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		Timestamp   string `json:"timestamp"`
		Environment string `json:"environment"`
	}{true, "Server is healthy", time.Now().UTC().Format(time.RFC3339), h.env})
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome to Flex Living Reviews API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "/health",
			"reviews":    "/api/reviews",
			"dashboard":  "/api/dashboard",
			"properties": "/api/properties",
			"metrics":    "/metrics",
		},
	})
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	f, pg, err := parseReviewQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	page, err := h.Q.ListReviews(r.Context(), f, pg)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	p := page.Pagination
	writeCached(w, r, envelope{Data: page.Items, Pagination: &p})
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rev, err := h.Q.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "Review not found")
		return
	}
	writeCached(w, r, envelope{Data: rev})
}

func (h *Handlers) reviewStats(w http.ResponseWriter, r *http.Request) {
	pid := strings.TrimSpace(r.URL.Query().Get("propertyId"))
	if strings.EqualFold(pid, "all") {
		pid = ""
	}
	stats, err := h.Q.GetStats(r.Context(), pid)
	if err != nil {
		h.writeError(w, r, err, "Property not found")
		return
	}
	writeCached(w, r, envelope{Data: stats})
}

func (h *Handlers) setApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rev, err := h.C.SetApproval(r.Context(), chi.URLParam(r, "id"), *req.IsApproved, req.IsPublic)
	if err != nil {
		h.writeError(w, r, err, "Review not found")
		return
	}
	writeOK(w, envelope{Data: rev, Message: "Review approval status updated successfully"})
}

func (h *Handlers) bulkApproval(w http.ResponseWriter, r *http.Request) {
	var req bulkApprovalRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	n, err := h.C.BulkSetApproval(r.Context(), req.ReviewIDs, *req.IsApproved, req.IsPublic)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeOK(w, envelope{
		Data:    map[string]int{"updatedCount": n},
		Message: fmt.Sprintf("Successfully updated %d reviews", n),
	})
}

func (h *Handlers) addResponse(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	rev, err := h.C.AddResponse(r.Context(), chi.URLParam(r, "id"), req.Response)
	if err != nil {
		h.writeError(w, r, err, "Review not found")
		return
	}
	writeOK(w, envelope{Data: rev, Message: "Review response added successfully"})
}

// ---- sync ----

func (h *Handlers) syncHostaway(w http.ResponseWriter, r *http.Request) {
	res, err := h.I.SyncHostaway(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeOK(w, envelope{Data: res, Message: res.Message})
}

func (h *Handlers) fetchGoogle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("propertyName"))
	if name == "" {
		h.writeError(w, r, domain.Invalid("propertyName", "is required"), "")
		return
	}
	reviews, err := h.I.FetchGoogleReviews(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeOK(w, envelope{
		Data:    reviews,
		Message: fmt.Sprintf("Successfully fetched %d Google reviews for %s", len(reviews), name),
	})
}

func (h *Handlers) syncAllGoogle(w http.ResponseWriter, r *http.Request) {
	res, err := h.I.SyncAllGoogle(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeOK(w, envelope{Data: res, Message: res.Message})
}

// ---- properties & dashboard ----

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := parseBoolParam(r.URL.Query(), "active")
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	props, err := h.Q.ListProperties(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeCached(w, r, envelope{Data: props})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Q.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, "Property not found")
		return
	}
	writeCached(w, r, envelope{Data: p})
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var req createPropertyRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	p, err := h.C.CreateProperty(r.Context(), req.toDomain())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: p, Message: "Property created successfully"})
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Q.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeCached(w, r, envelope{Data: d})
}

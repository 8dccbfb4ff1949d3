package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

type envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Message    string             `json:"message,omitempty"`
	Error      string             `json:"error,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeCached writes a 200 envelope with a weak ETag, or 304 when the client
// already holds that version.
func writeCached(w http.ResponseWriter, r *http.Request, env envelope) {
	env.Success = true
	etag, body := calcETagAndBody(env)
	if body == nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "Internal server error", Message: "An unexpected error occurred"})
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routePattern(r)).Msg("failed to write body")
	}
}

func writeOK(w http.ResponseWriter, env envelope) {
	env.Success = true
	writeJSON(w, http.StatusOK, env)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Error: "Validation error", Message: ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Error: notFound})
	case errors.Is(err, domain.ErrNotConfigured):
		log.Error().Err(err).Str("route", routePattern(r)).Msg("upstream not configured")
		writeJSON(w, http.StatusInternalServerError, envelope{Error: err.Error(), Message: "An unexpected error occurred"})
	default:
		log.Error().Err(err).Str("route", routePattern(r)).Msg("request failed")
		msg := err.Error()
		if h.production {
			msg = "Internal server error"
		}
		writeJSON(w, http.StatusInternalServerError, envelope{Error: msg, Message: "An unexpected error occurred"})
	}
}

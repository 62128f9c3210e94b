// Package handlers provides HTTP handlers for portfolio returns and the holdings table.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetReturns returns the portfolio return series for ?range= (default 1M)
func (h *Handler) HandleGetReturns(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, auth.ErrNoUser, http.StatusUnauthorized)
		return
	}

	raw := r.URL.Query().Get("range")
	if raw == "" {
		raw = string(domain.Range1M)
	}
	rng, err := domain.ParsePortfolioRange(raw)
	if err != nil {
		h.writeError(w, err, 0)
		return
	}

	result, err := h.service.ReturnsForUser(r.Context(), userID, rng)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Str("range", raw).Msg("Failed to compute portfolio returns")
		h.writeError(w, err, 0)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": result})
}

// HandleGetTable returns per-holding snapshot rows with portfolio totals
func (h *Handler) HandleGetTable(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, auth.ErrNoUser, http.StatusUnauthorized)
		return
	}

	table, err := h.service.TableForUser(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to build portfolio table")
		h.writeError(w, err, 0)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": table})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError renders err with its classified kind. A zero status derives it from the kind.
func (h *Handler) writeError(w http.ResponseWriter, err error, status int) {
	kind := domain.ClassifyError(err)
	if status == 0 {
		status = domain.HTTPStatus(err)
	}
	if errors.Is(err, auth.ErrNoUser) {
		kind = domain.KindInvalid
	}
	h.writeJSON(w, status, map[string]interface{}{
		"error":     err.Error(),
		"kind":      kind,
		"retryable": domain.IsRetryable(err),
	})
}

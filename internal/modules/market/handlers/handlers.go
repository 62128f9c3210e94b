// Package handlers provides HTTP handlers for stock market data.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles market HTTP requests
type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetSP500 returns the S&P 500 constituents with price snapshots
func (h *Handler) HandleGetSP500(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.SP500(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get S&P 500 listing")
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": stocks})
}

// HandleGetExchangeTickers returns the ticker directory for ?exchange= (default nyse)
func (h *Handler) HandleGetExchangeTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.service.ExchangeTickers(r.Context(), r.URL.Query().Get("exchange"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get exchange tickers")
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": tickers})
}

// HandleGetChart returns labels and closing prices for {ticker} over ?range= (default 1M)
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("range")
	if raw == "" {
		raw = string(domain.Range1M)
	}
	rng, err := domain.ParseRange(raw)
	if err != nil {
		h.writeError(w, err)
		return
	}

	chart, err := h.service.Chart(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		h.log.Warn().Err(err).Str("range", raw).Msg("Failed to get chart")
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": chart})
}

// HandleGetSummary returns the quote header for {ticker}
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get summary")
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": summary})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, domain.HTTPStatus(err), map[string]interface{}{
		"error":     err.Error(),
		"kind":      domain.ClassifyError(err),
		"retryable": domain.IsRetryable(err),
	})
}

package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/sp500", h.HandleGetSP500)
		r.Get("/all/tickers", h.HandleGetExchangeTickers)
		r.Get("/summary/{ticker}", h.HandleGetSummary)
		r.Get("/{ticker}", h.HandleGetChart)
	})
}

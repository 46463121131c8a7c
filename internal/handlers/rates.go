package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

// rateSource is the slice of the exchange-rate cache the rate endpoint needs.
type rateSource interface {
	Current() domain.ExchangeRate
}

// RateHandlers exposes the USD to local-currency rate in effect.
type RateHandlers struct {
	rates rateSource
}

// NewRateHandlers constructs rate handlers.
func NewRateHandlers(rates rateSource) *RateHandlers {
	return &RateHandlers{rates: rates}
}

// Routes wires the exchange-rate endpoint onto the provided router.
func (h *RateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/exchange-rate", h.getRate)
}

func (h *RateHandlers) getRate(w http.ResponseWriter, r *http.Request) {
	rate := h.rates.Current()

	// Rates change hourly at most; let clients cache briefly.
	w.Header().Set("Cache-Control", "public, max-age=300")

	payload := exchangeRatePayload{
		Value:  rate.Value,
		Source: string(rate.Source),
	}
	if !rate.FetchedAt.IsZero() {
		payload.FetchedAt = formatTime(rate.FetchedAt)
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"rate": payload})
}

type exchangeRatePayload struct {
	Value     float64 `json:"value"`
	Source    string  `json:"source"`
	FetchedAt string  `json:"fetched_at,omitempty"`
}

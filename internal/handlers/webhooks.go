package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/platform/auth"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/services"
)

const maxWebhookBodySize = 256 * 1024

// WebhookHandlers receives payment-provider callbacks and settles orders.
type WebhookHandlers struct {
	verifier *auth.WebhookVerifier
	checkout services.CheckoutService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(verifier *auth.WebhookVerifier, checkout services.CheckoutService) *WebhookHandlers {
	return &WebhookHandlers{verifier: verifier, checkout: checkout}
}

// Routes wires the webhook endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

func (h *WebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature")); err != nil {
			switch {
			case errors.Is(err, auth.ErrWebhookStale):
				httpx.WriteError(ctx, w, httpx.NewError("stale_signature", "webhook timestamp outside tolerance", http.StatusBadRequest))
			default:
				httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
			}
			return
		}
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid webhook payload", http.StatusBadRequest))
		return
	}

	orderID := strings.TrimSpace(event.Data.Object.Metadata["orderId"])

	switch event.Type {
	case "checkout.session.completed":
		if orderID == "" {
			// Sessions created outside this system carry no order; acknowledge.
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, err := h.checkout.MarkOrderPaid(ctx, orderID); err != nil {
			h.writeSettleError(w, r, err)
			return
		}
	case "checkout.session.expired":
		if orderID == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, err := h.checkout.MarkOrderCanceled(ctx, orderID); err != nil {
			h.writeSettleError(w, r, err)
			return
		}
	default:
		// Unhandled event types are acknowledged so the provider stops retrying.
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandlers) writeSettleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutNotFound):
		// Unknown order: nothing to settle, and retrying will not help.
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		// Transient failure: a non-2xx asks the provider to redeliver.
		httpx.WriteError(ctx, w, httpx.NewError("webhook_retry", "temporary failure, retry later", http.StatusServiceUnavailable))
	}
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/platform/auth"
	"github.com/webmuhendisi/velopix/internal/services"
)

func newWebhookVerifier(t *testing.T, now time.Time) *auth.WebhookVerifier {
	t.Helper()
	verifier, err := auth.NewWebhookVerifier("whsec_test", 5*time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("unexpected error creating verifier: %v", err)
	}
	return verifier
}

func newWebhookTestRouter(verifier *auth.WebhookVerifier, checkout services.CheckoutService) chi.Router {
	handler := NewWebhookHandlers(verifier, checkout)
	router := chi.NewRouter()
	router.Route("/webhooks", handler.Routes)
	return router
}

func postSignedWebhook(router chi.Router, verifier *auth.WebhookVerifier, payload string, at time.Time) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	if verifier != nil {
		req.Header.Set("Stripe-Signature", verifier.Sign([]byte(payload), at))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestStripeWebhookCompletedMarksOrderPaid(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)

	var settled string
	checkout := &stubCheckoutService{
		paidFn: func(_ context.Context, orderID string) (services.Order, error) {
			settled = orderID
			return services.Order{ID: orderID}, nil
		},
	}
	router := newWebhookTestRouter(verifier, checkout)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_test_123","metadata":{"orderId":"ord-1"}}}}`
	rr := postSignedWebhook(router, verifier, payload, now)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if settled != "ord-1" {
		t.Fatalf("expected ord-1 settled, got %q", settled)
	}
}

func TestStripeWebhookExpiredCancelsOrder(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)

	var canceled string
	checkout := &stubCheckoutService{
		canceledFn: func(_ context.Context, orderID string) (services.Order, error) {
			canceled = orderID
			return services.Order{ID: orderID}, nil
		},
	}
	router := newWebhookTestRouter(verifier, checkout)

	payload := `{"id":"evt_2","type":"checkout.session.expired","data":{"object":{"id":"cs_test_456","metadata":{"orderId":"ord-2"}}}}`
	rr := postSignedWebhook(router, verifier, payload, now)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if canceled != "ord-2" {
		t.Fatalf("expected ord-2 canceled, got %q", canceled)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)
	router := newWebhookTestRouter(verifier, &stubCheckoutService{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1700000000,v1=deadbeef")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestStripeWebhookRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)
	router := newWebhookTestRouter(verifier, &stubCheckoutService{})

	payload := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"metadata":{"orderId":"ord-3"}}}}`
	rr := postSignedWebhook(router, verifier, payload, now.Add(-time.Hour))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "stale_signature") {
		t.Fatalf("expected stale_signature code, got %s", rr.Body.String())
	}
}

func TestStripeWebhookUnknownOrderIsAcknowledged(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)

	checkout := &stubCheckoutService{
		paidFn: func(context.Context, string) (services.Order, error) {
			return services.Order{}, services.ErrCheckoutNotFound
		},
	}
	router := newWebhookTestRouter(verifier, checkout)

	payload := `{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"metadata":{"orderId":"ord-gone"}}}}`
	rr := postSignedWebhook(router, verifier, payload, now)

	// A 2xx stops provider retries for orders this system never issued.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestStripeWebhookTransientFailureAsksForRetry(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)

	checkout := &stubCheckoutService{
		paidFn: func(context.Context, string) (services.Order, error) {
			return services.Order{}, errors.New("firestore: deadline exceeded")
		},
	}
	router := newWebhookTestRouter(verifier, checkout)

	payload := `{"id":"evt_5","type":"checkout.session.completed","data":{"object":{"metadata":{"orderId":"ord-5"}}}}`
	rr := postSignedWebhook(router, verifier, payload, now)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestStripeWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	verifier := newWebhookVerifier(t, now)
	router := newWebhookTestRouter(verifier, &stubCheckoutService{})

	payload := `{"id":"evt_6","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`
	rr := postSignedWebhook(router, verifier, payload, now)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

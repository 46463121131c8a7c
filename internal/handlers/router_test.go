package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/seo"
)

type stubRateSource struct {
	rate domain.ExchangeRate
}

func (s *stubRateSource) Current() domain.ExchangeRate { return s.rate }

type stubHealthRepository struct {
	err error
}

func (s *stubHealthRepository) Ping(context.Context) error { return s.err }

func TestRouterServesHealthProbesAtRoot(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", path, rr.Code)
		}
	}
}

func TestReadyzReportsDatastoreOutage(t *testing.T) {
	router := NewRouter(WithHealthHandlers(NewHealthHandlers(&stubHealthRepository{err: errors.New("firestore unreachable")})))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "unavailable" {
		t.Fatalf("unexpected payload: %v", resp)
	}
}

func TestRouterUnknownRouteReturnsJSONEnvelope(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected a JSON error envelope: %v", err)
	}
	if resp["error"] != errorNotFoundCode {
		t.Fatalf("unexpected error code: %v", resp["error"])
	}
}

func TestRouterUnconfiguredAdminGroupReturns501(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", rr.Code)
	}
}

func TestRouterMountsStorefrontRegistrars(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rates := NewRateHandlers(&stubRateSource{rate: domain.ExchangeRate{Value: 42.95, Source: domain.RateSourceFallback, FetchedAt: now}})

	router := NewRouter(WithRateRoutes(rates.Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Rate exchangeRatePayload `json:"rate"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Rate.Value != 42.95 || resp.Rate.Source != "fallback" {
		t.Fatalf("unexpected rate payload: %#v", resp.Rate)
	}
}

func TestExchangeRateEndpointSetsCacheHeader(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	handler := NewRateHandlers(&stubRateSource{rate: domain.ExchangeRate{Value: 41.2, Source: domain.RateSourceProvider, FetchedAt: now}})
	router := chi.NewRouter()
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/exchange-rate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "public, max-age=300" {
		t.Fatalf("unexpected cache header %q", rr.Header().Get("Cache-Control"))
	}
	var resp struct {
		Rate exchangeRatePayload `json:"rate"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Rate.Value != 41.2 || resp.Rate.Source != "provider" {
		t.Fatalf("unexpected rate payload: %#v", resp.Rate)
	}
	if resp.Rate.FetchedAt == "" {
		t.Fatalf("expected fetched_at timestamp")
	}
}

func TestSEOHeadRequiresPath(t *testing.T) {
	resolver, err := seo.NewResolver(seo.ResolverDeps{SiteName: "Velopix", BaseURL: "https://www.velopix.com.tr"})
	if err != nil {
		t.Fatalf("unexpected error creating resolver: %v", err)
	}
	handler := NewSEOHandlers(resolver)
	router := chi.NewRouter()
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/seo/head", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSEOHeadResolvesDirectiveAndOps(t *testing.T) {
	resolver, err := seo.NewResolver(seo.ResolverDeps{SiteName: "Velopix", BaseURL: "https://www.velopix.com.tr"})
	if err != nil {
		t.Fatalf("unexpected error creating resolver: %v", err)
	}
	handler := NewSEOHandlers(resolver)
	router := chi.NewRouter()
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/seo/head?path=/sepet", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "public, max-age=600" {
		t.Fatalf("unexpected cache header %q", rr.Header().Get("Cache-Control"))
	}
	var resp struct {
		Directive seo.Directive `json:"directive"`
		Ops       []seo.PatchOp `json:"ops"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Directive.Title == "" {
		t.Fatalf("expected a resolved title")
	}
	if resp.Directive.Canonical != "https://www.velopix.com.tr/sepet" {
		t.Fatalf("unexpected canonical %q", resp.Directive.Canonical)
	}
	if len(resp.Ops) == 0 {
		t.Fatalf("expected patch ops for a fresh head")
	}
}

func TestSEOHeadFromPathReturnsNavigationDelta(t *testing.T) {
	resolver, err := seo.NewResolver(seo.ResolverDeps{SiteName: "Velopix", BaseURL: "https://www.velopix.com.tr"})
	if err != nil {
		t.Fatalf("unexpected error creating resolver: %v", err)
	}
	handler := NewSEOHandlers(resolver)
	router := chi.NewRouter()
	handler.Routes(router)

	// Both routes share the default description, so the delta between them
	// must not re-emit it.
	req := httptest.NewRequest(http.MethodGet, "/seo/head?path=/sepet&from=/odeme", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Ops []seo.PatchOp `json:"ops"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Ops) == 0 {
		t.Fatalf("expected ops for the title change")
	}
	for _, op := range resp.Ops {
		if op.Target == seo.TargetMetaName && op.Key == "description" {
			t.Fatalf("unchanged description re-emitted: %#v", op)
		}
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/services"
)

type stubCartService struct {
	getOrCreateFn func(context.Context, string) (services.Cart, error)
	addFn         func(context.Context, services.AddCartItemCommand) (services.Cart, error)
	setQtyFn      func(context.Context, services.SetCartItemQuantityCommand) (services.Cart, error)
	removeFn      func(context.Context, string, string) (services.Cart, error)
	clearFn       func(context.Context, string) error
}

func (s *stubCartService) GetOrCreateCart(ctx context.Context, cartID string) (services.Cart, error) {
	if s.getOrCreateFn != nil {
		return s.getOrCreateFn(ctx, cartID)
	}
	return services.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return services.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) SetItemQuantity(ctx context.Context, cmd services.SetCartItemQuantityCommand) (services.Cart, error) {
	if s.setQtyFn != nil {
		return s.setQtyFn(ctx, cmd)
	}
	return services.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, cartID, itemID string) (services.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cartID, itemID)
	}
	return services.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) ClearCart(ctx context.Context, cartID string) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, cartID)
	}
	return errors.New("not implemented")
}

type stubRateConverter struct {
	rate domain.ExchangeRate
}

func (s *stubRateConverter) Convert(usd float64) (float64, domain.ExchangeRate) {
	return usd * s.rate.Value, s.rate
}

func newCartTestRouter(t *testing.T, service services.CartService, converter rateConverter) chi.Router {
	t.Helper()
	handler, err := NewCartHandlers(CartHandlersDeps{
		Carts:       service,
		Rates:       converter,
		IDGenerator: func() string { return "cart-minted" },
	})
	if err != nil {
		t.Fatalf("unexpected error creating handlers: %v", err)
	}
	router := chi.NewRouter()
	handler.Routes(router)
	return router
}

func cartCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	res := rr.Result()
	defer res.Body.Close()
	for _, cookie := range res.Cookies() {
		if cookie.Name == CartCookieName {
			return cookie
		}
	}
	return nil
}

func TestGetCartMintsCookieForNewVisitor(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	var capturedID string
	service := &stubCartService{
		getOrCreateFn: func(_ context.Context, cartID string) (services.Cart, error) {
			capturedID = cartID
			return services.Cart{ID: cartID, CreatedAt: now, UpdatedAt: now}, nil
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedID != "cart-minted" {
		t.Fatalf("expected minted cart id, got %q", capturedID)
	}

	cookie := cartCookieFrom(rr)
	if cookie == nil {
		t.Fatalf("expected %s cookie to be set", CartCookieName)
	}
	if cookie.Value != "cart-minted" {
		t.Fatalf("unexpected cookie value %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.MaxAge != int(cartCookieTTL/time.Second) {
		t.Fatalf("unexpected cookie max age %d", cookie.MaxAge)
	}

	if rr.Header().Get("ETag") == "" {
		t.Fatalf("expected ETag header on cart response")
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "no-store") {
		t.Fatalf("expected no-store cache control, got %q", rr.Header().Get("Cache-Control"))
	}
	if rr.Header().Get("Last-Modified") == "" {
		t.Fatalf("expected Last-Modified header")
	}
}

func TestGetCartReusesExistingCookie(t *testing.T) {
	var capturedID string
	service := &stubCartService{
		getOrCreateFn: func(_ context.Context, cartID string) (services.Cart, error) {
			capturedID = cartID
			return services.Cart{ID: cartID}, nil
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-existing"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedID != "cart-existing" {
		t.Fatalf("expected existing cart id, got %q", capturedID)
	}
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	var captured services.AddCartItemCommand
	service := &stubCartService{
		addFn: func(_ context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
			captured = cmd
			return services.Cart{
				ID: cmd.CartID,
				Items: []services.CartItem{
					{ID: "line-1", Kind: cmd.Kind, ReferenceID: cmd.ReferenceID, Name: "Velopix Soundbar", UnitPrice: 120, Quantity: cmd.Quantity, AddedAt: now},
				},
				UpdatedAt: now,
			}, nil
		},
	}
	converter := &stubRateConverter{rate: domain.ExchangeRate{Value: 40, Source: domain.RateSourceProvider, FetchedAt: now}}
	router := newCartTestRouter(t, service, converter)

	body := strings.NewReader(`{"kind":"product","reference_id":"prod-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/cart/items", body)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", captured.Quantity)
	}
	if captured.Kind != domain.CartItemKindProduct {
		t.Fatalf("unexpected kind %q", captured.Kind)
	}

	var resp cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Cart.ItemsCount != 1 {
		t.Fatalf("expected 1 item, got %d", resp.Cart.ItemsCount)
	}
	if resp.Cart.TotalUSD != 120 {
		t.Fatalf("expected total 120 USD, got %v", resp.Cart.TotalUSD)
	}
	if resp.Cart.TotalLocal != 4800 {
		t.Fatalf("expected local total 4800, got %v", resp.Cart.TotalLocal)
	}
	if resp.Cart.TotalDisplay == "" {
		t.Fatalf("expected formatted local total")
	}
}

func TestSetItemQuantityRequiresCookie(t *testing.T) {
	router := newCartTestRouter(t, &stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/line-1", strings.NewReader(`{"quantity":2}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error body: %v", err)
	}
	if resp["error"] != "cart_not_found" {
		t.Fatalf("expected cart_not_found code, got %v", resp["error"])
	}
}

func TestSetItemQuantityRequiresQuantityField(t *testing.T) {
	router := newCartTestRouter(t, &stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/line-1", strings.NewReader(`{}`))
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSetItemQuantityPassesAbsoluteValue(t *testing.T) {
	var captured services.SetCartItemQuantityCommand
	service := &stubCartService{
		setQtyFn: func(_ context.Context, cmd services.SetCartItemQuantityCommand) (services.Cart, error) {
			captured = cmd
			return services.Cart{ID: cmd.CartID}, nil
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/line-7", strings.NewReader(`{"quantity":0}`))
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ItemID != "line-7" {
		t.Fatalf("expected item line-7, got %q", captured.ItemID)
	}
	if captured.Quantity != 0 {
		t.Fatalf("expected explicit zero quantity, got %d", captured.Quantity)
	}
}

func TestRemoveItemMapsNotFound(t *testing.T) {
	service := &stubCartService{
		removeFn: func(context.Context, string, string) (services.Cart, error) {
			return services.Cart{}, services.ErrCartNotFound
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/line-1", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestClearCartWithoutCookieIsNoOp(t *testing.T) {
	router := newCartTestRouter(t, &stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}

func TestClearCartDelegatesToService(t *testing.T) {
	var cleared string
	service := &stubCartService{
		clearFn: func(_ context.Context, cartID string) error {
			cleared = cartID
			return nil
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-9"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if cleared != "cart-9" {
		t.Fatalf("expected cart-9 to be cleared, got %q", cleared)
	}
}

func TestCartConflictMapsTo409(t *testing.T) {
	service := &stubCartService{
		addFn: func(context.Context, services.AddCartItemCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartConflict
		},
	}
	router := newCartTestRouter(t, service, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"kind":"product","reference_id":"p1"}`))
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestBuildCartETagIsStablePerRevision(t *testing.T) {
	updated := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	first := buildCartETag(services.Cart{ID: "cart-1", UpdatedAt: updated})
	second := buildCartETag(services.Cart{ID: "cart-1", UpdatedAt: updated})
	if first == "" || first != second {
		t.Fatalf("expected stable ETag, got %q and %q", first, second)
	}
	changed := buildCartETag(services.Cart{ID: "cart-1", UpdatedAt: updated.Add(time.Second)})
	if changed == first {
		t.Fatalf("expected ETag to change with revision")
	}
	if !strings.HasPrefix(first, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", first)
	}
}

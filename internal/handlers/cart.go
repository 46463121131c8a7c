package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/rates"
	"github.com/webmuhendisi/velopix/internal/services"
)

const (
	// CartCookieName carries the anonymous cart token.
	CartCookieName = "vx_cart"

	cartCookieTTL   = 30 * 24 * time.Hour
	maxCartBodySize = 16 * 1024
)

// CartHandlers exposes the anonymous cart endpoints. The cart is keyed by an
// opaque token in the vx_cart cookie; no login is involved.
type CartHandlers struct {
	carts  services.CartService
	rates  rateConverter
	secure bool
	newID  func() string
}

// CartHandlersDeps bundles constructor inputs for cart handlers.
type CartHandlersDeps struct {
	Carts services.CartService
	Rates rateConverter
	// SecureCookies marks the cart cookie Secure; enable outside local development.
	SecureCookies bool
	IDGenerator   func() string
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(deps CartHandlersDeps) (*CartHandlers, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart handlers: cart service is required")
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	return &CartHandlers{
		carts:  deps.Carts,
		rates:  deps.Rates,
		secure: deps.SecureCookies,
		newID:  newID,
	}, nil
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/cart", func(cart chi.Router) {
		cart.Get("/", h.getCart)
		cart.Delete("/", h.clearCart)
		cart.Post("/items", h.addItem)
		cart.Patch("/items/{itemID}", h.setItemQuantity)
		cart.Delete("/items/{itemID}", h.removeItem)
	})
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := h.ensureCartCookie(w, r)

	cart, err := h.carts.GetOrCreateCart(ctx, cartID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := h.ensureCartCookie(w, r)

	var req addCartItemRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		CartID:      cartID,
		Kind:        domain.CartItemKind(strings.TrimSpace(req.Kind)),
		ReferenceID: req.ReferenceID,
		Quantity:    quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart)
}

func (h *CartHandlers) setItemQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.cartIDFromCookie(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "no cart cookie present", http.StatusNotFound))
		return
	}

	var req setCartItemQuantityRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.SetItemQuantity(ctx, services.SetCartItemQuantityCommand{
		CartID:   cartID,
		ItemID:   chi.URLParam(r, "itemID"),
		Quantity: *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.cartIDFromCookie(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "no cart cookie present", http.StatusNotFound))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, cartID, chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.cartIDFromCookie(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.carts.ClearCart(ctx, cartID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cartIDFromCookie returns the cart token without minting a new one.
func (h *CartHandlers) cartIDFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CartCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}
	return strings.TrimSpace(cookie.Value), true
}

// ensureCartCookie returns the existing cart token or mints one, refreshing
// the cookie lifetime either way.
func (h *CartHandlers) ensureCartCookie(w http.ResponseWriter, r *http.Request) string {
	cartID, ok := h.cartIDFromCookie(r)
	if !ok {
		cartID = h.newID()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    cartID,
		Path:     "/",
		MaxAge:   int(cartCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return cartID
}

func (h *CartHandlers) writeCart(w http.ResponseWriter, cart services.Cart) {
	setCartResponseHeaders(w, cart)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: h.buildCartPayload(cart)})
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart request failed", http.StatusInternalServerError))
	}
}

func setCartResponseHeaders(w http.ResponseWriter, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(cart); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func buildCartETag(cart services.Cart) string {
	if strings.TrimSpace(cart.ID) == "" || cart.UpdatedAt.IsZero() {
		return ""
	}
	input := fmt.Sprintf("%s:%d", strings.TrimSpace(cart.ID), cart.UpdatedAt.UTC().UnixNano())
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(sum[:8]))
}

func (h *CartHandlers) buildCartPayload(cart services.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		entry := cartItemPayload{
			ID:          item.ID,
			Kind:        string(item.Kind),
			ReferenceID: item.ReferenceID,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
		}
		if !item.AddedAt.IsZero() {
			entry.AddedAt = formatTime(item.AddedAt)
		}
		items = append(items, entry)
	}

	payload := cartPayload{
		ID:         cart.ID,
		Items:      items,
		ItemsCount: len(items),
		TotalUSD:   domain.CartTotal(cart.Items),
	}
	if h.rates != nil {
		local, _ := h.rates.Convert(payload.TotalUSD)
		payload.TotalLocal = math.Round(local*100) / 100
		payload.TotalDisplay = rates.FormatLocal(payload.TotalLocal)
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID           string            `json:"id"`
	Items        []cartItemPayload `json:"items"`
	ItemsCount   int               `json:"items_count"`
	TotalUSD     float64           `json:"total_usd"`
	TotalLocal   float64           `json:"total_local,omitempty"`
	TotalDisplay string            `json:"total_display,omitempty"`
	UpdatedAt    string            `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	ReferenceID string  `json:"reference_id"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"image_url,omitempty"`
	AddedAt     string  `json:"added_at,omitempty"`
}

type addCartItemRequest struct {
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	Quantity    *int   `json:"quantity"`
}

type setCartItemQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

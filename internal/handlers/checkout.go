package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/services"
)

const maxCheckoutBodySize = 8 * 1024

// CheckoutHandlers starts hosted payment sessions from the visitor's cart.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/checkout/session", h.createSession)
}

// AdminRoutes wires the back-office order listing. Callers apply auth middleware.
func (h *CheckoutHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cartID := ""
	if cookie, err := r.Cookie(CartCookieName); err == nil {
		cartID = cookie.Value
	}

	var req createSessionRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.checkout.CreateSession(ctx, services.CreateCheckoutSessionCommand{
		CartID:     cartID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{"session": checkoutSessionPayload{
		OrderID:    session.OrderID,
		SessionID:  session.SessionID,
		SessionURL: session.SessionURL,
		TotalLocal: session.TotalLocal,
		Currency:   session.Currency,
		CreatedAt:  formatTime(session.CreatedAt),
	}})
}

func (h *CheckoutHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := listPagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.OrderListQuery{Pagination: pager}
	if status := optionalQueryParam(r, "status"); status != nil {
		query.Status = []domain.OrderStatus{domain.OrderStatus(*status)}
	}

	page, err := h.checkout.ListOrders(ctx, query)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[orderPayload]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no payable items", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout request failed", http.StatusInternalServerError))
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]cartItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, cartItemPayload{
			ID:          item.ID,
			Kind:        string(item.Kind),
			ReferenceID: item.ReferenceID,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
		})
	}
	payload := orderPayload{
		ID:         order.ID,
		CartID:     order.CartID,
		Items:      items,
		TotalLocal: order.TotalLocal,
		Currency:   order.Currency,
		Status:     string(order.Status),
		SessionID:  order.SessionID,
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(order.CreatedAt)
	}
	if !order.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(order.UpdatedAt)
	}
	return payload
}

type createSessionRequest struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type checkoutSessionPayload struct {
	OrderID    string  `json:"order_id"`
	SessionID  string  `json:"session_id"`
	SessionURL string  `json:"session_url"`
	TotalLocal float64 `json:"total_local"`
	Currency   string  `json:"currency"`
	CreatedAt  string  `json:"created_at"`
}

type orderPayload struct {
	ID         string            `json:"id"`
	CartID     string            `json:"cart_id"`
	Items      []cartItemPayload `json:"items"`
	TotalLocal float64           `json:"total_local"`
	Currency   string            `json:"currency"`
	Status     string            `json:"status"`
	SessionID  string            `json:"session_id,omitempty"`
	CreatedAt  string            `json:"created_at,omitempty"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid data to a checkout operation.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutNotFound indicates the referenced cart or order does not exist.
	ErrCheckoutNotFound = errors.New("checkout service: not found")
	// ErrCheckoutEmptyCart indicates a session was requested for a cart with no payable lines.
	ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")
	// ErrCheckoutUnavailable indicates the backend or payment provider rejected the request.
	ErrCheckoutUnavailable = errors.New("checkout service: unavailable")
)

// PaymentLine is one payable line handed to the payment gateway. UnitAmount
// is in the minor unit of the session currency.
type PaymentLine struct {
	Name       string
	UnitAmount int64
	Quantity   int
	ImageURL   string
}

// PaymentSessionRequest describes the hosted payment session to create.
type PaymentSessionRequest struct {
	OrderID    string
	Currency   string
	SuccessURL string
	CancelURL  string
	Lines      []PaymentLine
}

// PaymentSession is the provider-side handle for a created session.
type PaymentSession struct {
	ID  string
	URL string
}

// paymentGateway is the slice of the payment provider checkout needs.
type paymentGateway interface {
	CreateSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
}

// currencyConverter turns USD amounts into the storefront currency using
// the rate in effect at call time.
type currencyConverter interface {
	Convert(usd float64) (float64, domain.ExchangeRate)
}

// CheckoutServiceDeps bundles constructor inputs for the checkout service.
type CheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Orders      repositories.OrderRepository
	Gateway     paymentGateway
	Rates       currencyConverter
	Currency    string
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type checkoutService struct {
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	gateway  paymentGateway
	rates    currencyConverter
	currency string
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
	newID    func() string
}

// NewCheckoutService constructs the checkout service with the supplied dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("checkout service: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("checkout service: payment gateway is required")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("checkout service: currency converter is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "TRY"
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	return &checkoutService{
		carts:    deps.Carts,
		orders:   deps.Orders,
		gateway:  deps.Gateway,
		rates:    deps.Rates,
		currency: currency,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		newID:    idGen,
	}, nil
}

func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error) {
	if s == nil || s.carts == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: cart id is required", ErrCheckoutInvalidInput)
	}
	successURL := strings.TrimSpace(cmd.SuccessURL)
	cancelURL := strings.TrimSpace(cmd.CancelURL)
	if successURL == "" || cancelURL == "" {
		return CheckoutSession{}, fmt.Errorf("%w: success and cancel URLs are required", ErrCheckoutInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		if isRepoNotFound(err) {
			return CheckoutSession{}, ErrCheckoutNotFound
		}
		return CheckoutSession{}, s.translateError(err)
	}

	lines, payable := s.buildPaymentLines(cart.Items)
	if len(lines) == 0 {
		return CheckoutSession{}, ErrCheckoutEmptyCart
	}

	totalLocal, rate := s.rates.Convert(domain.CartTotal(payable))
	totalLocal = math.Round(totalLocal*100) / 100

	now := s.clock()
	orderID := s.newID()

	session, err := s.gateway.CreateSession(ctx, PaymentSessionRequest{
		OrderID:    orderID,
		Currency:   s.currency,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Lines:      lines,
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{"cartID": cartID, "error": err.Error()})
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	order := domain.Order{
		ID:         orderID,
		CartID:     cartID,
		Items:      payable,
		TotalLocal: totalLocal,
		Currency:   s.currency,
		Status:     domain.OrderStatusPending,
		SessionID:  session.ID,
		SessionURL: session.URL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return CheckoutSession{}, s.translateError(err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"orderID":    orderID,
		"cartID":     cartID,
		"totalLocal": totalLocal,
		"rateSource": string(rate.Source),
	})
	return CheckoutSession{
		OrderID:    orderID,
		SessionID:  session.ID,
		SessionURL: session.URL,
		TotalLocal: totalLocal,
		Currency:   s.currency,
		CreatedAt:  now,
	}, nil
}

func (s *checkoutService) MarkOrderPaid(ctx context.Context, orderID string) (Order, error) {
	return s.settleOrder(ctx, orderID, domain.OrderStatusPaid, "checkout.order_paid")
}

func (s *checkoutService) MarkOrderCanceled(ctx context.Context, orderID string) (Order, error) {
	return s.settleOrder(ctx, orderID, domain.OrderStatusCanceled, "checkout.order_canceled")
}

// settleOrder moves a pending order to its terminal state. Settling an
// already settled order is a no-op so webhook retries stay harmless.
func (s *checkoutService) settleOrder(ctx context.Context, orderID string, status domain.OrderStatus, event string) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrCheckoutUnavailable
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrCheckoutInvalidInput)
	}

	existing, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateError(err)
	}
	if existing.Status == status {
		return existing, nil
	}
	if existing.Status != domain.OrderStatusPending {
		return Order{}, fmt.Errorf("%w: order %s is already %s", ErrCheckoutInvalidInput, orderID, existing.Status)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, status, s.clock())
	if err != nil {
		return Order{}, s.translateError(err)
	}
	s.logger(ctx, event, map[string]any{"orderID": orderID})
	return updated, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error) {
	if s == nil || s.orders == nil {
		return domain.CursorPage[Order]{}, ErrCheckoutUnavailable
	}
	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status:     query.Status,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateError(err)
	}
	return page, nil
}

// buildPaymentLines keeps only lines that can be charged. Lines with a
// non-positive quantity or a non-finite or negative price are skipped, the
// same way the cart total skips them.
func (s *checkoutService) buildPaymentLines(items []domain.CartItem) ([]PaymentLine, []domain.CartItem) {
	lines := make([]PaymentLine, 0, len(items))
	payable := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) {
			continue
		}
		unitLocal, _ := s.rates.Convert(item.UnitPrice)
		lines = append(lines, PaymentLine{
			Name:       item.Name,
			UnitAmount: int64(math.Round(unitLocal * 100)),
			Quantity:   item.Quantity,
			ImageURL:   item.ImageURL,
		})
		payable = append(payable, item)
	}
	return lines, payable
}

func (s *checkoutService) translateError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCheckoutNotFound
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return ErrCheckoutUnavailable
		}
	}
	return ErrCheckoutUnavailable
}

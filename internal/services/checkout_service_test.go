package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

type stubOrderRepository struct {
	insertFunc       func(ctx context.Context, order domain.Order) error
	findFunc         func(ctx context.Context, orderID string) (domain.Order, error)
	updateStatusFunc func(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
	listFunc         func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, order)
	}
	return errors.New("unexpected Insert call")
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, orderID)
	}
	return domain.Order{}, errors.New("unexpected FindByID call")
}

func (s *stubOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, orderID, status, updatedAt)
	}
	return domain.Order{}, errors.New("unexpected UpdateStatus call")
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, errors.New("unexpected List call")
}

type stubPaymentGateway struct {
	createFunc func(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
}

func (s *stubPaymentGateway) CreateSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, req)
	}
	return PaymentSession{}, errors.New("unexpected CreateSession call")
}

type stubConverter struct {
	rate float64
}

func (s stubConverter) Convert(usd float64) (float64, domain.ExchangeRate) {
	return usd * s.rate, domain.ExchangeRate{Value: s.rate, Source: domain.RateSourceProvider}
}

func newTestCheckoutService(t *testing.T, carts *stubCartRepository, orders *stubOrderRepository, gateway *stubPaymentGateway) CheckoutService {
	t.Helper()
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:       carts,
		Orders:      orders,
		Gateway:     gateway,
		Rates:       stubConverter{rate: 40},
		Currency:    "try",
		Clock:       fixedCartClock(),
		IDGenerator: func() string { return "order-id" },
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	return svc
}

func TestCreateSessionConvertsAndRecordsOrder(t *testing.T) {
	carts := &stubCartRepository{
		getFunc: func(_ context.Context, cartID string) (domain.Cart, error) {
			return domain.Cart{
				ID: cartID,
				Items: []domain.CartItem{
					{ID: "1-tv", Kind: domain.CartItemKindProduct, ReferenceID: "tv", Name: "TV", UnitPrice: 10, Quantity: 2},
				},
			}, nil
		},
	}
	var inserted domain.Order
	orders := &stubOrderRepository{
		insertFunc: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}
	var captured PaymentSessionRequest
	gateway := &stubPaymentGateway{
		createFunc: func(_ context.Context, req PaymentSessionRequest) (PaymentSession, error) {
			captured = req
			return PaymentSession{ID: "cs_123", URL: "https://pay.example/cs_123"}, nil
		},
	}
	svc := newTestCheckoutService(t, carts, orders, gateway)

	session, err := svc.CreateSession(context.Background(), CreateCheckoutSessionCommand{
		CartID:     "cart-1",
		SuccessURL: "https://velopix.example/tesekkurler",
		CancelURL:  "https://velopix.example/sepet",
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if session.TotalLocal != 800 {
		t.Fatalf("expected converted total 800, got %v", session.TotalLocal)
	}
	if session.Currency != "TRY" {
		t.Fatalf("expected uppercased currency, got %q", session.Currency)
	}
	if session.SessionURL != "https://pay.example/cs_123" {
		t.Fatalf("unexpected session url %q", session.SessionURL)
	}
	if inserted.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %q", inserted.Status)
	}
	if inserted.SessionID != "cs_123" {
		t.Fatalf("expected session id on order, got %q", inserted.SessionID)
	}
	if len(captured.Lines) != 1 || captured.Lines[0].UnitAmount != 40000 || captured.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected payment lines %+v", captured.Lines)
	}
}

func TestCreateSessionRejectsEmptyCart(t *testing.T) {
	carts := &stubCartRepository{
		getFunc: func(_ context.Context, cartID string) (domain.Cart, error) {
			return domain.Cart{ID: cartID}, nil
		},
	}
	svc := newTestCheckoutService(t, carts, &stubOrderRepository{}, &stubPaymentGateway{})

	_, err := svc.CreateSession(context.Background(), CreateCheckoutSessionCommand{
		CartID:     "cart-1",
		SuccessURL: "https://velopix.example/ok",
		CancelURL:  "https://velopix.example/cancel",
	})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestCreateSessionSkipsCorruptLines(t *testing.T) {
	carts := &stubCartRepository{
		getFunc: func(_ context.Context, cartID string) (domain.Cart, error) {
			return domain.Cart{
				ID: cartID,
				Items: []domain.CartItem{
					{ID: "1-a", Name: "Broken", UnitPrice: math.NaN(), Quantity: 1},
					{ID: "2-b", Name: "Speaker", UnitPrice: 25, Quantity: 1},
				},
			}, nil
		},
	}
	var inserted domain.Order
	orders := &stubOrderRepository{
		insertFunc: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}
	gateway := &stubPaymentGateway{
		createFunc: func(_ context.Context, req PaymentSessionRequest) (PaymentSession, error) {
			if len(req.Lines) != 1 {
				t.Fatalf("expected corrupt line to be skipped, got %+v", req.Lines)
			}
			return PaymentSession{ID: "cs_456", URL: "https://pay.example/cs_456"}, nil
		},
	}
	svc := newTestCheckoutService(t, carts, orders, gateway)

	session, err := svc.CreateSession(context.Background(), CreateCheckoutSessionCommand{
		CartID:     "cart-1",
		SuccessURL: "https://velopix.example/ok",
		CancelURL:  "https://velopix.example/cancel",
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if session.TotalLocal != 1000 {
		t.Fatalf("expected total from payable lines only, got %v", session.TotalLocal)
	}
	if len(inserted.Items) != 1 || inserted.Items[0].ID != "2-b" {
		t.Fatalf("expected only payable items recorded, got %+v", inserted.Items)
	}
}

func TestCreateSessionGatewayFailureDoesNotRecordOrder(t *testing.T) {
	carts := &stubCartRepository{
		getFunc: func(_ context.Context, cartID string) (domain.Cart, error) {
			return domain.Cart{
				ID:    cartID,
				Items: []domain.CartItem{{ID: "1-a", Name: "TV", UnitPrice: 10, Quantity: 1}},
			}, nil
		},
	}
	orders := &stubOrderRepository{
		insertFunc: func(context.Context, domain.Order) error {
			t.Fatalf("order must not be recorded when the gateway fails")
			return nil
		},
	}
	gateway := &stubPaymentGateway{
		createFunc: func(context.Context, PaymentSessionRequest) (PaymentSession, error) {
			return PaymentSession{}, errors.New("stripe is down")
		},
	}
	svc := newTestCheckoutService(t, carts, orders, gateway)

	_, err := svc.CreateSession(context.Background(), CreateCheckoutSessionCommand{
		CartID:     "cart-1",
		SuccessURL: "https://velopix.example/ok",
		CancelURL:  "https://velopix.example/cancel",
	})
	if !errors.Is(err, ErrCheckoutUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestCreateSessionUnknownCart(t *testing.T) {
	carts := &stubCartRepository{
		getFunc: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{}, repositoryErrorStub{notFound: true}
		},
	}
	svc := newTestCheckoutService(t, carts, &stubOrderRepository{}, &stubPaymentGateway{})

	_, err := svc.CreateSession(context.Background(), CreateCheckoutSessionCommand{
		CartID:     "ghost",
		SuccessURL: "https://velopix.example/ok",
		CancelURL:  "https://velopix.example/cancel",
	})
	if !errors.Is(err, ErrCheckoutNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMarkOrderPaidUpdatesPendingOrder(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending}, nil
		},
		updateStatusFunc: func(_ context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
			if status != domain.OrderStatusPaid {
				t.Fatalf("unexpected status %s", status)
			}
			return domain.Order{ID: orderID, Status: status, UpdatedAt: updatedAt}, nil
		},
	}
	svc := newTestCheckoutService(t, &stubCartRepository{}, orders, &stubPaymentGateway{})

	order, err := svc.MarkOrderPaid(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("MarkOrderPaid returned error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}
}

func TestMarkOrderPaidIsIdempotent(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPaid}, nil
		},
	}
	svc := newTestCheckoutService(t, &stubCartRepository{}, orders, &stubPaymentGateway{})

	order, err := svc.MarkOrderPaid(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("MarkOrderPaid returned error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}
}

func TestMarkOrderCanceledRejectsPaidOrder(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPaid}, nil
		},
	}
	svc := newTestCheckoutService(t, &stubCartRepository{}, orders, &stubPaymentGateway{})

	if _, err := svc.MarkOrderCanceled(context.Background(), "order-1"); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

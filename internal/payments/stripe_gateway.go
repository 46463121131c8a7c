// Package payments adapts the Stripe Checkout API to the checkout service.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/webmuhendisi/velopix/internal/services"
)

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey   string
	Locale   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clock    func() time.Time

	// Sessions overrides the Stripe client, used by tests.
	Sessions stripeSessionAPI
}

// StripeGateway creates hosted Stripe Checkout sessions.
type StripeGateway struct {
	sessions stripeSessionAPI
	locale   string
	clock    func() time.Time
	logger   StripeLogger
}

// NewStripeGateway constructs a Stripe gateway using the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	sessions := cfg.Sessions
	if sessions == nil {
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, cfg.Backends)
		sessions = sc.CheckoutSessions
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	locale := strings.TrimSpace(cfg.Locale)
	if locale == "" {
		locale = "tr"
	}

	return &StripeGateway{
		sessions: sessions,
		locale:   strings.ReplaceAll(strings.ToLower(locale), "_", "-"),
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// CreateSession creates a hosted Checkout session for the given order.
func (g *StripeGateway) CreateSession(ctx context.Context, req services.PaymentSessionRequest) (services.PaymentSession, error) {
	if g == nil || g.sessions == nil {
		return services.PaymentSession{}, errors.New("stripe: gateway is not initialised")
	}
	if len(req.Lines) == 0 {
		return services.PaymentSession{}, errors.New("stripe: at least one line item is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Locale:     stripe.String(g.locale),
	}
	params.Context = ctx
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		params.SetIdempotencyKey("order-" + orderID)
		params.Metadata = map[string]string{"orderId": orderID}
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		quantity := int64(line.Quantity)
		if quantity < 1 {
			quantity = 1
		}
		item := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		}
		if line.ImageURL != "" {
			item.PriceData.ProductData.Images = []*string{stripe.String(line.ImageURL)}
		}
		lineItems = append(lineItems, item)
	}
	params.LineItems = lineItems

	session, err := g.sessions.New(params)
	if err != nil {
		return services.PaymentSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	g.logger(ctx, "payments.stripe.session_created", map[string]any{
		"sessionId": session.ID,
		"orderId":   req.OrderID,
		"currency":  currency,
	})

	return services.PaymentSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

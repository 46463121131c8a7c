package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/platform/config"
	"github.com/webmuhendisi/velopix/internal/repositories"
	"github.com/webmuhendisi/velopix/internal/services"
)

// PaymentGateway creates hosted payment sessions for checkout. The Stripe
// gateway in internal/payments satisfies it.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req services.PaymentSessionRequest) (services.PaymentSession, error)
}

// RateConverter turns USD catalog prices into the storefront currency.
// The exchange-rate cache in internal/rates satisfies it.
type RateConverter interface {
	Convert(usd float64) (float64, domain.ExchangeRate)
}

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart     services.CartService
	Catalog  services.CatalogService
	Content  services.ContentService
	Repairs  services.RepairService
	Reviews  services.ReviewService
	Checkout services.CheckoutService
}

// ContainerDeps carries everything NewContainer needs beyond the repository
// registry: the payment gateway and rate converter are runtime infrastructure
// owned by the caller.
type ContainerDeps struct {
	Config       config.Config
	Repositories repositories.Registry
	Gateway      PaymentGateway
	Rates        RateConverter
	Clock        func() time.Time
	Logger       func(context.Context, string, map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// Firestore-backed repositories, while tests can supply in-memory registries.
func NewContainer(deps ContainerDeps) (*Container, error) {
	if deps.Repositories == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Repositories,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	reg := deps.Repositories

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	var svc Services

	catalogRepo := reg.Catalog()
	if catalogRepo == nil {
		return Services{}, errors.New("catalog repository is required")
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogRepo,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartRepo := reg.Carts()
	if cartRepo == nil {
		return Services{}, errors.New("cart repository is required")
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Catalog:    catalogRepo,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	contentSvc, err := services.NewContentService(services.ContentServiceDeps{
		Content: reg.Content(),
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build content service: %w", err)
	}
	svc.Content = contentSvc

	repairSvc, err := services.NewRepairService(services.RepairServiceDeps{
		Repairs: reg.RepairRequests(),
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build repair service: %w", err)
	}
	svc.Repairs = repairSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Catalog: catalogRepo,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	// Checkout is optional: without a payment gateway (e.g. no Stripe key in
	// local development) the order routes answer 501 instead.
	if deps.Gateway != nil && deps.Rates != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Carts:    cartRepo,
			Orders:   reg.Orders(),
			Gateway:  deps.Gateway,
			Rates:    deps.Rates,
			Currency: deps.Config.Rates.Currency,
			Clock:    clock,
			Logger:   logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	return svc, nil
}

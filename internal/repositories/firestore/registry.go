package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/webmuhendisi/velopix/internal/platform/firestore"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry accessor interface.
type Registry struct {
	provider *pfirestore.Provider

	carts   *CartRepository
	catalog *CatalogRepository
	content *ContentRepository
	repairs *RepairRequestRepository
	reviews *ReviewRepository
	orders  *OrderRepository
}

// NewRegistry wires every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build cart repository: %w", err)
	}
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build catalog repository: %w", err)
	}
	content, err := NewContentRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build content repository: %w", err)
	}
	repairs, err := NewRepairRequestRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build repair repository: %w", err)
	}
	reviews, err := NewReviewRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build review repository: %w", err)
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("registry: build order repository: %w", err)
	}

	return &Registry{
		provider: provider,
		carts:    carts,
		catalog:  catalog,
		content:  content,
		repairs:  repairs,
		reviews:  reviews,
		orders:   orders,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Catalog returns the catalog repository.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Content returns the content repository.
func (r *Registry) Content() repositories.ContentRepository { return r.content }

// RepairRequests returns the repair ticket repository.
func (r *Registry) RepairRequests() repositories.RepairRequestRepository { return r.repairs }

// Reviews returns the review repository.
func (r *Registry) Reviews() repositories.ReviewRepository { return r.reviews }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Health returns a readiness probe scoped to the Firestore client.
func (r *Registry) Health() repositories.HealthRepository {
	return healthProbe{provider: r.provider}
}

type healthProbe struct {
	provider *pfirestore.Provider
}

// Ping verifies the Firestore client can be obtained and answers a trivial read.
func (p healthProbe) Ping(ctx context.Context) error {
	if p.provider == nil {
		return errors.New("health: firestore provider is not configured")
	}
	client, err := p.provider.Client(ctx)
	if err != nil {
		return err
	}
	// A single-document fetch against a well-known collection keeps the
	// probe cheap; NotFound still proves connectivity.
	_, err = client.Collection(settingsCollection).Doc(settingsDocumentID).Get(ctx)
	if err != nil {
		wrapped := pfirestore.WrapError("health.ping", err)
		var repoErr repositories.RepositoryError
		if errors.As(wrapped, &repoErr) && repoErr.IsNotFound() {
			return nil
		}
		return wrapped
	}
	return nil
}

var _ repositories.Registry = (*Registry)(nil)

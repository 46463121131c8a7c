package repositories

import (
	"context"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Catalog() CatalogRepository
	Content() ContentRepository
	RepairRequests() RepairRequestRepository
	Reviews() ReviewRepository
	Orders() OrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository owns cart snapshot persistence. Snapshots are written
// whole after every mutation.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
}

// CatalogRepository bundles product, category and service-package storage.
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	ListServicePackages(ctx context.Context, onlyPublished bool) ([]domain.ServicePackage, error)
	GetServicePackage(ctx context.Context, packageID string) (domain.ServicePackage, error)
	UpsertServicePackage(ctx context.Context, pkg domain.ServicePackage) (domain.ServicePackage, error)
	DeleteServicePackage(ctx context.Context, packageID string) error
}

// ContentRepository stores blog posts, FAQ entries and the settings singleton.
type ContentRepository interface {
	ListPosts(ctx context.Context, filter BlogPostFilter) (domain.CursorPage[domain.BlogPost], error)
	GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, error)
	GetPost(ctx context.Context, postID string) (domain.BlogPost, error)
	UpsertPost(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error)
	DeletePost(ctx context.Context, postID string) error

	ListFAQ(ctx context.Context, onlyPublished bool) ([]domain.FAQEntry, error)
	UpsertFAQ(ctx context.Context, entry domain.FAQEntry) (domain.FAQEntry, error)
	DeleteFAQ(ctx context.Context, entryID string) error

	GetSettings(ctx context.Context) (domain.SiteSettings, error)
	SaveSettings(ctx context.Context, settings domain.SiteSettings) (domain.SiteSettings, error)
}

// RepairRequestRepository persists repair tickets and status transitions.
type RepairRequestRepository interface {
	Insert(ctx context.Context, request domain.RepairRequest) error
	FindByID(ctx context.Context, requestID string) (domain.RepairRequest, error)
	UpdateStatus(ctx context.Context, requestID string, status domain.RepairRequestStatus, updatedAt time.Time) (domain.RepairRequest, error)
	List(ctx context.Context, filter RepairRequestFilter) (domain.CursorPage[domain.RepairRequest], error)
}

// ReviewRepository stores product reviews and their moderation state.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	FindByID(ctx context.Context, reviewID string) (domain.Review, error)
	ListByProduct(ctx context.Context, productID string, filter ReviewFilter) (domain.CursorPage[domain.Review], error)
	UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error)
}

// OrderRepository persists checkout order records.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// HealthRepository exposes status of downstream dependencies for readiness checks.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// Filter DTOs shared across repositories ------------------------------------

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID    *string
	Brand         *string
	Search        *string
	OnlyPublished bool
	Pagination    domain.Pagination
}

// BlogPostFilter narrows blog listings.
type BlogPostFilter struct {
	Status        []domain.ContentStatus
	Tag           *string
	OnlyPublished bool
	Pagination    domain.Pagination
}

// RepairRequestFilter narrows repair ticket listings.
type RepairRequestFilter struct {
	Status     []domain.RepairRequestStatus
	Pagination domain.Pagination
}

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	Status     []domain.ReviewStatus
	Pagination domain.Pagination
}

// OrderListFilter narrows order listings for the back office.
type OrderListFilter struct {
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

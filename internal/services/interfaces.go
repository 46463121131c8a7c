package services

import (
	"context"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination     = domain.Pagination
	Cart           = domain.Cart
	CartItem       = domain.CartItem
	Product        = domain.Product
	Category       = domain.Category
	ServicePackage = domain.ServicePackage
	BlogPost       = domain.BlogPost
	FAQEntry       = domain.FAQEntry
	SiteSettings   = domain.SiteSettings
	RepairRequest  = domain.RepairRequest
	Review         = domain.Review
	Order          = domain.Order
)

// CartService owns cart reads and mutations keyed by the anonymous cart token.
type CartService interface {
	GetOrCreateCart(ctx context.Context, cartID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	SetItemQuantity(ctx context.Context, cmd SetCartItemQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, cartID string, itemID string) (Cart, error)
	ClearCart(ctx context.Context, cartID string) error
}

// AddCartItemCommand adds a catalog entity to the cart. Name, price and image
// are resolved from the catalog; the caller only names the entity.
type AddCartItemCommand struct {
	CartID      string
	Kind        domain.CartItemKind
	ReferenceID string
	Quantity    int
}

// SetCartItemQuantityCommand pins a line to an absolute quantity. Zero or
// negative removes the line.
type SetCartItemQuantityCommand struct {
	CartID   string
	ItemID   string
	Quantity int
}

// CatalogService serves the storefront catalog surface and its back-office CRUD.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	SaveProduct(ctx context.Context, cmd SaveProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error

	ListCategories(ctx context.Context) ([]Category, error)
	SaveCategory(ctx context.Context, category Category) (Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	ListServicePackages(ctx context.Context, includeUnpublished bool) ([]ServicePackage, error)
	SaveServicePackage(ctx context.Context, pkg ServicePackage) (ServicePackage, error)
	DeleteServicePackage(ctx context.Context, packageID string) error
}

// ProductListQuery narrows storefront product listings.
type ProductListQuery struct {
	CategoryID    *string
	Brand         *string
	Search        *string
	IncludeDrafts bool
	Pagination    domain.Pagination
}

// SaveProductCommand creates or updates a product. An empty ID creates.
type SaveProductCommand struct {
	ID          string
	Slug        string
	Name        string
	Description string
	PriceUSD    domain.PriceValue
	Images      []string
	CategoryID  string
	Brand       string
	Stock       int
	Published   bool
}

// ContentService serves blog, FAQ and settings.
type ContentService interface {
	ListPosts(ctx context.Context, query BlogListQuery) (domain.CursorPage[BlogPost], error)
	GetPostBySlug(ctx context.Context, slug string) (BlogPost, error)
	GetPost(ctx context.Context, postID string) (BlogPost, error)
	SavePost(ctx context.Context, cmd SaveBlogPostCommand) (BlogPost, error)
	DeletePost(ctx context.Context, postID string) error

	ListFAQ(ctx context.Context, includeUnpublished bool) ([]FAQEntry, error)
	SaveFAQ(ctx context.Context, entry FAQEntry) (FAQEntry, error)
	DeleteFAQ(ctx context.Context, entryID string) error

	GetSettings(ctx context.Context) (SiteSettings, error)
	UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (SiteSettings, error)
}

// BlogListQuery narrows blog listings.
type BlogListQuery struct {
	Tag           *string
	IncludeDrafts bool
	Pagination    domain.Pagination
}

// SaveBlogPostCommand creates or updates a blog post. BodyMarkdown is the
// editable source; rendering and sanitising happen inside the service.
type SaveBlogPostCommand struct {
	ID           string
	Slug         string
	Title        string
	Excerpt      string
	BodyMarkdown string
	CoverImage   string
	Tags         []string
	Author       string
	Publish      bool
}

// UpdateSettingsCommand patches the settings singleton. Nil fields are left
// untouched.
type UpdateSettingsCommand struct {
	SiteName        *string
	BaseURL         *string
	ContactEmail    *string
	ContactPhone    *string
	Address         *string
	SocialLinks     map[string]string
	AnnouncementBar *string
}

// RepairService owns customer repair tickets.
type RepairService interface {
	Submit(ctx context.Context, cmd SubmitRepairRequestCommand) (RepairRequest, error)
	GetByID(ctx context.Context, requestID string) (RepairRequest, error)
	List(ctx context.Context, query RepairListQuery) (domain.CursorPage[RepairRequest], error)
	UpdateStatus(ctx context.Context, requestID string, status domain.RepairRequestStatus) (RepairRequest, error)
}

// SubmitRepairRequestCommand captures the public intake form.
type SubmitRepairRequestCommand struct {
	Name             string
	Email            string
	Phone            string
	DeviceBrand      string
	DeviceModel      string
	IssueDescription string
}

// RepairListQuery narrows back-office ticket listings.
type RepairListQuery struct {
	Status     []domain.RepairRequestStatus
	Pagination domain.Pagination
}

// ReviewService owns review submission, listing and moderation.
type ReviewService interface {
	Submit(ctx context.Context, cmd SubmitReviewCommand) (Review, error)
	ListApproved(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[Review], error)
	ListPending(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[Review], error)
	Moderate(ctx context.Context, reviewID string, approve bool) (Review, error)
}

// SubmitReviewCommand captures a storefront review submission.
type SubmitReviewCommand struct {
	ProductID string
	Author    string
	Rating    int
	Comment   string
}

// CheckoutService builds payment sessions from cart snapshots and settles
// the resulting orders when the provider confirms payment.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error)
	MarkOrderPaid(ctx context.Context, orderID string) (Order, error)
	MarkOrderCanceled(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error)
}

// CreateCheckoutSessionCommand starts checkout for the given cart.
type CreateCheckoutSessionCommand struct {
	CartID     string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the redirect handle returned to the storefront.
type CheckoutSession struct {
	OrderID    string
	SessionID  string
	SessionURL string
	TotalLocal float64
	Currency   string
	CreatedAt  time.Time
}

// OrderListQuery narrows back-office order listings.
type OrderListQuery struct {
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

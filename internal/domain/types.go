package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of items together with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// CartItemKind distinguishes the catalog entity a cart line refers to.
type CartItemKind string

const (
	// CartItemKindProduct marks lines referencing a catalog product.
	CartItemKindProduct CartItemKind = "product"
	// CartItemKindServicePackage marks lines referencing an installation or warranty package.
	CartItemKindServicePackage CartItemKind = "service-package"
)

// CartItem is a single merged line inside a cart. Lines are unique per
// (Kind, ReferenceID); adding the same entity again increases Quantity.
type CartItem struct {
	ID          string
	Kind        CartItemKind
	ReferenceID string
	Name        string
	UnitPrice   float64
	Quantity    int
	ImageURL    string
	AddedAt     time.Time
}

// Cart aggregates the lines held under one anonymous cart token.
type Cart struct {
	ID        string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product describes a sellable catalog entry. PriceUSD is kept as the
// raw stored value because legacy documents encode it as a string.
type Product struct {
	ID          string
	Slug        string
	Name        string
	Description string
	PriceUSD    PriceValue
	Currency    string
	Images      []string
	CategoryID  string
	Brand       string
	Stock       int
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category groups products for storefront navigation.
type Category struct {
	ID       string
	Slug     string
	Name     string
	Position int
	ParentID string
}

// ServicePackage is an installation or extended-warranty offering that can
// be added to the cart alongside products.
type ServicePackage struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	PriceUSD     PriceValue
	DurationDays int
	Features     []string
	Published    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExchangeRate is the USD to local-currency conversion in effect.
type ExchangeRate struct {
	Value     float64
	Source    RateSource
	FetchedAt time.Time
}

// RateSource tells where the current exchange rate came from.
type RateSource string

const (
	// RateSourceProvider marks a rate obtained from the upstream provider.
	RateSourceProvider RateSource = "provider"
	// RateSourceFallback marks the compiled-in default used before the
	// first successful fetch.
	RateSourceFallback RateSource = "fallback"
)

// BlogPost is an editorial entry. BodyHTML is rendered and sanitised at
// write time; BodyMarkdown stays the editable source.
type BlogPost struct {
	ID           string
	Slug         string
	Title        string
	Excerpt      string
	BodyMarkdown string
	BodyHTML     string
	CoverImage   string
	Tags         []string
	Author       string
	Status       ContentStatus
	PublishedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContentStatus tracks editorial lifecycle for blog posts.
type ContentStatus string

const (
	// ContentStatusDraft keeps an entry out of public listings.
	ContentStatusDraft ContentStatus = "draft"
	// ContentStatusPublished makes an entry publicly visible.
	ContentStatusPublished ContentStatus = "published"
	// ContentStatusArchived removes an entry from listings without deleting it.
	ContentStatusArchived ContentStatus = "archived"
)

// FAQEntry is a question/answer pair ordered by Position.
type FAQEntry struct {
	ID        string
	Question  string
	Answer    string
	Position  int
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SiteSettings is the singleton document driving storefront chrome.
type SiteSettings struct {
	SiteName        string
	BaseURL         string
	ContactEmail    string
	ContactPhone    string
	Address         string
	SocialLinks     map[string]string
	AnnouncementBar string
	UpdatedAt       time.Time
}

// RepairRequestStatus enumerates the forward-only repair workflow.
type RepairRequestStatus string

const (
	// RepairStatusReceived is the initial state of every request.
	RepairStatusReceived RepairRequestStatus = "received"
	// RepairStatusDiagnosing means a technician is assessing the device.
	RepairStatusDiagnosing RepairRequestStatus = "diagnosing"
	// RepairStatusRepairing means work on the device is underway.
	RepairStatusRepairing RepairRequestStatus = "repairing"
	// RepairStatusCompleted means the repair finished and awaits pickup.
	RepairStatusCompleted RepairRequestStatus = "completed"
	// RepairStatusDelivered closes the request.
	RepairStatusDelivered RepairRequestStatus = "delivered"
)

// RepairRequest is a customer-submitted device repair ticket.
type RepairRequest struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	DeviceBrand      string
	DeviceModel      string
	IssueDescription string
	Status           RepairRequestStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReviewStatus tracks moderation state for product reviews.
type ReviewStatus string

const (
	// ReviewStatusPending awaits moderation.
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusApproved is publicly visible.
	ReviewStatusApproved ReviewStatus = "approved"
	// ReviewStatusRejected is hidden permanently.
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review is a customer product review.
type Review struct {
	ID        string
	ProductID string
	Author    string
	Rating    int
	Comment   string
	Status    ReviewStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus tracks checkout lifecycle.
type OrderStatus string

const (
	// OrderStatusPending is set when a checkout session is created.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid is set once the payment provider confirms capture.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCanceled is set when the session expires or is abandoned.
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order records a checkout attempt built from a cart snapshot.
type Order struct {
	ID         string
	CartID     string
	Items      []CartItem
	TotalLocal float64
	Currency   string
	Status     OrderStatus
	SessionID  string
	SessionURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PageView is one tracked storefront navigation.
type PageView struct {
	Path       string
	Referrer   string
	UserAgent  string
	SessionID  string
	OccurredAt time.Time
}

// AnalyticsSession carries the visitor session id together with the last
// activity timestamp used for lazy sliding expiry.
type AnalyticsSession struct {
	ID       string
	LastSeen time.Time
}

// HealthStatus grades the outcome of a dependency probe.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// SystemHealthCheck is the outcome of probing one downstream dependency.
type SystemHealthCheck struct {
	Status    HealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency checks into a readiness verdict.
type SystemHealthReport struct {
	Status      HealthStatus
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}

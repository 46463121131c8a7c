package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartCatalogRequired    = errors.New("cart service: catalog is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

const maxCartItemQuantity = 99

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart or line does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

type cartCatalog interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	GetServicePackage(ctx context.Context, packageID string) (domain.ServicePackage, error)
}

// CartServiceDeps wires the repository and catalog dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Catalog     cartCatalog
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	// IDGenerator mints line ids from the referenced entity id. The default
	// combines the clock's unix-millis with the reference id.
	IDGenerator func(referenceID string) string
}

type cartService struct {
	repo    repositories.CartRepository
	catalog cartCatalog
	newID   func(string) string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	now := func() time.Time { return deps.Clock().UTC() }

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func(referenceID string) string {
			return fmt.Sprintf("%d-%s", now().UnixMilli(), referenceID)
		}
	}

	return &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		newID:   idGen,
		now:     now,
		logger:  logger,
	}, nil
}

// GetOrCreateCart loads the cart for the token, creating a fresh cart when
// absent. A snapshot that cannot be decoded degrades to an empty cart.
func (s *cartService) GetOrCreateCart(ctx context.Context, cartID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	id := strings.TrimSpace(cartID)
	if id == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, id)
	if err != nil {
		switch {
		case isRepoNotFound(err):
			saved, err := s.repo.UpsertCart(ctx, s.newCart(id))
			if err != nil {
				return Cart{}, s.translateRepoError(err)
			}
			cart = saved
		case isRepoBackendError(err):
			return Cart{}, s.translateRepoError(err)
		default:
			// Decode failures mean the stored snapshot is malformed. The
			// storefront must keep working, so start over with an empty cart.
			s.logger(ctx, "cart.snapshot_malformed", map[string]any{
				"cartID": id,
				"error":  err.Error(),
			})
			saved, err := s.repo.UpsertCart(ctx, s.newCart(id))
			if err != nil {
				return Cart{}, s.translateRepoError(err)
			}
			cart = saved
		}
	}

	return s.normaliseCart(cart, id), nil
}

// AddItem resolves the catalog entity and merges it into the cart. Lines are
// unique per (kind, reference id); an existing line gains the added quantity.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil || s.catalog == nil {
		return Cart{}, ErrCartUnavailable
	}

	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	referenceID := strings.TrimSpace(cmd.ReferenceID)
	if referenceID == "" {
		return Cart{}, fmt.Errorf("%w: reference id is required", ErrCartInvalidInput)
	}

	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be greater than zero", ErrCartInvalidInput)
	}

	name, price, imageURL, err := s.resolveCatalogEntity(ctx, cmd.Kind, referenceID)
	if err != nil {
		return Cart{}, err
	}

	cart, err := s.GetOrCreateCart(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}

	now := s.now()
	items := cloneCartItems(cart.Items)

	matchIdx := indexOfCartLine(items, cmd.Kind, referenceID)
	if matchIdx >= 0 {
		items[matchIdx].Quantity += quantity
		if items[matchIdx].Quantity > maxCartItemQuantity {
			items[matchIdx].Quantity = maxCartItemQuantity
		}
	} else {
		items = append(items, domain.CartItem{
			ID:          s.newID(referenceID),
			Kind:        cmd.Kind,
			ReferenceID: referenceID,
			Name:        name,
			UnitPrice:   price,
			Quantity:    quantity,
			ImageURL:    imageURL,
			AddedAt:     now,
		})
	}

	saved, err := s.repo.ReplaceItems(ctx, cartID, items, now)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.normaliseCart(saved, cartID), nil
}

// SetItemQuantity pins a line to an absolute quantity. Zero or negative
// removes the line; an unknown line id leaves the cart untouched.
func (s *cartService) SetItemQuantity(ctx context.Context, cmd SetCartItemQuantityCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, cartID)

	items := cloneCartItems(cart.Items)
	idx := indexOfCartItem(items, itemID)
	if idx < 0 {
		return cart, nil
	}

	if cmd.Quantity <= 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		quantity := cmd.Quantity
		if quantity > maxCartItemQuantity {
			quantity = maxCartItemQuantity
		}
		items[idx].Quantity = quantity
	}

	saved, err := s.repo.ReplaceItems(ctx, cartID, items, s.now())
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.normaliseCart(saved, cartID), nil
}

// RemoveItem drops a line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, cartID string, itemID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	id := strings.TrimSpace(cartID)
	if id == "" {
		return Cart{}, ErrCartInvalidInput
	}
	target := strings.TrimSpace(itemID)
	if target == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	cart = s.normaliseCart(cart, id)

	items := cloneCartItems(cart.Items)
	idx := indexOfCartItem(items, target)
	if idx < 0 {
		return Cart{}, ErrCartNotFound
	}
	items = append(items[:idx], items[idx+1:]...)

	saved, err := s.repo.ReplaceItems(ctx, id, items, s.now())
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.normaliseCart(saved, id), nil
}

// ClearCart removes every line. Clearing an absent cart is a no-op.
func (s *cartService) ClearCart(ctx context.Context, cartID string) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}
	id := strings.TrimSpace(cartID)
	if id == "" {
		return ErrCartInvalidInput
	}
	if _, err := s.repo.ReplaceItems(ctx, id, []domain.CartItem{}, s.now()); err != nil {
		if isRepoNotFound(err) {
			return nil
		}
		return s.translateRepoError(err)
	}
	return nil
}

func (s *cartService) resolveCatalogEntity(ctx context.Context, kind domain.CartItemKind, referenceID string) (string, float64, string, error) {
	switch kind {
	case domain.CartItemKindProduct:
		product, err := s.catalog.GetProduct(ctx, referenceID)
		if err != nil {
			if isRepoNotFound(err) {
				return "", 0, "", fmt.Errorf("%w: product not found", ErrCartInvalidInput)
			}
			return "", 0, "", ErrCartUnavailable
		}
		if !product.Published {
			return "", 0, "", fmt.Errorf("%w: product is not available", ErrCartInvalidInput)
		}
		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		return product.Name, product.PriceUSD.Float64(), image, nil
	case domain.CartItemKindServicePackage:
		pkg, err := s.catalog.GetServicePackage(ctx, referenceID)
		if err != nil {
			if isRepoNotFound(err) {
				return "", 0, "", fmt.Errorf("%w: service package not found", ErrCartInvalidInput)
			}
			return "", 0, "", ErrCartUnavailable
		}
		if !pkg.Published {
			return "", 0, "", fmt.Errorf("%w: service package is not available", ErrCartInvalidInput)
		}
		return pkg.Name, pkg.PriceUSD.Float64(), "", nil
	default:
		return "", 0, "", fmt.Errorf("%w: unsupported item kind %q", ErrCartInvalidInput, kind)
	}
}

func (s *cartService) newCart(cartID string) domain.Cart {
	now := s.now()
	return domain.Cart{
		ID:        cartID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) normaliseCart(cart domain.Cart, cartID string) domain.Cart {
	if cart.ID = strings.TrimSpace(cart.ID); cart.ID == "" {
		cart.ID = cartID
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.now()
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = s.now()
	}
	return cart
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
	}
	return ErrCartUnavailable
}

func isRepoBackendError(err error) bool {
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) {
		return false
	}
	return repoErr.IsConflict() || repoErr.IsUnavailable()
}

func indexOfCartLine(items []domain.CartItem, kind domain.CartItemKind, referenceID string) int {
	for i, item := range items {
		if item.Kind != kind {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(item.ReferenceID), referenceID) {
			return i
		}
	}
	return -1
}

func indexOfCartItem(items []domain.CartItem, itemID string) int {
	target := strings.TrimSpace(itemID)
	if target == "" {
		return -1
	}
	for i, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.ID), target) {
			return i
		}
	}
	return -1
}

func cloneCartItems(items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return []domain.CartItem{}
	}
	dup := make([]domain.CartItem, len(items))
	copy(dup, items)
	return dup
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog operation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogNotFound indicates the requested catalog entity does not exist.
	ErrCatalogNotFound = errors.New("catalog service: not found")
	// ErrCatalogUnavailable indicates the backend rejected the request for transient reasons.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog     repositories.CatalogRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type catalogService struct {
	repo   repositories.CatalogRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
	newID  func() string
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog service: catalog repository is required")
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
	return &catalogService{
		repo:   deps.Catalog,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
		newID:  idGen,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Product]{}, ErrCatalogUnavailable
	}
	filter := repositories.ProductFilter{
		CategoryID:    normalizeFilterPointer(query.CategoryID),
		Brand:         normalizeFilterPointer(query.Brand),
		Search:        normalizeFilterPointer(query.Search),
		OnlyPublished: !query.IncludeDrafts,
		Pagination:    query.Pagination,
	}
	page, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateError(err)
	}
	return page, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.GetProductBySlug(ctx, trimmed)
	if err != nil {
		return Product{}, s.translateError(err)
	}
	if !product.Published {
		return Product{}, ErrCatalogNotFound
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, s.translateError(err)
	}
	return product, nil
}

func (s *catalogService) SaveProduct(ctx context.Context, cmd SaveProductCommand) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.PriceUSD < 0 {
		return Product{}, fmt.Errorf("%w: price must be non-negative", ErrCatalogInvalidInput)
	}
	if cmd.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock must be non-negative", ErrCatalogInvalidInput)
	}

	id := strings.TrimSpace(cmd.ID)
	var existing Product
	if id == "" {
		id = s.newID()
	} else {
		loaded, err := s.repo.GetProduct(ctx, id)
		if err != nil && !isRepoNotFound(err) {
			return Product{}, s.translateError(err)
		}
		existing = loaded
	}

	slug := normalizeSlug(firstNonEmpty(cmd.Slug, name))
	if slug == "" {
		return Product{}, fmt.Errorf("%w: slug could not be derived", ErrCatalogInvalidInput)
	}

	product := domain.Product{
		ID:          id,
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(cmd.Description),
		PriceUSD:    cmd.PriceUSD,
		Currency:    "USD",
		Images:      normalizeStringSlice(cmd.Images),
		CategoryID:  strings.TrimSpace(cmd.CategoryID),
		Brand:       strings.TrimSpace(cmd.Brand),
		Stock:       cmd.Stock,
		Published:   cmd.Published,
		CreatedAt:   existing.CreatedAt,
	}

	saved, err := s.repo.UpsertProduct(ctx, product)
	if err != nil {
		return Product{}, s.translateError(err)
	}
	s.logger(ctx, "catalog.product_saved", map[string]any{"productID": saved.ID, "published": saved.Published})
	return saved, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s == nil || s.repo == nil {
		return ErrCatalogUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return s.translateError(err)
	}
	s.logger(ctx, "catalog.product_deleted", map[string]any{"productID": id})
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, s.translateError(err)
	}
	return categories, nil
}

func (s *catalogService) SaveCategory(ctx context.Context, category Category) (Category, error) {
	if s == nil || s.repo == nil {
		return Category{}, ErrCatalogUnavailable
	}
	name := strings.TrimSpace(category.Name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if strings.TrimSpace(category.ID) == "" {
		category.ID = s.newID()
	}
	category.Name = name
	category.Slug = normalizeSlug(firstNonEmpty(category.Slug, name))
	saved, err := s.repo.UpsertCategory(ctx, category)
	if err != nil {
		return Category{}, s.translateError(err)
	}
	return saved, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	if s == nil || s.repo == nil {
		return ErrCatalogUnavailable
	}
	id := strings.TrimSpace(categoryID)
	if id == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return s.translateError(err)
	}
	return nil
}

func (s *catalogService) ListServicePackages(ctx context.Context, includeUnpublished bool) ([]ServicePackage, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	packages, err := s.repo.ListServicePackages(ctx, !includeUnpublished)
	if err != nil {
		return nil, s.translateError(err)
	}
	return packages, nil
}

func (s *catalogService) SaveServicePackage(ctx context.Context, pkg ServicePackage) (ServicePackage, error) {
	if s == nil || s.repo == nil {
		return ServicePackage{}, ErrCatalogUnavailable
	}
	name := strings.TrimSpace(pkg.Name)
	if name == "" {
		return ServicePackage{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if pkg.PriceUSD < 0 {
		return ServicePackage{}, fmt.Errorf("%w: price must be non-negative", ErrCatalogInvalidInput)
	}
	if strings.TrimSpace(pkg.ID) == "" {
		pkg.ID = s.newID()
	}
	pkg.Name = name
	pkg.Slug = normalizeSlug(firstNonEmpty(pkg.Slug, name))
	pkg.Features = normalizeStringSlice(pkg.Features)
	saved, err := s.repo.UpsertServicePackage(ctx, pkg)
	if err != nil {
		return ServicePackage{}, s.translateError(err)
	}
	return saved, nil
}

func (s *catalogService) DeleteServicePackage(ctx context.Context, packageID string) error {
	if s == nil || s.repo == nil {
		return ErrCatalogUnavailable
	}
	id := strings.TrimSpace(packageID)
	if id == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.repo.DeleteServicePackage(ctx, id); err != nil {
		return s.translateError(err)
	}
	return nil
}

func (s *catalogService) translateError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
	}
	return ErrCatalogUnavailable
}

func normalizeSlug(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = slugSanitizer.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func normalizeFilterPointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	pfirestore "github.com/webmuhendisi/velopix/internal/platform/firestore"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

const (
	productsCollection        = "products"
	categoriesCollection      = "categories"
	servicePackagesCollection = "servicePackages"
)

// CatalogRepository bundles product, category and service-package storage.
type CatalogRepository struct {
	products   *pfirestore.BaseRepository[productDocument]
	categories *pfirestore.BaseRepository[categoryDocument]
	packages   *pfirestore.BaseRepository[servicePackageDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository: firestore provider is required")
	}
	return &CatalogRepository{
		products:   pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
		categories: pfirestore.NewBaseRepository[categoryDocument](provider, categoriesCollection, nil, nil),
		packages:   pfirestore.NewBaseRepository[servicePackageDocument](provider, servicePackagesCollection, nil, nil),
	}, nil
}

// ListProducts returns products ordered by most recent creation.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.products == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("catalog repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("catalog repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.OnlyPublished {
			q = q.Where("published", "==", true)
		}
		if filter.CategoryID != nil && strings.TrimSpace(*filter.CategoryID) != "" {
			q = q.Where("categoryId", "==", strings.TrimSpace(*filter.CategoryID))
		}
		if filter.Brand != nil && strings.TrimSpace(*filter.Brand) != "" {
			q = q.Where("brand", "==", strings.TrimSpace(*filter.Brand))
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	search := ""
	if filter.Search != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.Search))
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := productFromDocument(doc.ID, doc.Data)
		if search != "" && !productMatchesSearch(product, search) {
			continue
		}
		items = append(items, product)
	}

	return domain.CursorPage[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

// GetProduct fetches a product regardless of publication state.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}
	doc, err := r.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc.ID, doc.Data), nil
}

// GetProductBySlug resolves a product through its storefront slug.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return domain.Product{}, errors.New("catalog repository: slug is required")
	}
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", trimmed).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.NewNotFound("products.get_by_slug", "product "+trimmed)
	}
	return productFromDocument(docs[0].ID, docs[0].Data), nil
}

// UpsertProduct writes the whole product document.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}
	doc := productToDocument(product)
	result, err := r.products.Set(ctx, id, doc)
	if err != nil {
		return domain.Product{}, err
	}
	saved := productFromDocument(id, doc)
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// DeleteProduct removes the product document.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID string) error {
	if r == nil || r.products == nil {
		return errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return errors.New("catalog repository: product id is required")
	}
	_, err := r.products.Delete(ctx, id)
	return err
}

// ListCategories returns all categories ordered by position.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if r == nil || r.categories == nil {
		return nil, errors.New("catalog repository not initialised")
	}
	docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("position", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.Category{
			ID:       doc.ID,
			Slug:     doc.Data.Slug,
			Name:     doc.Data.Name,
			Position: doc.Data.Position,
			ParentID: doc.Data.ParentID,
		})
	}
	return items, nil
}

// UpsertCategory writes the whole category document.
func (r *CatalogRepository) UpsertCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(category.ID)
	if id == "" {
		return domain.Category{}, errors.New("catalog repository: category id is required")
	}
	doc := categoryDocument{
		Slug:     strings.TrimSpace(category.Slug),
		Name:     strings.TrimSpace(category.Name),
		Position: category.Position,
		ParentID: strings.TrimSpace(category.ParentID),
	}
	if _, err := r.categories.Set(ctx, id, doc); err != nil {
		return domain.Category{}, err
	}
	category.ID = id
	return category, nil
}

// DeleteCategory removes the category document.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	if r == nil || r.categories == nil {
		return errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(categoryID)
	if id == "" {
		return errors.New("catalog repository: category id is required")
	}
	_, err := r.categories.Delete(ctx, id)
	return err
}

// ListServicePackages returns installation/warranty packages.
func (r *CatalogRepository) ListServicePackages(ctx context.Context, onlyPublished bool) ([]domain.ServicePackage, error) {
	if r == nil || r.packages == nil {
		return nil, errors.New("catalog repository not initialised")
	}
	docs, err := r.packages.Query(ctx, func(q firestore.Query) firestore.Query {
		if onlyPublished {
			q = q.Where("published", "==", true)
		}
		return q.OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.ServicePackage, 0, len(docs))
	for _, doc := range docs {
		items = append(items, servicePackageFromDocument(doc.ID, doc.Data))
	}
	return items, nil
}

// GetServicePackage fetches a single package.
func (r *CatalogRepository) GetServicePackage(ctx context.Context, packageID string) (domain.ServicePackage, error) {
	if r == nil || r.packages == nil {
		return domain.ServicePackage{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(packageID)
	if id == "" {
		return domain.ServicePackage{}, errors.New("catalog repository: package id is required")
	}
	doc, err := r.packages.Get(ctx, id)
	if err != nil {
		return domain.ServicePackage{}, err
	}
	return servicePackageFromDocument(doc.ID, doc.Data), nil
}

// UpsertServicePackage writes the whole package document.
func (r *CatalogRepository) UpsertServicePackage(ctx context.Context, pkg domain.ServicePackage) (domain.ServicePackage, error) {
	if r == nil || r.packages == nil {
		return domain.ServicePackage{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(pkg.ID)
	if id == "" {
		return domain.ServicePackage{}, errors.New("catalog repository: package id is required")
	}
	doc := servicePackageToDocument(pkg)
	if _, err := r.packages.Set(ctx, id, doc); err != nil {
		return domain.ServicePackage{}, err
	}
	return servicePackageFromDocument(id, doc), nil
}

// DeleteServicePackage removes the package document.
func (r *CatalogRepository) DeleteServicePackage(ctx context.Context, packageID string) error {
	if r == nil || r.packages == nil {
		return errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(packageID)
	if id == "" {
		return errors.New("catalog repository: package id is required")
	}
	_, err := r.packages.Delete(ctx, id)
	return err
}

func productMatchesSearch(product domain.Product, needle string) bool {
	return strings.Contains(strings.ToLower(product.Name), needle) ||
		strings.Contains(strings.ToLower(product.Brand), needle) ||
		strings.Contains(strings.ToLower(product.Description), needle)
}

func productFromDocument(id string, doc productDocument) domain.Product {
	price, err := domain.ParsePrice(doc.PriceUSD)
	if err != nil {
		price = 0
	}
	return domain.Product{
		ID:          id,
		Slug:        doc.Slug,
		Name:        doc.Name,
		Description: doc.Description,
		PriceUSD:    domain.PriceValue(price),
		Currency:    doc.Currency,
		Images:      append([]string(nil), doc.Images...),
		CategoryID:  doc.CategoryID,
		Brand:       doc.Brand,
		Stock:       doc.Stock,
		Published:   doc.Published,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func productToDocument(product domain.Product) productDocument {
	now := time.Now().UTC()
	createdAt := product.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	return productDocument{
		Slug:        strings.TrimSpace(product.Slug),
		Name:        strings.TrimSpace(product.Name),
		Description: product.Description,
		PriceUSD:    product.PriceUSD.Float64(),
		Currency:    strings.ToUpper(strings.TrimSpace(product.Currency)),
		Images:      append([]string(nil), product.Images...),
		CategoryID:  strings.TrimSpace(product.CategoryID),
		Brand:       strings.TrimSpace(product.Brand),
		Stock:       product.Stock,
		Published:   product.Published,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

func servicePackageFromDocument(id string, doc servicePackageDocument) domain.ServicePackage {
	price, err := domain.ParsePrice(doc.PriceUSD)
	if err != nil {
		price = 0
	}
	return domain.ServicePackage{
		ID:           id,
		Slug:         doc.Slug,
		Name:         doc.Name,
		Description:  doc.Description,
		PriceUSD:     domain.PriceValue(price),
		DurationDays: doc.DurationDays,
		Features:     append([]string(nil), doc.Features...),
		Published:    doc.Published,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func servicePackageToDocument(pkg domain.ServicePackage) servicePackageDocument {
	now := time.Now().UTC()
	createdAt := pkg.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	return servicePackageDocument{
		Slug:         strings.TrimSpace(pkg.Slug),
		Name:         strings.TrimSpace(pkg.Name),
		Description:  pkg.Description,
		PriceUSD:     pkg.PriceUSD.Float64(),
		DurationDays: pkg.DurationDays,
		Features:     append([]string(nil), pkg.Features...),
		Published:    pkg.Published,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

func encodeListToken(at time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", at.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

// productDocument keeps priceUsd as an untyped value because legacy imports
// wrote it as a string.
type productDocument struct {
	Slug        string    `firestore:"slug"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description,omitempty"`
	PriceUSD    any       `firestore:"priceUsd"`
	Currency    string    `firestore:"currency"`
	Images      []string  `firestore:"images,omitempty"`
	CategoryID  string    `firestore:"categoryId,omitempty"`
	Brand       string    `firestore:"brand,omitempty"`
	Stock       int       `firestore:"stock"`
	Published   bool      `firestore:"published"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type categoryDocument struct {
	Slug     string `firestore:"slug"`
	Name     string `firestore:"name"`
	Position int    `firestore:"position"`
	ParentID string `firestore:"parentId,omitempty"`
}

type servicePackageDocument struct {
	Slug         string    `firestore:"slug"`
	Name         string    `firestore:"name"`
	Description  string    `firestore:"description,omitempty"`
	PriceUSD     any       `firestore:"priceUsd"`
	DurationDays int       `firestore:"durationDays"`
	Features     []string  `firestore:"features,omitempty"`
	Published    bool      `firestore:"published"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

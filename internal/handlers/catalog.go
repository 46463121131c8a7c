package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/rates"
	"github.com/webmuhendisi/velopix/internal/services"
)

const maxCatalogBodySize = 64 * 1024

// rateConverter is the slice of the exchange-rate cache handlers need to
// decorate USD catalog prices with local amounts.
type rateConverter interface {
	Convert(usd float64) (float64, domain.ExchangeRate)
}

// CatalogHandlers exposes the storefront catalog surface and its back-office CRUD.
type CatalogHandlers struct {
	catalog services.CatalogService
	rates   rateConverter
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService, converter rateConverter) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, rates: converter}
}

// Routes wires the public catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{slug}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/service-packages", h.listServicePackages)
}

// AdminRoutes wires the back-office catalog endpoints. Callers apply auth middleware.
func (h *CatalogHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.adminListProducts)
	r.Post("/products", h.saveProduct)
	r.Put("/products/{productID}", h.saveProduct)
	r.Delete("/products/{productID}", h.deleteProduct)

	r.Post("/categories", h.saveCategory)
	r.Put("/categories/{categoryID}", h.saveCategory)
	r.Delete("/categories/{categoryID}", h.deleteCategory)

	r.Get("/service-packages", h.adminListServicePackages)
	r.Post("/service-packages", h.saveServicePackage)
	r.Put("/service-packages/{packageID}", h.saveServicePackage)
	r.Delete("/service-packages/{packageID}", h.deleteServicePackage)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	h.serveProductList(w, r, false)
}

func (h *CatalogHandlers) adminListProducts(w http.ResponseWriter, r *http.Request) {
	h.serveProductList(w, r, true)
}

func (h *CatalogHandlers) serveProductList(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	ctx := r.Context()
	pager, err := listPagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListProducts(ctx, services.ProductListQuery{
		CategoryID:    optionalQueryParam(r, "category"),
		Brand:         optionalQueryParam(r, "brand"),
		Search:        optionalQueryParam(r, "q"),
		IncludeDrafts: includeDrafts,
		Pagination:    pager,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, h.buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[productPayload]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.catalog.GetProductBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": h.buildProductPayload(product)})
}

func (h *CatalogHandlers) saveProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveProductRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	product, err := h.catalog.SaveProduct(ctx, services.SaveProductCommand{
		ID:          chi.URLParam(r, "productID"),
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		PriceUSD:    req.PriceUSD,
		Images:      req.Images,
		CategoryID:  req.CategoryID,
		Brand:       req.Brand,
		Stock:       req.Stock,
		Published:   req.Published,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"product": h.buildProductPayload(product)})
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	items := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		items = append(items, buildCategoryPayload(category))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *CatalogHandlers) saveCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req categoryPayload
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	category, err := h.catalog.SaveCategory(ctx, domain.Category{
		ID:       chi.URLParam(r, "categoryID"),
		Slug:     req.Slug,
		Name:     req.Name,
		Position: req.Position,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"category": buildCategoryPayload(category)})
}

func (h *CatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "categoryID")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listServicePackages(w http.ResponseWriter, r *http.Request) {
	h.serveServicePackages(w, r, false)
}

func (h *CatalogHandlers) adminListServicePackages(w http.ResponseWriter, r *http.Request) {
	h.serveServicePackages(w, r, true)
}

func (h *CatalogHandlers) serveServicePackages(w http.ResponseWriter, r *http.Request, includeUnpublished bool) {
	ctx := r.Context()
	packages, err := h.catalog.ListServicePackages(ctx, includeUnpublished)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	items := make([]servicePackagePayload, 0, len(packages))
	for _, pkg := range packages {
		items = append(items, h.buildServicePackagePayload(pkg))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"service_packages": items})
}

func (h *CatalogHandlers) saveServicePackage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveServicePackageRequest
	if err := decodeJSONBody(r, maxCatalogBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	pkg, err := h.catalog.SaveServicePackage(ctx, domain.ServicePackage{
		ID:           chi.URLParam(r, "packageID"),
		Slug:         req.Slug,
		Name:         req.Name,
		Description:  req.Description,
		PriceUSD:     req.PriceUSD,
		DurationDays: req.DurationDays,
		Features:     req.Features,
		Published:    req.Published,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"service_package": h.buildServicePackagePayload(pkg)})
}

func (h *CatalogHandlers) deleteServicePackage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteServicePackage(ctx, chi.URLParam(r, "packageID")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalog request failed", http.StatusInternalServerError))
	}
}

// localPrice converts a USD amount when a converter is configured. The
// formatted string uses Turkish digit grouping.
func (h *CatalogHandlers) localPrice(usd float64) (float64, string) {
	if h.rates == nil {
		return 0, ""
	}
	local, _ := h.rates.Convert(usd)
	local = math.Round(local*100) / 100
	return local, rates.FormatLocal(local)
}

func (h *CatalogHandlers) buildProductPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		PriceUSD:    product.PriceUSD,
		Currency:    product.Currency,
		Images:      product.Images,
		CategoryID:  product.CategoryID,
		Brand:       product.Brand,
		Stock:       product.Stock,
		Published:   product.Published,
	}
	payload.PriceLocal, payload.PriceDisplay = h.localPrice(product.PriceUSD.Float64())
	if !product.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(product.CreatedAt)
	}
	if !product.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(product.UpdatedAt)
	}
	return payload
}

func (h *CatalogHandlers) buildServicePackagePayload(pkg domain.ServicePackage) servicePackagePayload {
	payload := servicePackagePayload{
		ID:           pkg.ID,
		Slug:         pkg.Slug,
		Name:         pkg.Name,
		Description:  pkg.Description,
		PriceUSD:     pkg.PriceUSD,
		DurationDays: pkg.DurationDays,
		Features:     pkg.Features,
		Published:    pkg.Published,
	}
	payload.PriceLocal, payload.PriceDisplay = h.localPrice(pkg.PriceUSD.Float64())
	return payload
}

func buildCategoryPayload(category domain.Category) categoryPayload {
	return categoryPayload{
		ID:       category.ID,
		Slug:     category.Slug,
		Name:     category.Name,
		Position: category.Position,
		ParentID: category.ParentID,
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

type productPayload struct {
	ID           string            `json:"id"`
	Slug         string            `json:"slug"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	PriceUSD     domain.PriceValue `json:"price_usd"`
	PriceLocal   float64           `json:"price_local,omitempty"`
	PriceDisplay string            `json:"price_display,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Images       []string          `json:"images,omitempty"`
	CategoryID   string            `json:"category_id,omitempty"`
	Brand        string            `json:"brand,omitempty"`
	Stock        int               `json:"stock"`
	Published    bool              `json:"published"`
	CreatedAt    string            `json:"created_at,omitempty"`
	UpdatedAt    string            `json:"updated_at,omitempty"`
}

type saveProductRequest struct {
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PriceUSD    domain.PriceValue `json:"price_usd"`
	Images      []string          `json:"images"`
	CategoryID  string            `json:"category_id"`
	Brand       string            `json:"brand"`
	Stock       int               `json:"stock"`
	Published   bool              `json:"published"`
}

type categoryPayload struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	ParentID string `json:"parent_id,omitempty"`
}

type servicePackagePayload struct {
	ID           string            `json:"id"`
	Slug         string            `json:"slug"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	PriceUSD     domain.PriceValue `json:"price_usd"`
	PriceLocal   float64           `json:"price_local,omitempty"`
	PriceDisplay string            `json:"price_display,omitempty"`
	DurationDays int               `json:"duration_days,omitempty"`
	Features     []string          `json:"features,omitempty"`
	Published    bool              `json:"published"`
}

type saveServicePackageRequest struct {
	Slug         string            `json:"slug"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	PriceUSD     domain.PriceValue `json:"price_usd"`
	DurationDays int               `json:"duration_days"`
	Features     []string          `json:"features"`
	Published    bool              `json:"published"`
}

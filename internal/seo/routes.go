package seo

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

//go:embed routes.yaml
var routesFS embed.FS

type routeRule struct {
	Pattern   string `yaml:"pattern"`
	Directive `yaml:",inline"`
}

type routesFile struct {
	Default Directive   `yaml:"default"`
	Routes  []routeRule `yaml:"routes"`
}

// ProductSource looks up catalog entries for product routes.
type ProductSource interface {
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
}

// ArticleSource looks up blog posts for article routes.
type ArticleSource interface {
	GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, error)
}

// SettingsSource reads the site settings singleton for organization data.
type SettingsSource interface {
	GetSettings(ctx context.Context) (domain.SiteSettings, error)
}

// PriceConverter localizes USD catalog prices.
type PriceConverter interface {
	Convert(usd float64) (float64, domain.ExchangeRate)
}

// ResolverDeps bundles constructor inputs for the route resolver. The entity
// sources are optional; without them routes fall back to the static table.
type ResolverDeps struct {
	SiteName string
	BaseURL  string
	Products ProductSource
	Posts    ArticleSource
	Settings SettingsSource
	Rates    PriceConverter
}

// Resolver maps storefront paths to head directives using the compiled-in
// route table, enriched with catalog and blog data where a route names an
// entity.
type Resolver struct {
	siteName string
	baseURL  string
	fallback Directive
	rules    []routeRule
	products ProductSource
	posts    ArticleSource
	settings SettingsSource
	rates    PriceConverter
}

// NewResolver loads the embedded route table.
func NewResolver(deps ResolverDeps) (*Resolver, error) {
	raw, err := routesFS.ReadFile("routes.yaml")
	if err != nil {
		return nil, fmt.Errorf("seo: read route table: %w", err)
	}
	var file routesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("seo: parse route table: %w", err)
	}
	return &Resolver{
		siteName: strings.TrimSpace(deps.SiteName),
		baseURL:  strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/"),
		fallback: file.Default,
		rules:    file.Routes,
		products: deps.Products,
		posts:    deps.Posts,
		settings: deps.Settings,
		rates:    deps.Rates,
	}, nil
}

// Resolve returns the head directive for a path. Unknown paths get the
// default directive, entity routes are filled from their catalog or blog
// record, the site name is appended to route titles and the canonical URL
// is derived from the configured base URL. Entity lookup failures degrade
// to the static directive.
func (r *Resolver) Resolve(ctx context.Context, path string) Directive {
	normalized := normalizePath(path)

	directive := r.fallback
	for _, rule := range r.rules {
		if matchPattern(rule.Pattern, normalized) {
			directive = mergeDirectives(r.fallback, rule.Directive)
			break
		}
	}

	r.enrich(ctx, normalized, &directive)

	if directive.Title == "" {
		directive.Title = r.siteName
	} else if r.siteName != "" && directive.Title != r.siteName {
		directive.Title = directive.Title + " | " + r.siteName
	}
	if directive.Canonical == "" && r.baseURL != "" {
		directive.Canonical = r.baseURL + normalized
	}
	return directive
}

func (r *Resolver) enrich(ctx context.Context, path string, directive *Directive) {
	switch {
	case path == "/":
		r.enrichHome(ctx, directive)
	case strings.HasPrefix(path, "/urunler/"):
		r.enrichProduct(ctx, strings.TrimPrefix(path, "/urunler/"), directive)
	case strings.HasPrefix(path, "/blog/"):
		r.enrichArticle(ctx, strings.TrimPrefix(path, "/blog/"), directive)
	}
}

func (r *Resolver) enrichHome(ctx context.Context, directive *Directive) {
	if website, err := WebSiteJSONLD(r.siteName, r.baseURL); err == nil {
		directive.StructuredData = append(directive.StructuredData, website)
	}
	if r.settings == nil {
		return
	}
	settings, err := r.settings.GetSettings(ctx)
	if err != nil {
		return
	}
	if org, err := OrganizationJSONLD(settings); err == nil {
		directive.StructuredData = append(directive.StructuredData, org)
	}
}

func (r *Resolver) enrichProduct(ctx context.Context, slug string, directive *Directive) {
	if r.products == nil || strings.Contains(slug, "/") {
		return
	}
	product, err := r.products.GetProductBySlug(ctx, slug)
	if err != nil {
		return
	}

	directive.Title = product.Name
	if product.Description != "" {
		directive.Description = product.Description
	}
	if len(product.Images) > 0 {
		directive.OGImage = product.Images[0]
	}

	availability := "instock"
	if product.Stock <= 0 {
		availability = "oos"
	}
	directive.Product = ProductMeta{
		Availability: availability,
		Condition:    "new",
	}

	priceLocal := product.PriceUSD.Float64()
	currency := strings.ToUpper(product.Currency)
	if r.rates != nil {
		converted, _ := r.rates.Convert(product.PriceUSD.Float64())
		priceLocal = converted
		currency = "TRY"
	}
	directive.Product.PriceAmount = fmt.Sprintf("%.2f", priceLocal)
	directive.Product.PriceCurrency = currency

	pageURL := ""
	if r.baseURL != "" {
		pageURL = r.baseURL + "/urunler/" + product.Slug
	}
	if jsonld, err := ProductJSONLD(product, priceLocal, currency, pageURL); err == nil {
		directive.StructuredData = append(directive.StructuredData, jsonld)
	}
	directive.StructuredData = r.appendBreadcrumbs(directive.StructuredData, []Breadcrumb{
		{Name: r.siteName, URL: r.baseURL},
		{Name: "Ürünler", URL: r.urlFor("/urunler")},
		{Name: product.Name, URL: pageURL},
	})
}

func (r *Resolver) enrichArticle(ctx context.Context, slug string, directive *Directive) {
	if r.posts == nil || strings.Contains(slug, "/") {
		return
	}
	post, err := r.posts.GetPostBySlug(ctx, slug)
	if err != nil {
		return
	}

	directive.Title = post.Title
	if post.Excerpt != "" {
		directive.Description = post.Excerpt
	}
	if post.CoverImage != "" {
		directive.OGImage = post.CoverImage
	}
	directive.Article = ArticleMeta{
		Author:  post.Author,
		Section: "Blog",
	}
	if post.PublishedAt != nil {
		directive.Article.PublishedTime = post.PublishedAt.Format(time.RFC3339)
	}
	if !post.UpdatedAt.IsZero() {
		directive.Article.ModifiedTime = post.UpdatedAt.Format(time.RFC3339)
	}
	if len(post.Tags) > 0 {
		directive.ArticleTags = post.Tags
	}

	pageURL := ""
	if r.baseURL != "" {
		pageURL = r.baseURL + "/blog/" + post.Slug
	}
	if jsonld, err := ArticleJSONLD(post, pageURL); err == nil {
		directive.StructuredData = append(directive.StructuredData, jsonld)
	}
	directive.StructuredData = r.appendBreadcrumbs(directive.StructuredData, []Breadcrumb{
		{Name: r.siteName, URL: r.baseURL},
		{Name: "Blog", URL: r.urlFor("/blog")},
		{Name: post.Title, URL: pageURL},
	})
}

func (r *Resolver) appendBreadcrumbs(structured []string, crumbs []Breadcrumb) []string {
	jsonld, err := BreadcrumbListJSONLD(crumbs)
	if err != nil {
		return structured
	}
	return append(structured, jsonld)
}

func (r *Resolver) urlFor(path string) string {
	if r.baseURL == "" {
		return ""
	}
	return r.baseURL + path
}

func normalizePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	if len(trimmed) > 1 {
		trimmed = strings.TrimRight(trimmed, "/")
		if trimmed == "" {
			trimmed = "/"
		}
	}
	return trimmed
}

// matchPattern compares a path against a route pattern segment by segment.
// Segments starting with ':' match any single segment.
func matchPattern(pattern string, path string) bool {
	if pattern == path {
		return true
	}
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return false
	}
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return true
}

// mergeDirectives overlays route-specific fields on the defaults.
func mergeDirectives(base Directive, override Directive) Directive {
	merged := base
	if override.Title != "" {
		merged.Title = override.Title
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Keywords != "" {
		merged.Keywords = override.Keywords
	}
	if override.Canonical != "" {
		merged.Canonical = override.Canonical
	}
	if override.Robots != "" {
		merged.Robots = override.Robots
	}
	if override.OGType != "" {
		merged.OGType = override.OGType
	}
	if override.OGImage != "" {
		merged.OGImage = override.OGImage
	}
	if override.Article != (ArticleMeta{}) {
		merged.Article = override.Article
	}
	if override.Product != (ProductMeta{}) {
		merged.Product = override.Product
	}
	if len(override.ArticleTags) > 0 {
		merged.ArticleTags = override.ArticleTags
	}
	if len(override.Hreflang) > 0 {
		merged.Hreflang = override.Hreflang
	}
	if len(override.StructuredData) > 0 {
		merged.StructuredData = override.StructuredData
	}
	return merged
}

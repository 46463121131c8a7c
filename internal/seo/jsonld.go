package seo

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

// ProductJSONLD renders schema.org Product structured data. The offer is
// priced in the local currency using the supplied converted amount.
func ProductJSONLD(product domain.Product, priceLocal float64, currency string, pageURL string) (string, error) {
	payload := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Product",
		"name":        product.Name,
		"description": product.Description,
	}
	if len(product.Images) > 0 {
		payload["image"] = product.Images
	}
	if product.Brand != "" {
		payload["brand"] = map[string]any{"@type": "Brand", "name": product.Brand}
	}
	availability := "https://schema.org/InStock"
	if product.Stock <= 0 {
		availability = "https://schema.org/OutOfStock"
	}
	offer := map[string]any{
		"@type":         "Offer",
		"price":         fmt.Sprintf("%.2f", priceLocal),
		"priceCurrency": strings.ToUpper(currency),
		"availability":  availability,
	}
	if pageURL != "" {
		offer["url"] = pageURL
	}
	payload["offers"] = offer
	return marshalJSONLD(payload)
}

// ArticleJSONLD renders schema.org Article structured data for a blog post.
func ArticleJSONLD(post domain.BlogPost, pageURL string) (string, error) {
	payload := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Article",
		"headline": post.Title,
	}
	if post.Excerpt != "" {
		payload["description"] = post.Excerpt
	}
	if post.Author != "" {
		payload["author"] = map[string]any{"@type": "Person", "name": post.Author}
	}
	if post.CoverImage != "" {
		payload["image"] = post.CoverImage
	}
	if post.PublishedAt != nil {
		payload["datePublished"] = post.PublishedAt.Format("2006-01-02")
	}
	if pageURL != "" {
		payload["mainEntityOfPage"] = pageURL
	}
	return marshalJSONLD(payload)
}

// OrganizationJSONLD renders schema.org Organization structured data from
// the site settings singleton.
func OrganizationJSONLD(settings domain.SiteSettings) (string, error) {
	payload := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     settings.SiteName,
	}
	if settings.BaseURL != "" {
		payload["url"] = settings.BaseURL
	}
	if settings.ContactEmail != "" {
		payload["email"] = settings.ContactEmail
	}
	if settings.ContactPhone != "" {
		payload["telephone"] = settings.ContactPhone
	}
	if len(settings.SocialLinks) > 0 {
		links := make([]string, 0, len(settings.SocialLinks))
		for _, lang := range sortedKeys(settings.SocialLinks) {
			links = append(links, settings.SocialLinks[lang])
		}
		payload["sameAs"] = links
	}
	return marshalJSONLD(payload)
}

// WebSiteJSONLD renders schema.org WebSite structured data. With a base URL
// present the payload also advertises the catalog search box as a
// SearchAction.
func WebSiteJSONLD(siteName string, baseURL string) (string, error) {
	payload := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     siteName,
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" {
		payload["url"] = base
		payload["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      base + "/urunler?q={search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return marshalJSONLD(payload)
}

// Breadcrumb is one entry of a breadcrumb trail, ordered root first.
type Breadcrumb struct {
	Name string
	URL  string
}

// BreadcrumbListJSONLD renders schema.org BreadcrumbList structured data.
func BreadcrumbListJSONLD(crumbs []Breadcrumb) (string, error) {
	items := make([]map[string]any, 0, len(crumbs))
	for i, crumb := range crumbs {
		item := map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     crumb.Name,
		}
		if crumb.URL != "" {
			item["item"] = crumb.URL
		}
		items = append(items, item)
	}
	payload := map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
	return marshalJSONLD(payload)
}

func marshalJSONLD(payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("seo: marshal structured data: %w", err)
	}
	return string(data), nil
}

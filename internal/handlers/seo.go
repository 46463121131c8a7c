package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/seo"
)

// SEOHandlers serves resolved head metadata for storefront routes. The client
// applies the returned patch operations against its current document head.
type SEOHandlers struct {
	resolver *seo.Resolver
}

// NewSEOHandlers constructs SEO handlers.
func NewSEOHandlers(resolver *seo.Resolver) *SEOHandlers {
	return &SEOHandlers{resolver: resolver}
}

// Routes wires the head-metadata endpoint onto the provided router.
func (h *SEOHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/seo/head", h.getHead)
}

func (h *SEOHandlers) getHead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "path query parameter is required", http.StatusBadRequest))
		return
	}

	directive := h.resolver.Resolve(ctx, path)

	// Without a from path the ops rebuild the head from a blank slate. With
	// one, the injector replays the previous route first so the client only
	// receives the navigation delta.
	injector := seo.NewInjector()
	if from := strings.TrimSpace(r.URL.Query().Get("from")); from != "" {
		injector.Sync(h.resolver.Resolve(ctx, from))
	}
	ops := injector.Sync(directive)

	w.Header().Set("Cache-Control", "public, max-age=600")
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"directive": directive,
		"ops":       ops,
	})
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/platform/httpx"
	"github.com/webmuhendisi/velopix/internal/services"
)

const maxContentBodySize = 256 * 1024

// ContentHandlers serves the blog, FAQ and site-settings surfaces.
type ContentHandlers struct {
	content services.ContentService
}

// NewContentHandlers constructs content handlers.
func NewContentHandlers(content services.ContentService) *ContentHandlers {
	return &ContentHandlers{content: content}
}

// Routes wires the public content endpoints onto the provided router.
func (h *ContentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/posts", h.listPosts)
	r.Get("/posts/{slug}", h.getPost)
	r.Get("/faq", h.listFAQ)
	r.Get("/settings", h.getPublicSettings)
}

// AdminRoutes wires the back-office content endpoints. Callers apply auth middleware.
func (h *ContentHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/posts", h.adminListPosts)
	r.Post("/posts", h.savePost)
	r.Put("/posts/{postID}", h.savePost)
	r.Delete("/posts/{postID}", h.deletePost)

	r.Get("/faq", h.adminListFAQ)
	r.Post("/faq", h.saveFAQ)
	r.Put("/faq/{entryID}", h.saveFAQ)
	r.Delete("/faq/{entryID}", h.deleteFAQ)

	r.Get("/settings", h.getSettings)
	r.Patch("/settings", h.updateSettings)
}

func (h *ContentHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	h.servePostList(w, r, false)
}

func (h *ContentHandlers) adminListPosts(w http.ResponseWriter, r *http.Request) {
	h.servePostList(w, r, true)
}

func (h *ContentHandlers) servePostList(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	ctx := r.Context()
	pager, err := listPagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.content.ListPosts(ctx, services.BlogListQuery{
		Tag:           optionalQueryParam(r, "tag"),
		IncludeDrafts: includeDrafts,
		Pagination:    pager,
	})
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}

	items := make([]blogPostPayload, 0, len(page.Items))
	for _, post := range page.Items {
		items = append(items, buildBlogPostPayload(post, false))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[blogPostPayload]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ContentHandlers) getPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, err := h.content.GetPostBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"post": buildBlogPostPayload(post, true)})
}

func (h *ContentHandlers) savePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveBlogPostRequest
	if err := decodeJSONBody(r, maxContentBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	post, err := h.content.SavePost(ctx, services.SaveBlogPostCommand{
		ID:           chi.URLParam(r, "postID"),
		Slug:         req.Slug,
		Title:        req.Title,
		Excerpt:      req.Excerpt,
		BodyMarkdown: req.BodyMarkdown,
		CoverImage:   req.CoverImage,
		Tags:         req.Tags,
		Author:       req.Author,
		Publish:      req.Publish,
	})
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"post": buildBlogPostPayload(post, true)})
}

func (h *ContentHandlers) deletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.content.DeletePost(ctx, chi.URLParam(r, "postID")); err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandlers) listFAQ(w http.ResponseWriter, r *http.Request) {
	h.serveFAQList(w, r, false)
}

func (h *ContentHandlers) adminListFAQ(w http.ResponseWriter, r *http.Request) {
	h.serveFAQList(w, r, true)
}

func (h *ContentHandlers) serveFAQList(w http.ResponseWriter, r *http.Request, includeUnpublished bool) {
	ctx := r.Context()
	entries, err := h.content.ListFAQ(ctx, includeUnpublished)
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	items := make([]faqPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, buildFAQPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"faq": items})
}

func (h *ContentHandlers) saveFAQ(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req faqPayload
	if err := decodeJSONBody(r, maxContentBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	entry, err := h.content.SaveFAQ(ctx, domain.FAQEntry{
		ID:        chi.URLParam(r, "entryID"),
		Question:  req.Question,
		Answer:    req.Answer,
		Position:  req.Position,
		Published: req.Published,
	})
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, map[string]any{"entry": buildFAQPayload(entry)})
}

func (h *ContentHandlers) deleteFAQ(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.content.DeleteFAQ(ctx, chi.URLParam(r, "entryID")); err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getPublicSettings exposes the contact block the storefront renders. The
// full settings document stays admin-only.
func (h *ContentHandlers) getPublicSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := h.content.GetSettings(ctx)
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"settings": settingsPayload{
		SiteName:        settings.SiteName,
		ContactEmail:    settings.ContactEmail,
		ContactPhone:    settings.ContactPhone,
		Address:         settings.Address,
		SocialLinks:     settings.SocialLinks,
		AnnouncementBar: settings.AnnouncementBar,
	}})
}

func (h *ContentHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := h.content.GetSettings(ctx)
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"settings": buildFullSettingsPayload(settings)})
}

func (h *ContentHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateSettingsRequest
	if err := decodeJSONBody(r, maxContentBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	settings, err := h.content.UpdateSettings(ctx, services.UpdateSettingsCommand{
		SiteName:        req.SiteName,
		BaseURL:         req.BaseURL,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		Address:         req.Address,
		SocialLinks:     req.SocialLinks,
		AnnouncementBar: req.AnnouncementBar,
	})
	if err != nil {
		h.writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"settings": buildFullSettingsPayload(settings)})
}

func (h *ContentHandlers) writeContentError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "content entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrContentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("content_error", "content request failed", http.StatusInternalServerError))
	}
}

func buildBlogPostPayload(post domain.BlogPost, includeBody bool) blogPostPayload {
	payload := blogPostPayload{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		CoverImage:  post.CoverImage,
		Tags:        post.Tags,
		Author:      post.Author,
		Status:      string(post.Status),
		PublishedAt: formatTimePointer(post.PublishedAt),
	}
	if includeBody {
		payload.BodyHTML = post.BodyHTML
		payload.BodyMarkdown = post.BodyMarkdown
	}
	if !post.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(post.CreatedAt)
	}
	if !post.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(post.UpdatedAt)
	}
	return payload
}

func buildFAQPayload(entry domain.FAQEntry) faqPayload {
	return faqPayload{
		ID:        entry.ID,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Position:  entry.Position,
		Published: entry.Published,
	}
}

func buildFullSettingsPayload(settings domain.SiteSettings) fullSettingsPayload {
	payload := fullSettingsPayload{
		settingsPayload: settingsPayload{
			SiteName:        settings.SiteName,
			ContactEmail:    settings.ContactEmail,
			ContactPhone:    settings.ContactPhone,
			Address:         settings.Address,
			SocialLinks:     settings.SocialLinks,
			AnnouncementBar: settings.AnnouncementBar,
		},
		BaseURL: settings.BaseURL,
	}
	if !settings.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(settings.UpdatedAt)
	}
	return payload
}

type blogPostPayload struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Excerpt      string   `json:"excerpt,omitempty"`
	BodyMarkdown string   `json:"body_markdown,omitempty"`
	BodyHTML     string   `json:"body_html,omitempty"`
	CoverImage   string   `json:"cover_image,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Author       string   `json:"author,omitempty"`
	Status       string   `json:"status"`
	PublishedAt  string   `json:"published_at,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

type saveBlogPostRequest struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Excerpt      string   `json:"excerpt"`
	BodyMarkdown string   `json:"body_markdown"`
	CoverImage   string   `json:"cover_image"`
	Tags         []string `json:"tags"`
	Author       string   `json:"author"`
	Publish      bool     `json:"publish"`
}

type faqPayload struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}

type updateSettingsRequest struct {
	SiteName        *string           `json:"site_name"`
	BaseURL         *string           `json:"base_url"`
	ContactEmail    *string           `json:"contact_email"`
	ContactPhone    *string           `json:"contact_phone"`
	Address         *string           `json:"address"`
	SocialLinks     map[string]string `json:"social_links"`
	AnnouncementBar *string           `json:"announcement_bar"`
}

type settingsPayload struct {
	SiteName        string            `json:"site_name"`
	ContactEmail    string            `json:"contact_email,omitempty"`
	ContactPhone    string            `json:"contact_phone,omitempty"`
	Address         string            `json:"address,omitempty"`
	SocialLinks     map[string]string `json:"social_links,omitempty"`
	AnnouncementBar string            `json:"announcement_bar,omitempty"`
}

type fullSettingsPayload struct {
	settingsPayload
	BaseURL   string `json:"base_url,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

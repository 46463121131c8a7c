package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/services"
)

type stubContentService struct {
	listPostsFn      func(context.Context, services.BlogListQuery) (domain.CursorPage[services.BlogPost], error)
	getBySlugFn      func(context.Context, string) (services.BlogPost, error)
	getPostFn        func(context.Context, string) (services.BlogPost, error)
	savePostFn       func(context.Context, services.SaveBlogPostCommand) (services.BlogPost, error)
	deletePostFn     func(context.Context, string) error
	listFAQFn        func(context.Context, bool) ([]services.FAQEntry, error)
	saveFAQFn        func(context.Context, services.FAQEntry) (services.FAQEntry, error)
	deleteFAQFn      func(context.Context, string) error
	getSettingsFn    func(context.Context) (services.SiteSettings, error)
	updateSettingsFn func(context.Context, services.UpdateSettingsCommand) (services.SiteSettings, error)
}

func (s *stubContentService) ListPosts(ctx context.Context, query services.BlogListQuery) (domain.CursorPage[services.BlogPost], error) {
	if s.listPostsFn != nil {
		return s.listPostsFn(ctx, query)
	}
	return domain.CursorPage[services.BlogPost]{}, nil
}

func (s *stubContentService) GetPostBySlug(ctx context.Context, slug string) (services.BlogPost, error) {
	if s.getBySlugFn != nil {
		return s.getBySlugFn(ctx, slug)
	}
	return services.BlogPost{}, errors.New("not implemented")
}

func (s *stubContentService) GetPost(ctx context.Context, postID string) (services.BlogPost, error) {
	if s.getPostFn != nil {
		return s.getPostFn(ctx, postID)
	}
	return services.BlogPost{}, errors.New("not implemented")
}

func (s *stubContentService) SavePost(ctx context.Context, cmd services.SaveBlogPostCommand) (services.BlogPost, error) {
	if s.savePostFn != nil {
		return s.savePostFn(ctx, cmd)
	}
	return services.BlogPost{}, errors.New("not implemented")
}

func (s *stubContentService) DeletePost(ctx context.Context, postID string) error {
	if s.deletePostFn != nil {
		return s.deletePostFn(ctx, postID)
	}
	return errors.New("not implemented")
}

func (s *stubContentService) ListFAQ(ctx context.Context, includeUnpublished bool) ([]services.FAQEntry, error) {
	if s.listFAQFn != nil {
		return s.listFAQFn(ctx, includeUnpublished)
	}
	return nil, errors.New("not implemented")
}

func (s *stubContentService) SaveFAQ(ctx context.Context, entry services.FAQEntry) (services.FAQEntry, error) {
	if s.saveFAQFn != nil {
		return s.saveFAQFn(ctx, entry)
	}
	return services.FAQEntry{}, errors.New("not implemented")
}

func (s *stubContentService) DeleteFAQ(ctx context.Context, entryID string) error {
	if s.deleteFAQFn != nil {
		return s.deleteFAQFn(ctx, entryID)
	}
	return errors.New("not implemented")
}

func (s *stubContentService) GetSettings(ctx context.Context) (services.SiteSettings, error) {
	if s.getSettingsFn != nil {
		return s.getSettingsFn(ctx)
	}
	return services.SiteSettings{}, errors.New("not implemented")
}

func (s *stubContentService) UpdateSettings(ctx context.Context, cmd services.UpdateSettingsCommand) (services.SiteSettings, error) {
	if s.updateSettingsFn != nil {
		return s.updateSettingsFn(ctx, cmd)
	}
	return services.SiteSettings{}, errors.New("not implemented")
}

func newContentTestRouter(service services.ContentService) chi.Router {
	handler := NewContentHandlers(service)
	router := chi.NewRouter()
	handler.Routes(router)
	router.Route("/admin", handler.AdminRoutes)
	return router
}

func TestListPostsOmitsBody(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	published := now.Add(-24 * time.Hour)
	service := &stubContentService{
		listPostsFn: func(_ context.Context, query services.BlogListQuery) (domain.CursorPage[services.BlogPost], error) {
			if query.IncludeDrafts {
				t.Fatal("storefront listing must not include drafts")
			}
			return domain.CursorPage[services.BlogPost]{
				Items: []services.BlogPost{{
					ID:           "post-1",
					Slug:         "soundbar-kurulum-rehberi",
					Title:        "Soundbar Kurulum Rehberi",
					Excerpt:      "Beş adımda kurulum.",
					BodyMarkdown: "# Kurulum",
					BodyHTML:     "<h1>Kurulum</h1>",
					Status:       domain.ContentStatusPublished,
					PublishedAt:  &published,
					CreatedAt:    now,
				}},
			}, nil
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp listResponse[blogPostPayload]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 post, got %d", len(resp.Items))
	}
	post := resp.Items[0]
	if post.BodyMarkdown != "" || post.BodyHTML != "" {
		t.Fatalf("list payloads must omit the body: %#v", post)
	}
	if post.PublishedAt == "" {
		t.Fatalf("expected published_at in listing")
	}
}

func TestGetPostIncludesRenderedBody(t *testing.T) {
	service := &stubContentService{
		getBySlugFn: func(_ context.Context, slug string) (services.BlogPost, error) {
			return services.BlogPost{
				ID:           "post-1",
				Slug:         slug,
				Title:        "Soundbar Kurulum Rehberi",
				BodyMarkdown: "# Kurulum",
				BodyHTML:     "<h1>Kurulum</h1>",
				Status:       domain.ContentStatusPublished,
			}, nil
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/posts/soundbar-kurulum-rehberi", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Post blogPostPayload `json:"post"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Post.BodyHTML != "<h1>Kurulum</h1>" || resp.Post.BodyMarkdown != "# Kurulum" {
		t.Fatalf("detail payload must carry both bodies: %#v", resp.Post)
	}
}

func TestCreatePostReturns201(t *testing.T) {
	var captured services.SaveBlogPostCommand
	service := &stubContentService{
		savePostFn: func(_ context.Context, cmd services.SaveBlogPostCommand) (services.BlogPost, error) {
			captured = cmd
			return services.BlogPost{ID: "post-new", Slug: cmd.Slug, Title: cmd.Title, Status: domain.ContentStatusDraft}, nil
		},
	}
	router := newContentTestRouter(service)

	body := strings.NewReader(`{"slug":"yeni-yazi","title":"Yeni Yazı","body_markdown":"içerik","tags":["kurulum"]}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/posts", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ID != "" || captured.Slug != "yeni-yazi" {
		t.Fatalf("unexpected command: %#v", captured)
	}
}

func TestDeletePostReturns204(t *testing.T) {
	var deleted string
	service := &stubContentService{
		deletePostFn: func(_ context.Context, postID string) error {
			deleted = postID
			return nil
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodDelete, "/admin/posts/post-2", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "post-2" {
		t.Fatalf("expected post-2 deleted, got %q", deleted)
	}
}

func TestFAQVisibilitySplit(t *testing.T) {
	var capturedUnpublished []bool
	service := &stubContentService{
		listFAQFn: func(_ context.Context, includeUnpublished bool) ([]services.FAQEntry, error) {
			capturedUnpublished = append(capturedUnpublished, includeUnpublished)
			return []services.FAQEntry{{ID: "faq-1", Question: "Kargo süresi nedir?", Answer: "2-4 iş günü.", Published: true}}, nil
		},
	}
	router := newContentTestRouter(service)

	for _, path := range []string{"/faq", "/admin/faq"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", path, rr.Code)
		}
	}
	if len(capturedUnpublished) != 2 || capturedUnpublished[0] || !capturedUnpublished[1] {
		t.Fatalf("expected storefront=false admin=true, got %v", capturedUnpublished)
	}
}

func TestPublicSettingsHideBaseURL(t *testing.T) {
	service := &stubContentService{
		getSettingsFn: func(context.Context) (services.SiteSettings, error) {
			return services.SiteSettings{
				SiteName:     "Velopix",
				BaseURL:      "https://www.velopix.com.tr",
				ContactEmail: "destek@velopix.com.tr",
				SocialLinks:  map[string]string{"instagram": "https://instagram.com/velopix"},
			}, nil
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Settings map[string]any `json:"settings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Settings["site_name"] != "Velopix" {
		t.Fatalf("expected site name, got %v", resp.Settings)
	}
	if _, ok := resp.Settings["base_url"]; ok {
		t.Fatalf("public settings must not expose base_url")
	}
}

func TestUpdateSettingsPatchesOnlyProvidedFields(t *testing.T) {
	var captured services.UpdateSettingsCommand
	service := &stubContentService{
		updateSettingsFn: func(_ context.Context, cmd services.UpdateSettingsCommand) (services.SiteSettings, error) {
			captured = cmd
			return services.SiteSettings{SiteName: "Velopix", AnnouncementBar: "Kargo bedava"}, nil
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodPatch, "/admin/settings", strings.NewReader(`{"announcement_bar":"Kargo bedava"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.AnnouncementBar == nil || *captured.AnnouncementBar != "Kargo bedava" {
		t.Fatalf("expected announcement patch, got %#v", captured.AnnouncementBar)
	}
	if captured.SiteName != nil || captured.BaseURL != nil || captured.ContactEmail != nil {
		t.Fatalf("absent fields must stay nil: %#v", captured)
	}
}

func TestGetPostNotFoundMapsTo404(t *testing.T) {
	service := &stubContentService{
		getBySlugFn: func(context.Context, string) (services.BlogPost, error) {
			return services.BlogPost{}, services.ErrContentNotFound
		},
	}
	router := newContentTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/posts/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

var (
	// ErrContentInvalidInput indicates the caller supplied invalid data to a content operation.
	ErrContentInvalidInput = errors.New("content service: invalid input")
	// ErrContentNotFound indicates the requested content entity does not exist.
	ErrContentNotFound = errors.New("content service: not found")
	// ErrContentUnavailable indicates the backend rejected the request for transient reasons.
	ErrContentUnavailable = errors.New("content service: unavailable")
)

// ContentServiceDeps bundles constructor inputs for the content service.
type ContentServiceDeps struct {
	Content     repositories.ContentRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type contentService struct {
	repo      repositories.ContentRepository
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
	newID     func() string
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewContentService constructs the content service with the supplied dependencies.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Content == nil {
		return nil, fmt.Errorf("content service: content repository is required")
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
	return &contentService{
		repo:   deps.Content,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
		newID:  idGen,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithHardWraps()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}, nil
}

func (s *contentService) ListPosts(ctx context.Context, query BlogListQuery) (domain.CursorPage[BlogPost], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[BlogPost]{}, ErrContentUnavailable
	}
	filter := repositories.BlogPostFilter{
		Tag:           normalizeFilterPointer(query.Tag),
		OnlyPublished: !query.IncludeDrafts,
		Pagination:    query.Pagination,
	}
	if filter.OnlyPublished {
		filter.Status = []domain.ContentStatus{domain.ContentStatusPublished}
	}
	page, err := s.repo.ListPosts(ctx, filter)
	if err != nil {
		return domain.CursorPage[BlogPost]{}, s.translateError(err)
	}
	return page, nil
}

func (s *contentService) GetPostBySlug(ctx context.Context, slug string) (BlogPost, error) {
	if s == nil || s.repo == nil {
		return BlogPost{}, ErrContentUnavailable
	}
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return BlogPost{}, ErrContentInvalidInput
	}
	post, err := s.repo.GetPostBySlug(ctx, trimmed)
	if err != nil {
		return BlogPost{}, s.translateError(err)
	}
	if post.Status != domain.ContentStatusPublished {
		return BlogPost{}, ErrContentNotFound
	}
	return post, nil
}

func (s *contentService) GetPost(ctx context.Context, postID string) (BlogPost, error) {
	if s == nil || s.repo == nil {
		return BlogPost{}, ErrContentUnavailable
	}
	id := strings.TrimSpace(postID)
	if id == "" {
		return BlogPost{}, ErrContentInvalidInput
	}
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return BlogPost{}, s.translateError(err)
	}
	return post, nil
}

func (s *contentService) SavePost(ctx context.Context, cmd SaveBlogPostCommand) (BlogPost, error) {
	if s == nil || s.repo == nil {
		return BlogPost{}, ErrContentUnavailable
	}

	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return BlogPost{}, fmt.Errorf("%w: title is required", ErrContentInvalidInput)
	}
	body := strings.TrimSpace(cmd.BodyMarkdown)
	if body == "" {
		return BlogPost{}, fmt.Errorf("%w: body is required", ErrContentInvalidInput)
	}

	id := strings.TrimSpace(cmd.ID)
	var existing BlogPost
	if id == "" {
		id = s.newID()
	} else {
		loaded, err := s.repo.GetPost(ctx, id)
		if err != nil && !isRepoNotFound(err) {
			return BlogPost{}, s.translateError(err)
		}
		existing = loaded
	}

	slug := normalizeSlug(firstNonEmpty(cmd.Slug, title))
	if slug == "" {
		return BlogPost{}, fmt.Errorf("%w: slug could not be derived", ErrContentInvalidInput)
	}

	html, err := s.renderBody(body)
	if err != nil {
		return BlogPost{}, fmt.Errorf("%w: body could not be rendered", ErrContentInvalidInput)
	}

	now := s.clock()
	status := domain.ContentStatusDraft
	publishedAt := existing.PublishedAt
	if cmd.Publish {
		status = domain.ContentStatusPublished
		if publishedAt == nil {
			publishedAt = &now
		}
	}

	post := domain.BlogPost{
		ID:           id,
		Slug:         slug,
		Title:        title,
		Excerpt:      strings.TrimSpace(cmd.Excerpt),
		BodyMarkdown: body,
		BodyHTML:     html,
		CoverImage:   strings.TrimSpace(cmd.CoverImage),
		Tags:         normalizeStringSlice(cmd.Tags),
		Author:       strings.TrimSpace(cmd.Author),
		Status:       status,
		PublishedAt:  publishedAt,
		CreatedAt:    existing.CreatedAt,
	}

	saved, err := s.repo.UpsertPost(ctx, post)
	if err != nil {
		return BlogPost{}, s.translateError(err)
	}
	s.logger(ctx, "content.post_saved", map[string]any{"postID": saved.ID, "status": string(saved.Status)})
	return saved, nil
}

func (s *contentService) DeletePost(ctx context.Context, postID string) error {
	if s == nil || s.repo == nil {
		return ErrContentUnavailable
	}
	id := strings.TrimSpace(postID)
	if id == "" {
		return ErrContentInvalidInput
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return s.translateError(err)
	}
	s.logger(ctx, "content.post_deleted", map[string]any{"postID": id})
	return nil
}

func (s *contentService) ListFAQ(ctx context.Context, includeUnpublished bool) ([]FAQEntry, error) {
	if s == nil || s.repo == nil {
		return nil, ErrContentUnavailable
	}
	entries, err := s.repo.ListFAQ(ctx, !includeUnpublished)
	if err != nil {
		return nil, s.translateError(err)
	}
	return entries, nil
}

func (s *contentService) SaveFAQ(ctx context.Context, entry FAQEntry) (FAQEntry, error) {
	if s == nil || s.repo == nil {
		return FAQEntry{}, ErrContentUnavailable
	}
	question := strings.TrimSpace(entry.Question)
	answer := strings.TrimSpace(entry.Answer)
	if question == "" || answer == "" {
		return FAQEntry{}, fmt.Errorf("%w: question and answer are required", ErrContentInvalidInput)
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = s.newID()
	}
	entry.Question = question
	entry.Answer = s.sanitizer.Sanitize(answer)
	saved, err := s.repo.UpsertFAQ(ctx, entry)
	if err != nil {
		return FAQEntry{}, s.translateError(err)
	}
	return saved, nil
}

func (s *contentService) DeleteFAQ(ctx context.Context, entryID string) error {
	if s == nil || s.repo == nil {
		return ErrContentUnavailable
	}
	id := strings.TrimSpace(entryID)
	if id == "" {
		return ErrContentInvalidInput
	}
	if err := s.repo.DeleteFAQ(ctx, id); err != nil {
		return s.translateError(err)
	}
	return nil
}

func (s *contentService) GetSettings(ctx context.Context) (SiteSettings, error) {
	if s == nil || s.repo == nil {
		return SiteSettings{}, ErrContentUnavailable
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		if isRepoNotFound(err) {
			return SiteSettings{}, nil
		}
		return SiteSettings{}, s.translateError(err)
	}
	return settings, nil
}

func (s *contentService) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (SiteSettings, error) {
	if s == nil || s.repo == nil {
		return SiteSettings{}, ErrContentUnavailable
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil && !isRepoNotFound(err) {
		return SiteSettings{}, s.translateError(err)
	}

	applySettingsPatch(&settings, cmd)
	settings.UpdatedAt = s.clock()

	saved, err := s.repo.SaveSettings(ctx, settings)
	if err != nil {
		return SiteSettings{}, s.translateError(err)
	}
	s.logger(ctx, "content.settings_updated", nil)
	return saved, nil
}

func (s *contentService) renderBody(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}

func applySettingsPatch(settings *domain.SiteSettings, cmd UpdateSettingsCommand) {
	if cmd.SiteName != nil {
		settings.SiteName = strings.TrimSpace(*cmd.SiteName)
	}
	if cmd.BaseURL != nil {
		settings.BaseURL = strings.TrimRight(strings.TrimSpace(*cmd.BaseURL), "/")
	}
	if cmd.ContactEmail != nil {
		settings.ContactEmail = strings.TrimSpace(*cmd.ContactEmail)
	}
	if cmd.ContactPhone != nil {
		settings.ContactPhone = strings.TrimSpace(*cmd.ContactPhone)
	}
	if cmd.Address != nil {
		settings.Address = strings.TrimSpace(*cmd.Address)
	}
	if cmd.SocialLinks != nil {
		links := make(map[string]string, len(cmd.SocialLinks))
		for network, url := range cmd.SocialLinks {
			key := strings.ToLower(strings.TrimSpace(network))
			value := strings.TrimSpace(url)
			if key != "" && value != "" {
				links[key] = value
			}
		}
		settings.SocialLinks = links
	}
	if cmd.AnnouncementBar != nil {
		settings.AnnouncementBar = strings.TrimSpace(*cmd.AnnouncementBar)
	}
}

func (s *contentService) translateError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrContentNotFound
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return ErrContentUnavailable
		}
	}
	return ErrContentUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

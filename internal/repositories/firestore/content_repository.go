package firestore

import (
	"context"
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
	blogPostsCollection = "blogPosts"
	faqCollection       = "faqEntries"
	settingsCollection  = "settings"

	// settings is a singleton; every read and write targets this document.
	settingsDocumentID = "site"
)

// ContentRepository stores blog posts, FAQ entries and the settings singleton.
type ContentRepository struct {
	posts    *pfirestore.BaseRepository[blogPostDocument]
	faq      *pfirestore.BaseRepository[faqDocument]
	settings *pfirestore.BaseRepository[settingsDocument]
}

// NewContentRepository constructs a Firestore-backed content repository.
func NewContentRepository(provider *pfirestore.Provider) (*ContentRepository, error) {
	if provider == nil {
		return nil, errors.New("content repository: firestore provider is required")
	}
	return &ContentRepository{
		posts:    pfirestore.NewBaseRepository[blogPostDocument](provider, blogPostsCollection, nil, nil),
		faq:      pfirestore.NewBaseRepository[faqDocument](provider, faqCollection, nil, nil),
		settings: pfirestore.NewBaseRepository[settingsDocument](provider, settingsCollection, nil, nil),
	}, nil
}

// ListPosts returns blog posts ordered newest first.
func (r *ContentRepository) ListPosts(ctx context.Context, filter repositories.BlogPostFilter) (domain.CursorPage[domain.BlogPost], error) {
	if r == nil || r.posts == nil {
		return domain.CursorPage[domain.BlogPost]{}, errors.New("content repository not initialised")
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
			return domain.CursorPage[domain.BlogPost]{}, fmt.Errorf("content repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		trimmed := strings.TrimSpace(string(status))
		if trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}
	if filter.OnlyPublished {
		statuses = []string{string(domain.ContentStatusPublished)}
	}

	docs, err := r.posts.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		if filter.Tag != nil && strings.TrimSpace(*filter.Tag) != "" {
			q = q.Where("tags", "array-contains", strings.TrimSpace(*filter.Tag))
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
		return domain.CursorPage[domain.BlogPost]{}, err
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

	items := make([]domain.BlogPost, 0, len(docs))
	for _, doc := range docs {
		items = append(items, blogPostFromDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.BlogPost]{Items: items, NextPageToken: nextToken}, nil
}

// GetPostBySlug resolves a blog post by its public slug.
func (r *ContentRepository) GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, error) {
	if r == nil || r.posts == nil {
		return domain.BlogPost{}, errors.New("content repository not initialised")
	}
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return domain.BlogPost{}, errors.New("content repository: slug is required")
	}
	docs, err := r.posts.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", trimmed).Limit(1)
	})
	if err != nil {
		return domain.BlogPost{}, err
	}
	if len(docs) == 0 {
		return domain.BlogPost{}, pfirestore.NewNotFound("blogPosts.get_by_slug", "post "+trimmed)
	}
	return blogPostFromDocument(docs[0].ID, docs[0].Data), nil
}

// GetPost fetches a post by ID regardless of status.
func (r *ContentRepository) GetPost(ctx context.Context, postID string) (domain.BlogPost, error) {
	if r == nil || r.posts == nil {
		return domain.BlogPost{}, errors.New("content repository not initialised")
	}
	id := strings.TrimSpace(postID)
	if id == "" {
		return domain.BlogPost{}, errors.New("content repository: post id is required")
	}
	doc, err := r.posts.Get(ctx, id)
	if err != nil {
		return domain.BlogPost{}, err
	}
	return blogPostFromDocument(doc.ID, doc.Data), nil
}

// UpsertPost writes the whole post document.
func (r *ContentRepository) UpsertPost(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	if r == nil || r.posts == nil {
		return domain.BlogPost{}, errors.New("content repository not initialised")
	}
	id := strings.TrimSpace(post.ID)
	if id == "" {
		return domain.BlogPost{}, errors.New("content repository: post id is required")
	}
	doc := blogPostToDocument(post)
	if _, err := r.posts.Set(ctx, id, doc); err != nil {
		return domain.BlogPost{}, err
	}
	return blogPostFromDocument(id, doc), nil
}

// DeletePost removes the post document.
func (r *ContentRepository) DeletePost(ctx context.Context, postID string) error {
	if r == nil || r.posts == nil {
		return errors.New("content repository not initialised")
	}
	id := strings.TrimSpace(postID)
	if id == "" {
		return errors.New("content repository: post id is required")
	}
	_, err := r.posts.Delete(ctx, id)
	return err
}

// ListFAQ returns FAQ entries ordered by position.
func (r *ContentRepository) ListFAQ(ctx context.Context, onlyPublished bool) ([]domain.FAQEntry, error) {
	if r == nil || r.faq == nil {
		return nil, errors.New("content repository not initialised")
	}
	docs, err := r.faq.Query(ctx, func(q firestore.Query) firestore.Query {
		if onlyPublished {
			q = q.Where("published", "==", true)
		}
		return q.OrderBy("position", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.FAQEntry, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.FAQEntry{
			ID:        doc.ID,
			Question:  doc.Data.Question,
			Answer:    doc.Data.Answer,
			Position:  doc.Data.Position,
			Published: doc.Data.Published,
			CreatedAt: doc.Data.CreatedAt,
			UpdatedAt: doc.Data.UpdatedAt,
		})
	}
	return items, nil
}

// UpsertFAQ writes the whole FAQ entry document.
func (r *ContentRepository) UpsertFAQ(ctx context.Context, entry domain.FAQEntry) (domain.FAQEntry, error) {
	if r == nil || r.faq == nil {
		return domain.FAQEntry{}, errors.New("content repository not initialised")
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return domain.FAQEntry{}, errors.New("content repository: entry id is required")
	}
	now := time.Now().UTC()
	createdAt := entry.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	doc := faqDocument{
		Question:  strings.TrimSpace(entry.Question),
		Answer:    strings.TrimSpace(entry.Answer),
		Position:  entry.Position,
		Published: entry.Published,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if _, err := r.faq.Set(ctx, id, doc); err != nil {
		return domain.FAQEntry{}, err
	}
	entry.ID = id
	entry.CreatedAt = doc.CreatedAt
	entry.UpdatedAt = doc.UpdatedAt
	return entry, nil
}

// DeleteFAQ removes the FAQ entry document.
func (r *ContentRepository) DeleteFAQ(ctx context.Context, entryID string) error {
	if r == nil || r.faq == nil {
		return errors.New("content repository not initialised")
	}
	id := strings.TrimSpace(entryID)
	if id == "" {
		return errors.New("content repository: entry id is required")
	}
	_, err := r.faq.Delete(ctx, id)
	return err
}

// GetSettings loads the settings singleton.
func (r *ContentRepository) GetSettings(ctx context.Context) (domain.SiteSettings, error) {
	if r == nil || r.settings == nil {
		return domain.SiteSettings{}, errors.New("content repository not initialised")
	}
	doc, err := r.settings.Get(ctx, settingsDocumentID)
	if err != nil {
		return domain.SiteSettings{}, err
	}
	return domain.SiteSettings{
		SiteName:        doc.Data.SiteName,
		BaseURL:         doc.Data.BaseURL,
		ContactEmail:    doc.Data.ContactEmail,
		ContactPhone:    doc.Data.ContactPhone,
		Address:         doc.Data.Address,
		SocialLinks:     cloneStringMap(doc.Data.SocialLinks),
		AnnouncementBar: doc.Data.AnnouncementBar,
		UpdatedAt:       doc.UpdateTime,
	}, nil
}

// SaveSettings overwrites the settings singleton.
func (r *ContentRepository) SaveSettings(ctx context.Context, settings domain.SiteSettings) (domain.SiteSettings, error) {
	if r == nil || r.settings == nil {
		return domain.SiteSettings{}, errors.New("content repository not initialised")
	}
	doc := settingsDocument{
		SiteName:        strings.TrimSpace(settings.SiteName),
		BaseURL:         strings.TrimSpace(settings.BaseURL),
		ContactEmail:    strings.TrimSpace(settings.ContactEmail),
		ContactPhone:    strings.TrimSpace(settings.ContactPhone),
		Address:         strings.TrimSpace(settings.Address),
		SocialLinks:     cloneStringMap(settings.SocialLinks),
		AnnouncementBar: strings.TrimSpace(settings.AnnouncementBar),
	}
	result, err := r.settings.Set(ctx, settingsDocumentID, doc)
	if err != nil {
		return domain.SiteSettings{}, err
	}
	settings.UpdatedAt = result.UpdateTime
	return settings, nil
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func blogPostFromDocument(id string, doc blogPostDocument) domain.BlogPost {
	return domain.BlogPost{
		ID:           id,
		Slug:         doc.Slug,
		Title:        doc.Title,
		Excerpt:      doc.Excerpt,
		BodyMarkdown: doc.BodyMarkdown,
		BodyHTML:     doc.BodyHTML,
		CoverImage:   doc.CoverImage,
		Tags:         append([]string(nil), doc.Tags...),
		Author:       doc.Author,
		Status:       domain.ContentStatus(doc.Status),
		PublishedAt:  doc.PublishedAt,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func blogPostToDocument(post domain.BlogPost) blogPostDocument {
	now := time.Now().UTC()
	createdAt := post.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	return blogPostDocument{
		Slug:         strings.TrimSpace(post.Slug),
		Title:        strings.TrimSpace(post.Title),
		Excerpt:      post.Excerpt,
		BodyMarkdown: post.BodyMarkdown,
		BodyHTML:     post.BodyHTML,
		CoverImage:   strings.TrimSpace(post.CoverImage),
		Tags:         append([]string(nil), post.Tags...),
		Author:       strings.TrimSpace(post.Author),
		Status:       string(post.Status),
		PublishedAt:  post.PublishedAt,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

type blogPostDocument struct {
	Slug         string     `firestore:"slug"`
	Title        string     `firestore:"title"`
	Excerpt      string     `firestore:"excerpt,omitempty"`
	BodyMarkdown string     `firestore:"bodyMarkdown"`
	BodyHTML     string     `firestore:"bodyHtml"`
	CoverImage   string     `firestore:"coverImage,omitempty"`
	Tags         []string   `firestore:"tags,omitempty"`
	Author       string     `firestore:"author,omitempty"`
	Status       string     `firestore:"status"`
	PublishedAt  *time.Time `firestore:"publishedAt,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
}

type faqDocument struct {
	Question  string    `firestore:"question"`
	Answer    string    `firestore:"answer"`
	Position  int       `firestore:"position"`
	Published bool      `firestore:"published"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type settingsDocument struct {
	SiteName        string            `firestore:"siteName"`
	BaseURL         string            `firestore:"baseUrl"`
	ContactEmail    string            `firestore:"contactEmail,omitempty"`
	ContactPhone    string            `firestore:"contactPhone,omitempty"`
	Address         string            `firestore:"address,omitempty"`
	SocialLinks     map[string]string `firestore:"socialLinks,omitempty"`
	AnnouncementBar string            `firestore:"announcementBar,omitempty"`
}

var _ repositories.ContentRepository = (*ContentRepository)(nil)

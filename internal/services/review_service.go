package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

const maxReviewCommentLength = 2000

var (
	// ErrReviewInvalidInput indicates the caller supplied invalid data to a review operation.
	ErrReviewInvalidInput = errors.New("review service: invalid input")
	// ErrReviewNotFound indicates the requested review does not exist.
	ErrReviewNotFound = errors.New("review service: not found")
	// ErrReviewUnavailable indicates the backend rejected the request for transient reasons.
	ErrReviewUnavailable = errors.New("review service: unavailable")
)

// reviewCatalog is the slice of the catalog the review service needs to
// verify submissions target a real product.
type reviewCatalog interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ReviewServiceDeps bundles constructor inputs for the review service.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Catalog     reviewCatalog
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type reviewService struct {
	repo      repositories.ReviewRepository
	catalog   reviewCatalog
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
	newID     func() string
	sanitizer *bluemonday.Policy
}

// NewReviewService constructs the review service with the supplied dependencies.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, fmt.Errorf("review service: review repository is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("review service: catalog is required")
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
	return &reviewService{
		repo:      deps.Reviews,
		catalog:   deps.Catalog,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
		newID:     idGen,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (s *reviewService) Submit(ctx context.Context, cmd SubmitReviewCommand) (Review, error) {
	if s == nil || s.repo == nil {
		return Review{}, ErrReviewUnavailable
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Review{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}
	author := strings.TrimSpace(cmd.Author)
	if author == "" {
		return Review{}, fmt.Errorf("%w: author is required", ErrReviewInvalidInput)
	}
	comment := s.sanitizer.Sanitize(strings.TrimSpace(cmd.Comment))
	if len(comment) > maxReviewCommentLength {
		return Review{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxReviewCommentLength)
	}

	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		if isRepoNotFound(err) {
			return Review{}, fmt.Errorf("%w: unknown product %q", ErrReviewInvalidInput, productID)
		}
		return Review{}, s.translateError(err)
	}

	now := s.clock()
	review := domain.Review{
		ID:        s.newID(),
		ProductID: productID,
		Author:    author,
		Rating:    cmd.Rating,
		Comment:   comment,
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.repo.Insert(ctx, review)
	if err != nil {
		return Review{}, s.translateError(err)
	}
	s.logger(ctx, "review.submitted", map[string]any{"reviewID": saved.ID, "productID": productID})
	return saved, nil
}

func (s *reviewService) ListApproved(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[Review], error) {
	return s.listByStatus(ctx, productID, pager, domain.ReviewStatusApproved)
}

func (s *reviewService) ListPending(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[Review], error) {
	return s.listByStatus(ctx, productID, pager, domain.ReviewStatusPending)
}

func (s *reviewService) listByStatus(ctx context.Context, productID string, pager domain.Pagination, status domain.ReviewStatus) (domain.CursorPage[Review], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Review]{}, ErrReviewUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.CursorPage[Review]{}, ErrReviewInvalidInput
	}
	page, err := s.repo.ListByProduct(ctx, id, repositories.ReviewFilter{
		Status:     []domain.ReviewStatus{status},
		Pagination: pager,
	})
	if err != nil {
		return domain.CursorPage[Review]{}, s.translateError(err)
	}
	return page, nil
}

func (s *reviewService) Moderate(ctx context.Context, reviewID string, approve bool) (Review, error) {
	if s == nil || s.repo == nil {
		return Review{}, ErrReviewUnavailable
	}
	id := strings.TrimSpace(reviewID)
	if id == "" {
		return Review{}, ErrReviewInvalidInput
	}

	status := domain.ReviewStatusRejected
	if approve {
		status = domain.ReviewStatusApproved
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, s.clock())
	if err != nil {
		return Review{}, s.translateError(err)
	}
	s.logger(ctx, "review.moderated", map[string]any{"reviewID": id, "status": string(status)})
	return updated, nil
}

func (s *reviewService) translateError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrReviewNotFound
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return ErrReviewUnavailable
		}
	}
	return ErrReviewUnavailable
}

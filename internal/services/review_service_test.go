package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

type stubReviewRepository struct {
	insertFunc       func(ctx context.Context, review domain.Review) (domain.Review, error)
	findFunc         func(ctx context.Context, reviewID string) (domain.Review, error)
	listFunc         func(ctx context.Context, productID string, filter repositories.ReviewFilter) (domain.CursorPage[domain.Review], error)
	updateStatusFunc func(ctx context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error)
}

func (s *stubReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, review)
	}
	return domain.Review{}, errors.New("unexpected Insert call")
}

func (s *stubReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, reviewID)
	}
	return domain.Review{}, errors.New("unexpected FindByID call")
}

func (s *stubReviewRepository) ListByProduct(ctx context.Context, productID string, filter repositories.ReviewFilter) (domain.CursorPage[domain.Review], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, productID, filter)
	}
	return domain.CursorPage[domain.Review]{}, errors.New("unexpected ListByProduct call")
}

func (s *stubReviewRepository) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, reviewID, status, updatedAt)
	}
	return domain.Review{}, errors.New("unexpected UpdateStatus call")
}

func newTestReviewService(t *testing.T, repo *stubReviewRepository, catalog *stubCartCatalog) ReviewService {
	t.Helper()
	if catalog == nil {
		catalog = &stubCartCatalog{
			productFunc: func(_ context.Context, productID string) (domain.Product, error) {
				return domain.Product{ID: productID, Published: true}, nil
			},
		}
	}
	svc, err := NewReviewService(ReviewServiceDeps{
		Reviews:     repo,
		Catalog:     catalog,
		Clock:       fixedCartClock(),
		IDGenerator: func() string { return "review-id" },
	})
	if err != nil {
		t.Fatalf("NewReviewService returned error: %v", err)
	}
	return svc
}

func TestSubmitReviewStartsPending(t *testing.T) {
	repo := &stubReviewRepository{
		insertFunc: func(_ context.Context, review domain.Review) (domain.Review, error) {
			return review, nil
		},
	}
	svc := newTestReviewService(t, repo, nil)

	review, err := svc.Submit(context.Background(), SubmitReviewCommand{
		ProductID: "p-1",
		Author:    "Deniz",
		Rating:    5,
		Comment:   "Kurulumu çok kolaydı.",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if review.Status != domain.ReviewStatusPending {
		t.Fatalf("expected pending status, got %q", review.Status)
	}
}

func TestSubmitReviewRejectsRatingOutOfRange(t *testing.T) {
	svc := newTestReviewService(t, &stubReviewRepository{}, nil)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Submit(context.Background(), SubmitReviewCommand{ProductID: "p-1", Author: "Deniz", Rating: rating})
		if !errors.Is(err, ErrReviewInvalidInput) {
			t.Fatalf("rating %d: expected invalid input, got %v", rating, err)
		}
	}
}

func TestSubmitReviewStripsMarkup(t *testing.T) {
	repo := &stubReviewRepository{
		insertFunc: func(_ context.Context, review domain.Review) (domain.Review, error) {
			return review, nil
		},
	}
	svc := newTestReviewService(t, repo, nil)

	review, err := svc.Submit(context.Background(), SubmitReviewCommand{
		ProductID: "p-1",
		Author:    "Deniz",
		Rating:    4,
		Comment:   `<b>Harika</b> ürün <script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if review.Comment != "Harika ürün " {
		t.Fatalf("expected markup to be stripped, got %q", review.Comment)
	}
}

func TestSubmitReviewRejectsUnknownProduct(t *testing.T) {
	catalog := &stubCartCatalog{
		productFunc: func(context.Context, string) (domain.Product, error) {
			return domain.Product{}, repositoryErrorStub{notFound: true}
		},
	}
	svc := newTestReviewService(t, &stubReviewRepository{}, catalog)

	_, err := svc.Submit(context.Background(), SubmitReviewCommand{ProductID: "ghost", Author: "Deniz", Rating: 3})
	if !errors.Is(err, ErrReviewInvalidInput) {
		t.Fatalf("expected invalid input for unknown product, got %v", err)
	}
}

func TestModerateApprovesReview(t *testing.T) {
	repo := &stubReviewRepository{
		updateStatusFunc: func(_ context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error) {
			return domain.Review{ID: reviewID, Status: status, UpdatedAt: updatedAt}, nil
		},
	}
	svc := newTestReviewService(t, repo, nil)

	review, err := svc.Moderate(context.Background(), "rev-1", true)
	if err != nil {
		t.Fatalf("Moderate returned error: %v", err)
	}
	if review.Status != domain.ReviewStatusApproved {
		t.Fatalf("expected approved status, got %q", review.Status)
	}
}

func TestListApprovedFiltersByStatus(t *testing.T) {
	var captured repositories.ReviewFilter
	repo := &stubReviewRepository{
		listFunc: func(_ context.Context, _ string, filter repositories.ReviewFilter) (domain.CursorPage[domain.Review], error) {
			captured = filter
			return domain.CursorPage[domain.Review]{}, nil
		},
	}
	svc := newTestReviewService(t, repo, nil)

	if _, err := svc.ListApproved(context.Background(), "p-1", domain.Pagination{PageSize: 10}); err != nil {
		t.Fatalf("ListApproved returned error: %v", err)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.ReviewStatusApproved {
		t.Fatalf("expected approved status filter, got %v", captured.Status)
	}
}

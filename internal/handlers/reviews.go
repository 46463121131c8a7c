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

const maxReviewBodySize = 16 * 1024

// ReviewHandlers serves review submission, approved listings and moderation.
type ReviewHandlers struct {
	reviews services.ReviewService
}

// NewReviewHandlers constructs review handlers.
func NewReviewHandlers(reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{reviews: reviews}
}

// Routes wires the public review endpoints onto the provided router.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/reviews", h.listApproved)
	r.Post("/reviews", h.submit)
}

// AdminRoutes wires the moderation queue. Callers apply auth middleware.
func (h *ReviewHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/reviews", h.listPending)
	r.Post("/reviews/{reviewID}/moderate", h.moderate)
}

func (h *ReviewHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitReviewRequest
	if err := decodeJSONBody(r, maxReviewBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	review, err := h.reviews.Submit(ctx, services.SubmitReviewCommand{
		ProductID: req.ProductID,
		Author:    req.Author,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"review": buildReviewPayload(review)})
}

func (h *ReviewHandlers) listApproved(w http.ResponseWriter, r *http.Request) {
	h.serveReviewList(w, r, true)
}

func (h *ReviewHandlers) listPending(w http.ResponseWriter, r *http.Request) {
	h.serveReviewList(w, r, false)
}

func (h *ReviewHandlers) serveReviewList(w http.ResponseWriter, r *http.Request, approved bool) {
	ctx := r.Context()
	pager, err := listPagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	productID := ""
	if value := optionalQueryParam(r, "product_id"); value != nil {
		productID = *value
	}

	var page domain.CursorPage[domain.Review]
	if approved {
		page, err = h.reviews.ListApproved(ctx, productID, pager)
	} else {
		page, err = h.reviews.ListPending(ctx, productID, pager)
	}
	if err != nil {
		h.writeReviewError(ctx, w, err)
		return
	}

	items := make([]reviewPayload, 0, len(page.Items))
	for _, review := range page.Items {
		items = append(items, buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[reviewPayload]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ReviewHandlers) moderate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req moderateReviewRequest
	if err := decodeJSONBody(r, maxReviewBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Approve == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "approve is required", http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Moderate(ctx, chi.URLParam(r, "reviewID"), *req.Approve)
	if err != nil {
		h.writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"review": buildReviewPayload(review)})
}

func (h *ReviewHandlers) writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("reviews_unavailable", "reviews are unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("review_error", "review request failed", http.StatusInternalServerError))
	}
}

func buildReviewPayload(review domain.Review) reviewPayload {
	payload := reviewPayload{
		ID:        review.ID,
		ProductID: review.ProductID,
		Author:    review.Author,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Status:    string(review.Status),
	}
	if !review.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(review.CreatedAt)
	}
	return payload
}

type submitReviewRequest struct {
	ProductID string `json:"product_id"`
	Author    string `json:"author"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type moderateReviewRequest struct {
	Approve *bool `json:"approve"`
}

type reviewPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Author    string `json:"author"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

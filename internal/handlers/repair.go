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

const maxRepairBodySize = 16 * 1024

// RepairHandlers serves the public repair intake form and the back-office queue.
type RepairHandlers struct {
	repairs services.RepairService
}

// NewRepairHandlers constructs repair handlers.
func NewRepairHandlers(repairs services.RepairService) *RepairHandlers {
	return &RepairHandlers{repairs: repairs}
}

// Routes wires the public repair endpoints onto the provided router.
func (h *RepairHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/repair-requests", h.submit)
	r.Get("/repair-requests/{requestID}", h.getByID)
}

// AdminRoutes wires the back-office repair queue. Callers apply auth middleware.
func (h *RepairHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/repair-requests", h.list)
	r.Patch("/repair-requests/{requestID}/status", h.updateStatus)
}

func (h *RepairHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRepairRequest
	if err := decodeJSONBody(r, maxRepairBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	request, err := h.repairs.Submit(ctx, services.SubmitRepairRequestCommand{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		DeviceBrand:      req.DeviceBrand,
		DeviceModel:      req.DeviceModel,
		IssueDescription: req.IssueDescription,
	})
	if err != nil {
		h.writeRepairError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"request": buildRepairPayload(request)})
}

func (h *RepairHandlers) getByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	request, err := h.repairs.GetByID(ctx, chi.URLParam(r, "requestID"))
	if err != nil {
		h.writeRepairError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"request": buildRepairPayload(request)})
}

func (h *RepairHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pager, err := listPagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.RepairListQuery{Pagination: pager}
	if status := optionalQueryParam(r, "status"); status != nil {
		query.Status = []domain.RepairRequestStatus{domain.RepairRequestStatus(*status)}
	}

	page, err := h.repairs.List(ctx, query)
	if err != nil {
		h.writeRepairError(ctx, w, err)
		return
	}

	items := make([]repairPayload, 0, len(page.Items))
	for _, request := range page.Items {
		items = append(items, buildRepairPayload(request))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[repairPayload]{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *RepairHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateRepairStatusRequest
	if err := decodeJSONBody(r, maxRepairBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	request, err := h.repairs.UpdateStatus(ctx, chi.URLParam(r, "requestID"), domain.RepairRequestStatus(req.Status))
	if err != nil {
		h.writeRepairError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"request": buildRepairPayload(request)})
}

func (h *RepairHandlers) writeRepairError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRepairInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrRepairInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrRepairNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "repair request not found", http.StatusNotFound))
	case errors.Is(err, services.ErrRepairUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("repairs_unavailable", "repair service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("repair_error", "repair request failed", http.StatusInternalServerError))
	}
}

func buildRepairPayload(request domain.RepairRequest) repairPayload {
	payload := repairPayload{
		ID:               request.ID,
		Name:             request.Name,
		Email:            request.Email,
		Phone:            request.Phone,
		DeviceBrand:      request.DeviceBrand,
		DeviceModel:      request.DeviceModel,
		IssueDescription: request.IssueDescription,
		Status:           string(request.Status),
	}
	if !request.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(request.CreatedAt)
	}
	if !request.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(request.UpdatedAt)
	}
	return payload
}

type submitRepairRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DeviceBrand      string `json:"device_brand"`
	DeviceModel      string `json:"device_model"`
	IssueDescription string `json:"issue_description"`
}

type updateRepairStatusRequest struct {
	Status string `json:"status"`
}

type repairPayload struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	DeviceBrand      string `json:"device_brand,omitempty"`
	DeviceModel      string `json:"device_model,omitempty"`
	IssueDescription string `json:"issue_description"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

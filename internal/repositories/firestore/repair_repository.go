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

const repairRequestsCollection = "repairRequests"

// RepairRequestRepository persists repair tickets.
type RepairRequestRepository struct {
	base *pfirestore.BaseRepository[repairRequestDocument]
}

// NewRepairRequestRepository constructs a Firestore-backed repair repository.
func NewRepairRequestRepository(provider *pfirestore.Provider) (*RepairRequestRepository, error) {
	if provider == nil {
		return nil, errors.New("repair repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[repairRequestDocument](provider, repairRequestsCollection, nil, nil)
	return &RepairRequestRepository{base: base}, nil
}

// Insert stores a new repair ticket. The ID must be unique.
func (r *RepairRequestRepository) Insert(ctx context.Context, request domain.RepairRequest) error {
	if r == nil || r.base == nil {
		return errors.New("repair repository not initialised")
	}
	id := strings.TrimSpace(request.ID)
	if id == "" {
		return errors.New("repair repository: request id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	doc := repairRequestToDocument(request)
	if _, err := docRef.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("repairRequests.insert", err)
	}
	return nil
}

// FindByID fetches a single ticket.
func (r *RepairRequestRepository) FindByID(ctx context.Context, requestID string) (domain.RepairRequest, error) {
	if r == nil || r.base == nil {
		return domain.RepairRequest{}, errors.New("repair repository not initialised")
	}
	id := strings.TrimSpace(requestID)
	if id == "" {
		return domain.RepairRequest{}, errors.New("repair repository: request id is required")
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.RepairRequest{}, err
	}
	return repairRequestFromDocument(doc.ID, doc.Data), nil
}

// UpdateStatus transitions the ticket to a new workflow state.
func (r *RepairRequestRepository) UpdateStatus(ctx context.Context, requestID string, status domain.RepairRequestStatus, updatedAt time.Time) (domain.RepairRequest, error) {
	if r == nil || r.base == nil {
		return domain.RepairRequest{}, errors.New("repair repository not initialised")
	}
	id := strings.TrimSpace(requestID)
	if id == "" {
		return domain.RepairRequest{}, errors.New("repair repository: request id is required")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, id, updates); err != nil {
		return domain.RepairRequest{}, err
	}
	return r.FindByID(ctx, id)
}

// List returns tickets newest first with optional status filtering.
func (r *RepairRequestRepository) List(ctx context.Context, filter repositories.RepairRequestFilter) (domain.CursorPage[domain.RepairRequest], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.RepairRequest]{}, errors.New("repair repository not initialised")
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
			return domain.CursorPage[domain.RepairRequest]{}, fmt.Errorf("repair repository: invalid page token: %w", err)
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

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
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
		return domain.CursorPage[domain.RepairRequest]{}, err
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

	items := make([]domain.RepairRequest, 0, len(docs))
	for _, doc := range docs {
		items = append(items, repairRequestFromDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.RepairRequest]{Items: items, NextPageToken: nextToken}, nil
}

func repairRequestFromDocument(id string, doc repairRequestDocument) domain.RepairRequest {
	return domain.RepairRequest{
		ID:               id,
		Name:             doc.Name,
		Email:            doc.Email,
		Phone:            doc.Phone,
		DeviceBrand:      doc.DeviceBrand,
		DeviceModel:      doc.DeviceModel,
		IssueDescription: doc.IssueDescription,
		Status:           domain.RepairRequestStatus(doc.Status),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func repairRequestToDocument(request domain.RepairRequest) repairRequestDocument {
	now := time.Now().UTC()
	createdAt := request.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := request.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return repairRequestDocument{
		Name:             strings.TrimSpace(request.Name),
		Email:            strings.TrimSpace(request.Email),
		Phone:            strings.TrimSpace(request.Phone),
		DeviceBrand:      strings.TrimSpace(request.DeviceBrand),
		DeviceModel:      strings.TrimSpace(request.DeviceModel),
		IssueDescription: strings.TrimSpace(request.IssueDescription),
		Status:           string(request.Status),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

type repairRequestDocument struct {
	Name             string    `firestore:"name"`
	Email            string    `firestore:"email,omitempty"`
	Phone            string    `firestore:"phone,omitempty"`
	DeviceBrand      string    `firestore:"deviceBrand,omitempty"`
	DeviceModel      string    `firestore:"deviceModel,omitempty"`
	IssueDescription string    `firestore:"issueDescription"`
	Status           string    `firestore:"status"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

var _ repositories.RepairRequestRepository = (*RepairRequestRepository)(nil)

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

var (
	// ErrRepairInvalidInput indicates the caller supplied invalid data to a repair operation.
	ErrRepairInvalidInput = errors.New("repair service: invalid input")
	// ErrRepairNotFound indicates the requested repair ticket does not exist.
	ErrRepairNotFound = errors.New("repair service: not found")
	// ErrRepairInvalidTransition indicates a status update would move the ticket backwards.
	ErrRepairInvalidTransition = errors.New("repair service: invalid status transition")
	// ErrRepairUnavailable indicates the backend rejected the request for transient reasons.
	ErrRepairUnavailable = errors.New("repair service: unavailable")
)

// repairStatusRank orders the workflow. Transitions only ever move to a
// strictly higher rank.
var repairStatusRank = map[domain.RepairRequestStatus]int{
	domain.RepairStatusReceived:   0,
	domain.RepairStatusDiagnosing: 1,
	domain.RepairStatusRepairing:  2,
	domain.RepairStatusCompleted:  3,
	domain.RepairStatusDelivered:  4,
}

// RepairServiceDeps bundles constructor inputs for the repair service.
type RepairServiceDeps struct {
	Repairs     repositories.RepairRequestRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type repairService struct {
	repo   repositories.RepairRequestRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
	newID  func() string
}

// NewRepairService constructs the repair service with the supplied dependencies.
func NewRepairService(deps RepairServiceDeps) (RepairService, error) {
	if deps.Repairs == nil {
		return nil, fmt.Errorf("repair service: repair repository is required")
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
	return &repairService{
		repo:   deps.Repairs,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
		newID:  idGen,
	}, nil
}

func (s *repairService) Submit(ctx context.Context, cmd SubmitRepairRequestCommand) (RepairRequest, error) {
	if s == nil || s.repo == nil {
		return RepairRequest{}, ErrRepairUnavailable
	}

	name := strings.TrimSpace(cmd.Name)
	email := strings.TrimSpace(cmd.Email)
	issue := strings.TrimSpace(cmd.IssueDescription)
	if name == "" {
		return RepairRequest{}, fmt.Errorf("%w: name is required", ErrRepairInvalidInput)
	}
	if email == "" && strings.TrimSpace(cmd.Phone) == "" {
		return RepairRequest{}, fmt.Errorf("%w: a contact email or phone is required", ErrRepairInvalidInput)
	}
	if email != "" && !strings.Contains(email, "@") {
		return RepairRequest{}, fmt.Errorf("%w: email is malformed", ErrRepairInvalidInput)
	}
	if issue == "" {
		return RepairRequest{}, fmt.Errorf("%w: issue description is required", ErrRepairInvalidInput)
	}

	now := s.clock()
	request := domain.RepairRequest{
		ID:               s.newID(),
		Name:             name,
		Email:            email,
		Phone:            strings.TrimSpace(cmd.Phone),
		DeviceBrand:      strings.TrimSpace(cmd.DeviceBrand),
		DeviceModel:      strings.TrimSpace(cmd.DeviceModel),
		IssueDescription: issue,
		Status:           domain.RepairStatusReceived,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, request); err != nil {
		return RepairRequest{}, s.translateError(err)
	}
	s.logger(ctx, "repair.request_submitted", map[string]any{"requestID": request.ID})
	return request, nil
}

func (s *repairService) GetByID(ctx context.Context, requestID string) (RepairRequest, error) {
	if s == nil || s.repo == nil {
		return RepairRequest{}, ErrRepairUnavailable
	}
	id := strings.TrimSpace(requestID)
	if id == "" {
		return RepairRequest{}, ErrRepairInvalidInput
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RepairRequest{}, s.translateError(err)
	}
	return request, nil
}

func (s *repairService) List(ctx context.Context, query RepairListQuery) (domain.CursorPage[RepairRequest], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[RepairRequest]{}, ErrRepairUnavailable
	}
	page, err := s.repo.List(ctx, repositories.RepairRequestFilter{
		Status:     query.Status,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[RepairRequest]{}, s.translateError(err)
	}
	return page, nil
}

func (s *repairService) UpdateStatus(ctx context.Context, requestID string, status domain.RepairRequestStatus) (RepairRequest, error) {
	if s == nil || s.repo == nil {
		return RepairRequest{}, ErrRepairUnavailable
	}
	id := strings.TrimSpace(requestID)
	if id == "" {
		return RepairRequest{}, ErrRepairInvalidInput
	}
	nextRank, known := repairStatusRank[status]
	if !known {
		return RepairRequest{}, fmt.Errorf("%w: unknown status %q", ErrRepairInvalidInput, status)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RepairRequest{}, s.translateError(err)
	}
	if nextRank <= repairStatusRank[current.Status] {
		return RepairRequest{}, fmt.Errorf("%w: %s -> %s", ErrRepairInvalidTransition, current.Status, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, s.clock())
	if err != nil {
		return RepairRequest{}, s.translateError(err)
	}
	s.logger(ctx, "repair.status_updated", map[string]any{"requestID": id, "status": string(status)})
	return updated, nil
}

func (s *repairService) translateError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrRepairNotFound
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return ErrRepairUnavailable
		}
	}
	return ErrRepairUnavailable
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

type stubRepairRepository struct {
	insertFunc       func(ctx context.Context, request domain.RepairRequest) error
	findFunc         func(ctx context.Context, requestID string) (domain.RepairRequest, error)
	updateStatusFunc func(ctx context.Context, requestID string, status domain.RepairRequestStatus, updatedAt time.Time) (domain.RepairRequest, error)
	listFunc         func(ctx context.Context, filter repositories.RepairRequestFilter) (domain.CursorPage[domain.RepairRequest], error)
}

func (s *stubRepairRepository) Insert(ctx context.Context, request domain.RepairRequest) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, request)
	}
	return errors.New("unexpected Insert call")
}

func (s *stubRepairRepository) FindByID(ctx context.Context, requestID string) (domain.RepairRequest, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, requestID)
	}
	return domain.RepairRequest{}, errors.New("unexpected FindByID call")
}

func (s *stubRepairRepository) UpdateStatus(ctx context.Context, requestID string, status domain.RepairRequestStatus, updatedAt time.Time) (domain.RepairRequest, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, requestID, status, updatedAt)
	}
	return domain.RepairRequest{}, errors.New("unexpected UpdateStatus call")
}

func (s *stubRepairRepository) List(ctx context.Context, filter repositories.RepairRequestFilter) (domain.CursorPage[domain.RepairRequest], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.RepairRequest]{}, errors.New("unexpected List call")
}

func newTestRepairService(t *testing.T, repo *stubRepairRepository) RepairService {
	t.Helper()
	svc, err := NewRepairService(RepairServiceDeps{
		Repairs:     repo,
		Clock:       fixedCartClock(),
		IDGenerator: func() string { return "repair-id" },
	})
	if err != nil {
		t.Fatalf("NewRepairService returned error: %v", err)
	}
	return svc
}

func TestSubmitRepairRequestStartsReceived(t *testing.T) {
	var inserted domain.RepairRequest
	repo := &stubRepairRepository{
		insertFunc: func(_ context.Context, request domain.RepairRequest) error {
			inserted = request
			return nil
		},
	}
	svc := newTestRepairService(t, repo)

	request, err := svc.Submit(context.Background(), SubmitRepairRequestCommand{
		Name:             "Ayşe Yılmaz",
		Email:            "ayse@example.com",
		DeviceBrand:      "Samsung",
		DeviceModel:      "Galaxy S23",
		IssueDescription: "Ekran dokunmaya yanıt vermiyor.",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if request.Status != domain.RepairStatusReceived {
		t.Fatalf("expected received status, got %q", request.Status)
	}
	if request.ID != "repair-id" {
		t.Fatalf("expected generated id, got %q", request.ID)
	}
	if inserted.ID != request.ID {
		t.Fatalf("expected request to be persisted")
	}
}

func TestSubmitRepairRequestRequiresContact(t *testing.T) {
	svc := newTestRepairService(t, &stubRepairRepository{})

	_, err := svc.Submit(context.Background(), SubmitRepairRequestCommand{
		Name:             "Mehmet",
		IssueDescription: "Cihaz açılmıyor.",
	})
	if !errors.Is(err, ErrRepairInvalidInput) {
		t.Fatalf("expected invalid input without contact details, got %v", err)
	}
}

func TestUpdateStatusMovesForward(t *testing.T) {
	repo := &stubRepairRepository{
		findFunc: func(_ context.Context, requestID string) (domain.RepairRequest, error) {
			return domain.RepairRequest{ID: requestID, Status: domain.RepairStatusDiagnosing}, nil
		},
		updateStatusFunc: func(_ context.Context, requestID string, status domain.RepairRequestStatus, updatedAt time.Time) (domain.RepairRequest, error) {
			return domain.RepairRequest{ID: requestID, Status: status, UpdatedAt: updatedAt}, nil
		},
	}
	svc := newTestRepairService(t, repo)

	updated, err := svc.UpdateStatus(context.Background(), "r-1", domain.RepairStatusRepairing)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if updated.Status != domain.RepairStatusRepairing {
		t.Fatalf("expected repairing status, got %q", updated.Status)
	}
}

func TestUpdateStatusRejectsBackwardTransition(t *testing.T) {
	repo := &stubRepairRepository{
		findFunc: func(_ context.Context, requestID string) (domain.RepairRequest, error) {
			return domain.RepairRequest{ID: requestID, Status: domain.RepairStatusCompleted}, nil
		},
	}
	svc := newTestRepairService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), "r-1", domain.RepairStatusDiagnosing)
	if !errors.Is(err, ErrRepairInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestRepairService(t, &stubRepairRepository{})

	_, err := svc.UpdateStatus(context.Background(), "r-1", domain.RepairRequestStatus("lost"))
	if !errors.Is(err, ErrRepairInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestRepairListPropagatesUnavailable(t *testing.T) {
	repo := &stubRepairRepository{
		listFunc: func(context.Context, repositories.RepairRequestFilter) (domain.CursorPage[domain.RepairRequest], error) {
			return domain.CursorPage[domain.RepairRequest]{}, repositoryErrorStub{unavailable: true}
		},
	}
	svc := newTestRepairService(t, repo)

	_, err := svc.List(context.Background(), RepairListQuery{})
	if !errors.Is(err, ErrRepairUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

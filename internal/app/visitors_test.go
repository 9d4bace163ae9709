package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
)

type visitorRepoStub struct {
	store.Repository

	visitor *domain.Visitor

	created       *domain.Visitor
	scans         []domain.ScanRecord
	statusUpdates []domain.VisitorStatus
}

func (s *visitorRepoStub) CreateVisitor(ctx context.Context, visitor *domain.Visitor) error {
	s.created = visitor
	return nil
}

func (s *visitorRepoStub) FindVisitorByID(ctx context.Context, visitorID uuid.UUID) (*domain.Visitor, error) {
	if s.visitor == nil {
		return nil, store.ErrVisitorNotFound
	}
	return s.visitor, nil
}

func (s *visitorRepoStub) FindVisitorByQRPayload(ctx context.Context, payload string) (*domain.Visitor, error) {
	if s.visitor == nil || s.visitor.QRPayload != payload {
		return nil, store.ErrVisitorNotFound
	}
	return s.visitor, nil
}

func (s *visitorRepoStub) CreateScanRecord(ctx context.Context, rec *domain.ScanRecord) error {
	s.scans = append(s.scans, *rec)
	return nil
}

func (s *visitorRepoStub) UpdateVisitorStatus(ctx context.Context, visitorID uuid.UUID, status domain.VisitorStatus) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func visitorDraft() domain.VisitorDraft {
	return domain.VisitorDraft{
		HostUserID:  uuid.New(),
		Name:        "Juan Pérez",
		Phone:       "5512345678",
		VisitDate:   "2026-07-04",
		EntryTime:   "18:30",
		Destination: "Calle Roble 42",
		Companions:  2,
	}
}

func TestRegisterVisitor_BuildsQRPayload(t *testing.T) {
	repo := &visitorRepoStub{}
	svc := NewVisitorService(repo, nil, nil)

	visitor, err := svc.RegisterVisitor(context.Background(), visitorDraft())
	if err != nil {
		t.Fatalf("RegisterVisitor returned error: %v", err)
	}
	if visitor.Status != domain.VisitorStatusPending {
		t.Fatalf("new pass must start pending, got %s", visitor.Status)
	}
	if !strings.Contains(visitor.QRPayload, "NOMBRE: Juan Pérez") {
		t.Fatalf("unexpected payload: %q", visitor.QRPayload)
	}
	if !strings.Contains(visitor.QRPayload, "ACOMPAÑANTES: 2") {
		t.Fatalf("companions missing from payload: %q", visitor.QRPayload)
	}
}

func TestRegisterVisitor_NoCompanionsLineWhenAlone(t *testing.T) {
	draft := visitorDraft()
	draft.Companions = 0
	repo := &visitorRepoStub{}
	svc := NewVisitorService(repo, nil, nil)

	visitor, err := svc.RegisterVisitor(context.Background(), draft)
	if err != nil {
		t.Fatalf("RegisterVisitor returned error: %v", err)
	}
	if strings.Contains(visitor.QRPayload, "ACOMPAÑANTES") {
		t.Fatalf("payload must omit companions line: %q", visitor.QRPayload)
	}
}

func TestRegisterVisitor_RejectsBadDate(t *testing.T) {
	draft := visitorDraft()
	draft.VisitDate = "04/07/2026"

	svc := NewVisitorService(&visitorRepoStub{}, nil, nil)
	if _, err := svc.RegisterVisitor(context.Background(), draft); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveScan_ApprovesAndRecords(t *testing.T) {
	now := time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC)
	repo := &visitorRepoStub{visitor: &domain.Visitor{
		ID:         uuid.New(),
		HostUserID: uuid.New(),
		QRPayload:  "NOMBRE: Juan Pérez",
		Status:     domain.VisitorStatusPending,
	}}
	svc := NewVisitorService(repo, nil, fixedClock(now))

	guardID := uuid.New()
	visitor, err := svc.ResolveScan(context.Background(), repo.visitor.QRPayload, guardID, domain.VisitorStatusApproved)
	if err != nil {
		t.Fatalf("ResolveScan returned error: %v", err)
	}
	if visitor.Status != domain.VisitorStatusApproved {
		t.Fatalf("expected approved, got %s", visitor.Status)
	}
	if len(repo.scans) != 1 || repo.scans[0].GuardID != guardID {
		t.Fatalf("expected scan record for guard, got %v", repo.scans)
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != domain.VisitorStatusApproved {
		t.Fatalf("expected status update, got %v", repo.statusUpdates)
	}
}

func TestResolveScan_UnknownPayloadNotFound(t *testing.T) {
	svc := NewVisitorService(&visitorRepoStub{}, nil, nil)
	_, err := svc.ResolveScan(context.Background(), "garbage", uuid.New(), domain.VisitorStatusApproved)
	if !errors.Is(err, store.ErrVisitorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveScan_RejectsCompletedDecision(t *testing.T) {
	svc := NewVisitorService(&visitorRepoStub{}, nil, nil)
	_, err := svc.ResolveScan(context.Background(), "x", uuid.New(), domain.VisitorStatusCompleted)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveScan_ResolvedPassRejected(t *testing.T) {
	repo := &visitorRepoStub{visitor: &domain.Visitor{
		ID:        uuid.New(),
		QRPayload: "payload",
		Status:    domain.VisitorStatusDenied,
	}}
	svc := NewVisitorService(repo, nil, nil)

	_, err := svc.ResolveScan(context.Background(), "payload", uuid.New(), domain.VisitorStatusApproved)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestCompleteVisit_OnlyApprovedPasses(t *testing.T) {
	repo := &visitorRepoStub{visitor: &domain.Visitor{
		ID:     uuid.New(),
		Status: domain.VisitorStatusPending,
	}}
	svc := NewVisitorService(repo, nil, nil)

	if err := svc.CompleteVisit(context.Background(), repo.visitor.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}

	repo.visitor.Status = domain.VisitorStatusApproved
	if err := svc.CompleteVisit(context.Background(), repo.visitor.ID); err != nil {
		t.Fatalf("CompleteVisit returned error: %v", err)
	}
	if repo.statusUpdates[len(repo.statusUpdates)-1] != domain.VisitorStatusCompleted {
		t.Fatal("expected completion status update")
	}
}

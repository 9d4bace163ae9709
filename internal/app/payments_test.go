package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
)

type paymentRepoStub struct {
	store.Repository

	settings *domain.MaintenanceSettings
	payment  *domain.MaintenancePayment

	hasCompleted  bool
	settledMonths []store.MonthKey
	monthPayments []domain.MaintenancePayment
	fines         []domain.Fine
	agreements    []domain.PaymentAgreement

	createCalls     int
	createErrs      []error
	createdPayments []domain.MaintenancePayment

	statusUpdate       *domain.PaymentUpdate
	finesSettled       []uuid.UUID
	agreementsDisabled []uuid.UUID
}

func (s *paymentRepoStub) GetMaintenanceSettings(ctx context.Context) (*domain.MaintenanceSettings, error) {
	if s.settings == nil {
		return nil, store.ErrSettingsNotFound
	}
	return s.settings, nil
}

func (s *paymentRepoStub) HasCompletedPayment(ctx context.Context, userID uuid.UUID, month, year int) (bool, error) {
	return s.hasCompleted, nil
}

func (s *paymentRepoStub) FindSettledMonths(ctx context.Context, userID uuid.UUID, from store.MonthKey) ([]store.MonthKey, error) {
	return s.settledMonths, nil
}

func (s *paymentRepoStub) FindUnsettledFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error) {
	return s.fines, nil
}

func (s *paymentRepoStub) FindActiveAgreementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentAgreement, error) {
	return s.agreements, nil
}

func (s *paymentRepoStub) CreatePayment(ctx context.Context, payment *domain.MaintenancePayment) error {
	call := s.createCalls
	s.createCalls++
	s.createdPayments = append(s.createdPayments, *payment)
	if call < len(s.createErrs) {
		return s.createErrs[call]
	}
	return nil
}

func (s *paymentRepoStub) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.MaintenancePayment, error) {
	if s.payment == nil {
		return nil, store.ErrPaymentNotFound
	}
	return s.payment, nil
}

func (s *paymentRepoStub) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate, updatedAt time.Time) error {
	s.statusUpdate = &update
	if update.Status != nil && s.payment != nil {
		s.payment.Status = *update.Status
	}
	return nil
}

func (s *paymentRepoStub) MarkFinePaid(ctx context.Context, fineID uuid.UUID, paymentID uuid.UUID, paidAt time.Time) error {
	s.finesSettled = append(s.finesSettled, fineID)
	return nil
}

func (s *paymentRepoStub) DeactivateAgreement(ctx context.Context, agreementID uuid.UUID) error {
	s.agreementsDisabled = append(s.agreementsDisabled, agreementID)
	return nil
}

func maintenanceDraft(amount int64, method domain.PaymentMethod) domain.PaymentDraft {
	maintenance := amount
	return domain.PaymentDraft{
		UserID:        uuid.New(),
		UserName:      "María López",
		Amount:        amount,
		PaymentMethod: method,
		Month:         4,
		Year:          2026,
		Breakdown:     &domain.PaymentBreakdown{Maintenance: &maintenance},
	}
}

func TestAddPayment_TransferStartsPending(t *testing.T) {
	repo := &paymentRepoStub{}
	svc := NewPaymentService(repo, nil, nil)

	payment, err := svc.AddPayment(context.Background(), maintenanceDraft(150000, domain.PaymentMethodTransfer))
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Fatalf("transfer payments must start pending, got %s", payment.Status)
	}
	if payment.TrackingKey == "" {
		t.Fatal("expected a tracking key")
	}
	if len(repo.finesSettled) != 0 {
		t.Fatal("pending payment must not settle fines")
	}
}

func TestAddPayment_CardCompletesImmediatelyAndSettles(t *testing.T) {
	fineID := uuid.New()
	maintenance := int64(150000)
	draft := domain.PaymentDraft{
		UserID:        uuid.New(),
		Amount:        200000,
		PaymentMethod: domain.PaymentMethodCreditCard,
		Month:         4,
		Year:          2026,
		Breakdown: &domain.PaymentBreakdown{
			Maintenance: &maintenance,
			Fines:       []domain.BreakdownFine{{FineID: fineID, Amount: 50000}},
		},
	}

	repo := &paymentRepoStub{}
	svc := NewPaymentService(repo, nil, nil)

	payment, err := svc.AddPayment(context.Background(), draft)
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("card payments must complete immediately, got %s", payment.Status)
	}
	if len(repo.finesSettled) != 1 || repo.finesSettled[0] != fineID {
		t.Fatalf("expected fine %s settled, got %v", fineID, repo.finesSettled)
	}
}

func TestAddPayment_BreakdownMismatchRejected(t *testing.T) {
	draft := maintenanceDraft(150000, domain.PaymentMethodTransfer)
	draft.Amount = 999999

	repo := &paymentRepoStub{}
	svc := NewPaymentService(repo, nil, nil)

	_, err := svc.AddPayment(context.Background(), draft)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatal("mismatched payment must not be persisted")
	}
}

func TestAddPayment_MissingBreakdownRejected(t *testing.T) {
	draft := maintenanceDraft(150000, domain.PaymentMethodTransfer)
	draft.Breakdown = nil

	svc := NewPaymentService(&paymentRepoStub{}, nil, nil)
	if _, err := svc.AddPayment(context.Background(), draft); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddPayment_RetriesOnceOnTrackingKeyCollision(t *testing.T) {
	repo := &paymentRepoStub{createErrs: []error{store.ErrDuplicateTrackingKey}}
	svc := NewPaymentService(repo, nil, nil)

	payment, err := svc.AddPayment(context.Background(), maintenanceDraft(150000, domain.PaymentMethodTransfer))
	if err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if repo.createCalls != 2 {
		t.Fatalf("expected one retry, got %d create calls", repo.createCalls)
	}
	if repo.createdPayments[0].TrackingKey == repo.createdPayments[1].TrackingKey {
		t.Fatal("retry must use a fresh tracking key")
	}
	if payment.TrackingKey != repo.createdPayments[1].TrackingKey {
		t.Fatal("returned payment must carry the persisted key")
	}
}

func TestAddPayment_SecondCollisionSurfaces(t *testing.T) {
	repo := &paymentRepoStub{createErrs: []error{store.ErrDuplicateTrackingKey, store.ErrDuplicateTrackingKey}}
	svc := NewPaymentService(repo, nil, nil)

	_, err := svc.AddPayment(context.Background(), maintenanceDraft(150000, domain.PaymentMethodTransfer))
	if !errors.Is(err, store.ErrDuplicateTrackingKey) {
		t.Fatalf("expected duplicate key error after the retry, got %v", err)
	}
}

func TestAddPayment_DuplicateMonthSurfacesConflict(t *testing.T) {
	repo := &paymentRepoStub{createErrs: []error{store.ErrDuplicatePayment}}
	svc := NewPaymentService(repo, nil, nil)

	_, err := svc.AddPayment(context.Background(), maintenanceDraft(150000, domain.PaymentMethodCreditCard))
	if !errors.Is(err, store.ErrDuplicatePayment) {
		t.Fatalf("expected duplicate payment error, got %v", err)
	}
}

func TestUpdatePayment_CompletingSettlesBreakdown(t *testing.T) {
	fineID := uuid.New()
	agreementID := uuid.New()
	maintenance := int64(150000)

	repo := &paymentRepoStub{payment: &domain.MaintenancePayment{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: domain.PaymentStatusPending,
		Amount: 275000,
		Breakdown: &domain.PaymentBreakdown{
			Maintenance: &maintenance,
			Fines:       []domain.BreakdownFine{{FineID: fineID, Amount: 50000}},
			Agreements:  []domain.BreakdownAgreement{{AgreementID: agreementID, Amount: 75000}},
		},
	}}
	svc := NewPaymentService(repo, nil, nil)

	completed := domain.PaymentStatusCompleted
	payment, err := svc.UpdatePayment(context.Background(), repo.payment.ID, domain.PaymentUpdate{Status: &completed, UpdatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("UpdatePayment returned error: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %s", payment.Status)
	}
	if len(repo.finesSettled) != 1 || repo.finesSettled[0] != fineID {
		t.Fatalf("expected fine settlement cascade, got %v", repo.finesSettled)
	}
	if len(repo.agreementsDisabled) != 1 || repo.agreementsDisabled[0] != agreementID {
		t.Fatalf("expected agreement deactivation, got %v", repo.agreementsDisabled)
	}
}

func TestUpdatePayment_CompletedPaymentImmutable(t *testing.T) {
	repo := &paymentRepoStub{payment: &domain.MaintenancePayment{
		ID:     uuid.New(),
		Status: domain.PaymentStatusCompleted,
	}}
	svc := NewPaymentService(repo, nil, nil)

	rejected := domain.PaymentStatusRejected
	_, err := svc.UpdatePayment(context.Background(), repo.payment.ID, domain.PaymentUpdate{Status: &rejected})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if repo.statusUpdate != nil {
		t.Fatal("completed payment must not be updated")
	}
}

func TestUpdatePayment_PendingIsNotATarget(t *testing.T) {
	repo := &paymentRepoStub{payment: &domain.MaintenancePayment{
		ID:     uuid.New(),
		Status: domain.PaymentStatusPending,
	}}
	svc := NewPaymentService(repo, nil, nil)

	pending := domain.PaymentStatusPending
	_, err := svc.UpdatePayment(context.Background(), repo.payment.ID, domain.PaymentUpdate{Status: &pending})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestIsLate_BeforeDueDayNotLate(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	repo := &paymentRepoStub{settings: &domain.MaintenanceSettings{Price: 150000, DueDay: 10, LateFee: 10000}}
	svc := NewPaymentService(repo, nil, fixedClock(now))

	late, err := svc.IsLate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsLate returned error: %v", err)
	}
	if late {
		t.Fatal("on the due day the resident is not late yet")
	}
}

func TestIsLate_AfterDueDayWithoutPaymentIsLate(t *testing.T) {
	now := time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC)
	repo := &paymentRepoStub{settings: &domain.MaintenanceSettings{Price: 150000, DueDay: 10, LateFee: 10000}}
	svc := NewPaymentService(repo, nil, fixedClock(now))

	late, err := svc.IsLate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsLate returned error: %v", err)
	}
	if !late {
		t.Fatal("past the due day without a completed payment is late")
	}
}

func TestIsLate_CoveredMonthNeverLate(t *testing.T) {
	now := time.Date(2026, 4, 25, 9, 0, 0, 0, time.UTC)
	repo := &paymentRepoStub{
		settings:     &domain.MaintenanceSettings{Price: 150000, DueDay: 10, LateFee: 10000},
		hasCompleted: true,
	}
	svc := NewPaymentService(repo, nil, fixedClock(now))

	late, err := svc.IsLate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsLate returned error: %v", err)
	}
	if late {
		t.Fatal("a covered month is never late")
	}
}

func (s *paymentRepoStub) FindPaymentsByMonth(ctx context.Context, month, year int) ([]domain.MaintenancePayment, error) {
	var out []domain.MaintenancePayment
	for _, p := range s.monthPayments {
		if p.Month == month && p.Year == year {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestCategorizedTotals_NoBreakdownCountsAsMaintenance(t *testing.T) {
	maintenance := int64(150000)
	repo := &paymentRepoStub{monthPayments: []domain.MaintenancePayment{
		{Month: 4, Year: 2026, Status: domain.PaymentStatusCompleted, Amount: 150000},
		{Month: 4, Year: 2026, Status: domain.PaymentStatusCompleted, Amount: 160000, Breakdown: &domain.PaymentBreakdown{
			Maintenance: &maintenance,
			Surcharges:  func() *int64 { v := int64(10000); return &v }(),
		}},
		{Month: 4, Year: 2026, Status: domain.PaymentStatusPending, Amount: 999999},
	}}
	svc := NewPaymentService(repo, nil, nil)

	totals, err := svc.CategorizedTotalsByMonth(context.Background(), 4, 2026)
	if err != nil {
		t.Fatalf("CategorizedTotalsByMonth returned error: %v", err)
	}
	if totals.Maintenance != 300000 {
		t.Fatalf("expected maintenance 300000, got %d", totals.Maintenance)
	}
	if totals.Surcharges != 10000 {
		t.Fatalf("expected surcharges 10000, got %d", totals.Surcharges)
	}
	if totals.Sum() != 310000 {
		t.Fatalf("pending payments must not count, got sum %d", totals.Sum())
	}
}

func TestCategorizedTotalsByRange_WalksMonths(t *testing.T) {
	repo := &paymentRepoStub{monthPayments: []domain.MaintenancePayment{
		{Month: 12, Year: 2026, Status: domain.PaymentStatusCompleted, Amount: 150000},
		{Month: 1, Year: 2027, Status: domain.PaymentStatusCompleted, Amount: 150000},
	}}
	svc := NewPaymentService(repo, nil, nil)

	totals, err := svc.CategorizedTotalsByRange(context.Background(),
		store.MonthKey{Month: 12, Year: 2026}, store.MonthKey{Month: 1, Year: 2027})
	if err != nil {
		t.Fatalf("CategorizedTotalsByRange returned error: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected two months, got %d", len(totals))
	}
	if totals["2026-12"].Maintenance != 150000 || totals["2027-01"].Maintenance != 150000 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestCategorizedTotalsByRange_RejectsInvertedRange(t *testing.T) {
	svc := NewPaymentService(&paymentRepoStub{}, nil, nil)
	_, err := svc.CategorizedTotalsByRange(context.Background(),
		store.MonthKey{Month: 5, Year: 2027}, store.MonthKey{Month: 4, Year: 2027})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteBreakdown_UsesLiveLedger(t *testing.T) {
	now := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	fine := domain.Fine{
		ID:      uuid.New(),
		Amount:  30000,
		LateFee: 5000,
		Status:  domain.FineStatusOverdue,
		DueDate: now.AddDate(0, 0, -5),
	}
	repo := &paymentRepoStub{
		settings: &domain.MaintenanceSettings{Price: 150000, DueDay: 10, LateFee: 10000},
		fines:    []domain.Fine{fine},
	}
	svc := NewPaymentService(repo, nil, fixedClock(now))

	quote, err := svc.QuoteBreakdown(context.Background(), uuid.New(), "42", BreakdownSelection{
		Maintenance: true,
		FineIDs:     []uuid.UUID{fine.ID},
	})
	if err != nil {
		t.Fatalf("QuoteBreakdown returned error: %v", err)
	}
	if !quote.IsLate {
		t.Fatal("expected late quote past due day")
	}
	// maintenance + surcharge + fine with its late fee
	if want := int64(150000 + 10000 + 35000); quote.Total != want {
		t.Fatalf("expected total %d, got %d", want, quote.Total)
	}
	if quote.Reference == "" {
		t.Fatal("expected a reference on the quote")
	}
}

/**
 * @description
 * This file contains the payment service: recording maintenance payments,
 * quoting breakdowns, settling fines and agreements when a payment completes,
 * and the per-month category totals the admin dashboard shows.
 *
 * Key features:
 * - AddPayment refuses any payment whose breakdown does not sum to the
 *   stated amount, generates the tracking key, and retries exactly once
 *   when the key collides on the unique index.
 * - UpdatePayment enforces the status machine (pending payments move to
 *   completed or rejected, nothing else) and, on completion, cascades
 *   settlement into the fine ledger and the agreement table.
 * - QuoteBreakdown assembles a BreakdownContext from live data so the
 *   resident-facing form and the final submission use identical arithmetic.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Notice events on settlement and rejection.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
	"github.com/arcos/community-service/pkg/rabbitmq"
)

// PaymentService owns maintenance payment records and their settlement.
type PaymentService struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	now      func() time.Time
}

// NewPaymentService creates a new payment service with an injectable clock.
func NewPaymentService(repo store.Repository, producer rabbitmq.Publisher, now func() time.Time) *PaymentService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PaymentService{repo: repo, producer: producer, now: now}
}

// IsLate reports whether paying the current month today incurs the late
// surcharge: the due day has passed and no completed payment covers the
// current month yet.
func (s *PaymentService) IsLate(ctx context.Context, userID uuid.UUID) (bool, error) {
	settings, err := s.repo.GetMaintenanceSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load maintenance settings: %w", err)
	}

	now := s.now()
	if now.Day() <= settings.DueDay {
		return false, nil
	}

	covered, err := s.repo.HasCompletedPayment(ctx, userID, int(now.Month()), now.Year())
	if err != nil {
		return false, fmt.Errorf("failed to check current month coverage: %w", err)
	}
	return !covered, nil
}

// BuildBreakdownContext assembles everything ComputeBreakdown needs for one
// resident: current pricing, lateness, unsettled fines and agreements, and
// the future months already paid in advance.
func (s *PaymentService) BuildBreakdownContext(ctx context.Context, userID uuid.UUID) (BreakdownContext, error) {
	settings, err := s.repo.GetMaintenanceSettings(ctx)
	if err != nil {
		return BreakdownContext{}, fmt.Errorf("failed to load maintenance settings: %w", err)
	}

	isLate, err := s.IsLate(ctx, userID)
	if err != nil {
		return BreakdownContext{}, err
	}

	fines, err := s.repo.FindUnsettledFinesByUser(ctx, userID)
	if err != nil {
		return BreakdownContext{}, fmt.Errorf("failed to load unsettled fines: %w", err)
	}

	agreements, err := s.repo.FindActiveAgreementsByUser(ctx, userID)
	if err != nil {
		return BreakdownContext{}, fmt.Errorf("failed to load payment agreements: %w", err)
	}

	now := s.now()
	from := store.MonthKey{Month: int(now.Month()), Year: now.Year()}
	settled, err := s.repo.FindSettledMonths(ctx, userID, from)
	if err != nil {
		return BreakdownContext{}, fmt.Errorf("failed to load settled months: %w", err)
	}

	return BreakdownContext{
		MaintenancePrice: settings.Price,
		LateFee:          settings.LateFee,
		IsLate:           isLate,
		Now:              now,
		PendingFines:     fines,
		Agreements:       agreements,
		SettledMonths:    settled,
	}, nil
}

// Quote is a priced breakdown plus the reference the resident should put on
// their transfer.
type Quote struct {
	Breakdown domain.PaymentBreakdown `json:"breakdown"`
	Total     int64                   `json:"total"`
	Reference string                  `json:"reference"`
	IsLate    bool                    `json:"is_late"`
}

// QuoteBreakdown prices a selection for a resident without persisting
// anything. The resident form calls this on every toggle.
func (s *PaymentService) QuoteBreakdown(ctx context.Context, userID uuid.UUID, houseNumber string, sel BreakdownSelection) (*Quote, error) {
	bctx, err := s.BuildBreakdownContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	breakdown, total, err := ComputeBreakdown(sel, bctx)
	if err != nil {
		return nil, err
	}

	reference, err := GenerateReference(houseNumber, FlagsForSelection(sel))
	if err != nil {
		return nil, err
	}

	return &Quote{
		Breakdown: breakdown,
		Total:     total,
		Reference: reference,
		IsLate:    bctx.IsLate,
	}, nil
}

// AddPayment records a payment. Card payments complete immediately; bank
// transfers stay pending until an administrator verifies the deposit.
func (s *PaymentService) AddPayment(ctx context.Context, draft domain.PaymentDraft) (*domain.MaintenancePayment, error) {
	if draft.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if draft.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if draft.Month < 1 || draft.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	switch draft.PaymentMethod {
	case domain.PaymentMethodTransfer, domain.PaymentMethodCreditCard:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, draft.PaymentMethod)
	}
	if draft.Breakdown.Empty() {
		return nil, fmt.Errorf("%w: payment breakdown is required", ErrValidation)
	}
	if got := draft.Breakdown.Total(); got != draft.Amount {
		return nil, fmt.Errorf("%w: breakdown sums to %d, payment amount is %d", ErrInvariantViolation, got, draft.Amount)
	}

	status := domain.PaymentStatusPending
	if draft.PaymentMethod == domain.PaymentMethodCreditCard {
		status = domain.PaymentStatusCompleted
	}

	residentStatus := draft.ResidentStatus
	if residentStatus == "" {
		residentStatus = domain.ResidentStatusOrdinario
	}

	now := s.now()
	payment := &domain.MaintenancePayment{
		ID:             uuid.New(),
		UserID:         draft.UserID,
		UserName:       draft.UserName,
		ResidentInfo:   draft.ResidentInfo,
		Amount:         draft.Amount,
		PaymentDate:    now,
		PaymentMethod:  draft.PaymentMethod,
		Status:         status,
		Month:          draft.Month,
		Year:           draft.Year,
		Notes:          draft.Notes,
		Comments:       draft.Comments,
		Breakdown:      draft.Breakdown,
		ResidentStatus: residentStatus,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// One retry on tracking key collision; the window is a shared
	// millisecond plus identical random tails, so a second key is enough.
	for attempt := 0; attempt < 2; attempt++ {
		key, err := GenerateTrackingKey(s.now())
		if err != nil {
			return nil, err
		}
		payment.TrackingKey = key

		err = s.repo.CreatePayment(ctx, payment)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicateTrackingKey) && attempt == 0 {
			log.Printf("level=warn component=payment_service msg=\"tracking key collision, retrying\" key=%s", key)
			continue
		}
		return nil, err
	}

	log.Printf("level=info component=payment_service msg=\"payment recorded\" payment_id=%s user_id=%s method=%s status=%s amount=%d",
		payment.ID, payment.UserID, payment.PaymentMethod, payment.Status, payment.Amount)

	if payment.Status == domain.PaymentStatusCompleted {
		s.settle(ctx, payment)
	}

	return payment, nil
}

// UpdatePayment applies an administrative correction. A status change is
// only legal from pending; completion cascades settlement.
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate) (*domain.MaintenancePayment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		next := *update.Status
		if payment.Status != domain.PaymentStatusPending {
			return nil, fmt.Errorf("%w: payment is %s, only pending payments can change status", ErrInvalidState, payment.Status)
		}
		if next != domain.PaymentStatusCompleted && next != domain.PaymentStatusRejected {
			return nil, fmt.Errorf("%w: pending payments move to completed or rejected, not %s", ErrInvalidState, next)
		}
	}

	now := s.now()
	if err := s.repo.UpdatePaymentStatus(ctx, paymentID, update, now); err != nil {
		return nil, err
	}

	payment, err = s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		switch *update.Status {
		case domain.PaymentStatusCompleted:
			s.settle(ctx, payment)
		case domain.PaymentStatusRejected:
			s.publishNotice(ctx, rabbitmq.NoticeEvent{
				Type:      rabbitmq.NoticePaymentRejected,
				Title:     "Pago rechazado",
				Body:      payment.Comments,
				UserID:    &payment.UserID,
				RelatedID: &payment.ID,
				Timestamp: now,
			})
		}
	}

	return payment, nil
}

// settle marks the fines and agreements itemized in the breakdown as covered
// by this payment. Settlement failures are logged, not returned: the payment
// is already completed and an administrator can reconcile the ledger by hand.
func (s *PaymentService) settle(ctx context.Context, payment *domain.MaintenancePayment) {
	if payment.Breakdown == nil {
		return
	}
	now := s.now()

	for _, item := range payment.Breakdown.Fines {
		if err := s.repo.MarkFinePaid(ctx, item.FineID, payment.ID, now); err != nil {
			log.Printf("level=error component=payment_service msg=\"failed to settle fine\" fine_id=%s payment_id=%s error=%v",
				item.FineID, payment.ID, err)
		}
	}
	for _, item := range payment.Breakdown.Agreements {
		if err := s.repo.DeactivateAgreement(ctx, item.AgreementID); err != nil {
			log.Printf("level=error component=payment_service msg=\"failed to deactivate agreement\" agreement_id=%s payment_id=%s error=%v",
				item.AgreementID, payment.ID, err)
		}
	}

	s.publishNotice(ctx, rabbitmq.NoticeEvent{
		Type:      rabbitmq.NoticePaymentSettled,
		Title:     "Pago confirmado",
		UserID:    &payment.UserID,
		RelatedID: &payment.ID,
		Timestamp: now,
	})
}

func (s *PaymentService) publishNotice(ctx context.Context, event rabbitmq.NoticeEvent) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishNotice(ctx, event); err != nil {
		log.Printf("level=error component=payment_service msg=\"failed to publish notice\" type=%s error=%v", event.Type, err)
	}
}

// GetPaymentByID returns one payment.
func (s *PaymentService) GetPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.MaintenancePayment, error) {
	return s.repo.FindPaymentByID(ctx, paymentID)
}

// GetPaymentsByUser returns a resident's payment history, newest first.
func (s *PaymentService) GetPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.MaintenancePayment, error) {
	return s.repo.FindPaymentsByUser(ctx, userID)
}

// GetPaymentsByMonth returns every payment targeting the given month.
func (s *PaymentService) GetPaymentsByMonth(ctx context.Context, month, year int) ([]domain.MaintenancePayment, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	return s.repo.FindPaymentsByMonth(ctx, month, year)
}

// CategorizedTotalsByMonth sums completed payments for one month per
// breakdown category.
func (s *PaymentService) CategorizedTotalsByMonth(ctx context.Context, month, year int) (domain.CategoryTotals, error) {
	var totals domain.CategoryTotals
	if month < 1 || month > 12 {
		return totals, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}

	payments, err := s.repo.FindPaymentsByMonth(ctx, month, year)
	if err != nil {
		return totals, err
	}

	for i := range payments {
		p := &payments[i]
		if p.Status != domain.PaymentStatusCompleted {
			continue
		}
		// Legacy payments recorded without an itemization count fully as
		// maintenance.
		if p.Breakdown.Empty() {
			totals.Maintenance += p.Amount
			continue
		}
		b := p.Breakdown
		if b.Maintenance != nil {
			totals.Maintenance += *b.Maintenance
		}
		if b.Surcharges != nil {
			totals.Surcharges += *b.Surcharges
		}
		for _, m := range b.RecoveredPayments {
			totals.RecoveredPayments += m.Amount
		}
		for _, f := range b.Fines {
			totals.Fines += f.Amount
		}
		for _, a := range b.Agreements {
			totals.Agreements += a.Amount
		}
		for _, m := range b.AdvancePayments {
			totals.AdvancePayments += m.Amount
		}
		for _, e := range b.Events {
			totals.Events += e.Amount
		}
		for _, o := range b.Others {
			totals.Others += o.Amount
		}
	}

	return totals, nil
}

// CategorizedTotalsByRange sums completed payments per category across an
// inclusive month range, keyed "YYYY-MM".
func (s *PaymentService) CategorizedTotalsByRange(ctx context.Context, from, to store.MonthKey) (map[string]domain.CategoryTotals, error) {
	if from.Month < 1 || from.Month > 12 || to.Month < 1 || to.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	if from.Year > to.Year || (from.Year == to.Year && from.Month > to.Month) {
		return nil, fmt.Errorf("%w: range start must not follow range end", ErrValidation)
	}

	result := make(map[string]domain.CategoryTotals)
	month, year := from.Month, from.Year
	for {
		totals, err := s.CategorizedTotalsByMonth(ctx, month, year)
		if err != nil {
			return nil, err
		}
		result[fmt.Sprintf("%04d-%02d", year, month)] = totals

		if month == to.Month && year == to.Year {
			break
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return result, nil
}

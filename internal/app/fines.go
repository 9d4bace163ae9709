/**
 * @description
 * This file contains the fine ledger: the service owning fine records, their
 * status machine, and the time-driven overdue sweep. It is the single writer
 * for fine state; payment settlement flows through MarkFineAsPaid so a fine
 * always points at the payment that covered it.
 *
 * Key features:
 * - Validates drafts (non-negative amounts, due date not before creation).
 * - Enforces the status machine: paid and cancelled are terminal, overdue is
 *   only ever reached by the sweep.
 * - RefreshStatuses is idempotent; overlapping sweeps never double-apply.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For notice events.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
	"github.com/arcos/community-service/pkg/rabbitmq"
)

// FineService owns the fine ledger.
type FineService struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	now      func() time.Time
}

// NewFineService creates a new fine ledger service. The clock is injectable
// so due-date arithmetic stays deterministic under test.
func NewFineService(repo store.Repository, producer rabbitmq.Publisher, now func() time.Time) *FineService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FineService{repo: repo, producer: producer, now: now}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddFine creates a fine in status pending.
func (s *FineService) AddFine(ctx context.Context, draft domain.FineDraft) (uuid.UUID, error) {
	if draft.Amount < 0 {
		return uuid.Nil, fmt.Errorf("%w: fine amount must not be negative", ErrValidation)
	}
	if draft.LateFee < 0 {
		return uuid.Nil, fmt.Errorf("%w: late fee must not be negative", ErrValidation)
	}
	if draft.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	now := s.now()
	if draft.DueDate.Before(startOfDay(now)) {
		return uuid.Nil, fmt.Errorf("%w: due date must not precede the creation date", ErrValidation)
	}

	fine := &domain.Fine{
		ID:        uuid.New(),
		UserID:    draft.UserID,
		UserName:  draft.UserName,
		UserHouse: draft.UserHouse,
		Reason:    draft.Reason,
		Amount:    draft.Amount,
		Status:    domain.FineStatusPending,
		DueDate:   draft.DueDate,
		LateFee:   draft.LateFee,
		CreatedBy: draft.CreatedBy,
		CreatedAt: now,
	}
	if err := s.repo.CreateFine(ctx, fine); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create fine: %w", err)
	}
	return fine.ID, nil
}

// UpdateFine applies an administrative edit to a fine that is not terminal.
func (s *FineService) UpdateFine(ctx context.Context, fineID uuid.UUID, update domain.FineUpdate) error {
	fine, err := s.repo.FindFineByID(ctx, fineID)
	if err != nil {
		return err
	}
	if fine.Status.Terminal() {
		return fmt.Errorf("%w: fine %s is %s", ErrInvalidState, fineID, fine.Status)
	}
	if update.Amount != nil && *update.Amount < 0 {
		return fmt.Errorf("%w: fine amount must not be negative", ErrValidation)
	}
	if update.LateFee != nil && *update.LateFee < 0 {
		return fmt.Errorf("%w: late fee must not be negative", ErrValidation)
	}
	return s.repo.UpdateFineFields(ctx, fineID, update)
}

// MarkFineAsPaid settles a fine against the payment that covered it.
func (s *FineService) MarkFineAsPaid(ctx context.Context, fineID, paymentID uuid.UUID) error {
	fine, err := s.repo.FindFineByID(ctx, fineID)
	if err != nil {
		return err
	}
	if fine.Status.Terminal() {
		return fmt.Errorf("%w: fine %s is %s", ErrInvalidState, fineID, fine.Status)
	}
	return s.repo.MarkFinePaid(ctx, fineID, paymentID, s.now())
}

// CancelFine moves a pending or overdue fine to the cancelled terminal state.
func (s *FineService) CancelFine(ctx context.Context, fineID uuid.UUID) error {
	fine, err := s.repo.FindFineByID(ctx, fineID)
	if err != nil {
		return err
	}
	if fine.Status.Terminal() {
		return fmt.Errorf("%w: fine %s is %s", ErrInvalidState, fineID, fine.Status)
	}
	return s.repo.UpdateFineStatus(ctx, fineID, domain.FineStatusCancelled)
}

// DeleteFine hard-deletes a fine. Administrative override; settled fines are
// normally kept for the reconciliation trail.
func (s *FineService) DeleteFine(ctx context.Context, fineID uuid.UUID) error {
	return s.repo.DeleteFine(ctx, fineID)
}

// RefreshStatuses transitions every pending fine past its due date to
// overdue and returns how many fines changed. Calling it twice with the same
// clock value leaves the ledger unchanged the second time.
func (s *FineService) RefreshStatuses(ctx context.Context, now time.Time) (int64, error) {
	changed, err := s.repo.MarkOverdueFines(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep overdue fines: %w", err)
	}
	if changed > 0 && s.producer != nil {
		event := rabbitmq.NoticeEvent{
			Type:      rabbitmq.NoticeFinesOverdue,
			Title:     "Multas vencidas",
			Body:      fmt.Sprintf("%d multas pasaron a vencidas", changed),
			Timestamp: now,
		}
		if err := s.producer.PublishNotice(ctx, event); err != nil {
			log.Printf("level=warn component=fine_service msg=\"overdue notice publish failed\" err=%v", err)
		}
	}
	return changed, nil
}

// GetFinesByUser returns every fine for a resident.
func (s *FineService) GetFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error) {
	return s.repo.FindFinesByUser(ctx, userID)
}

// GetPendingFinesByUser returns the resident's unsettled fines annotated
// with the amount currently owed: base amount, plus late fee once overdue.
func (s *FineService) GetPendingFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.PendingFine, error) {
	fines, err := s.repo.FindUnsettledFinesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	pending := make([]domain.PendingFine, 0, len(fines))
	for _, f := range fines {
		pending = append(pending, domain.PendingFine{
			Fine:          f,
			Overdue:       f.IsOverdue(now),
			CurrentAmount: f.CurrentAmount(now),
		})
	}
	return pending, nil
}

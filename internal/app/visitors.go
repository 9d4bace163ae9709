/**
 * @description
 * This file contains the guest pass service: residents register visitors and
 * get a QR payload, guards scan the payload at the gate and resolve the pass
 * to approved or denied. Every scan is recorded for the entry history.
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Notice events when a pass is scanned.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
	"github.com/arcos/community-service/pkg/rabbitmq"
)

// VisitorService owns guest passes and the gate scan flow.
type VisitorService struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	now      func() time.Time
}

// NewVisitorService creates a guest pass service.
func NewVisitorService(repo store.Repository, producer rabbitmq.Publisher, now func() time.Time) *VisitorService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &VisitorService{repo: repo, producer: producer, now: now}
}

// RegisterVisitor creates a pending guest pass and its QR payload.
func (s *VisitorService) RegisterVisitor(ctx context.Context, draft domain.VisitorDraft) (*domain.Visitor, error) {
	if draft.HostUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: host user id is required", ErrValidation)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, fmt.Errorf("%w: visitor name is required", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", draft.VisitDate); err != nil {
		return nil, fmt.Errorf("%w: visit date must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := domain.ParseMinuteOfDay(draft.EntryTime); err != nil {
		return nil, fmt.Errorf("%w: entry time must be HH:MM", ErrValidation)
	}
	if draft.Companions < 0 {
		return nil, fmt.Errorf("%w: companions must not be negative", ErrValidation)
	}

	visitor := &domain.Visitor{
		ID:          uuid.New(),
		HostUserID:  draft.HostUserID,
		Name:        draft.Name,
		Phone:       draft.Phone,
		VisitDate:   draft.VisitDate,
		EntryTime:   draft.EntryTime,
		Destination: draft.Destination,
		Companions:  draft.Companions,
		QRPayload:   draft.QRPayload(),
		Status:      domain.VisitorStatusPending,
		CreatedAt:   s.now(),
	}

	if err := s.repo.CreateVisitor(ctx, visitor); err != nil {
		return nil, err
	}

	log.Printf("level=info component=visitor_service msg=\"guest pass registered\" visitor_id=%s host_id=%s date=%s",
		visitor.ID, visitor.HostUserID, visitor.VisitDate)
	return visitor, nil
}

// ListVisitorsByHost returns a resident's guest passes, newest first.
func (s *VisitorService) ListVisitorsByHost(ctx context.Context, hostUserID uuid.UUID) ([]domain.Visitor, error) {
	return s.repo.ListVisitorsByHost(ctx, hostUserID)
}

// ResolveScan looks up the pass a guard scanned, records the scan, applies
// the guard's decision, and notifies the host.
func (s *VisitorService) ResolveScan(ctx context.Context, payload string, guardID uuid.UUID, decision domain.VisitorStatus) (*domain.Visitor, error) {
	if decision != domain.VisitorStatusApproved && decision != domain.VisitorStatusDenied {
		return nil, fmt.Errorf("%w: a scan resolves to approved or denied, not %s", ErrValidation, decision)
	}

	visitor, err := s.repo.FindVisitorByQRPayload(ctx, payload)
	if err != nil {
		return nil, err
	}
	if visitor.Status == domain.VisitorStatusCompleted || visitor.Status == domain.VisitorStatusDenied {
		return nil, fmt.Errorf("%w: guest pass already resolved to %s", ErrInvalidState, visitor.Status)
	}

	now := s.now()
	rec := &domain.ScanRecord{
		ID:        uuid.New(),
		VisitorID: visitor.ID,
		GuardID:   guardID,
		Outcome:   decision,
		ScannedAt: now,
	}
	if err := s.repo.CreateScanRecord(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVisitorStatus(ctx, visitor.ID, decision); err != nil {
		return nil, err
	}
	visitor.Status = decision

	log.Printf("level=info component=visitor_service msg=\"guest pass scanned\" visitor_id=%s guard_id=%s outcome=%s",
		visitor.ID, guardID, decision)

	if s.producer != nil {
		event := rabbitmq.NoticeEvent{
			Type:      rabbitmq.NoticeGuestPassScanned,
			Title:     "Visitante en la entrada",
			Body:      visitor.Name,
			UserID:    &visitor.HostUserID,
			RelatedID: &visitor.ID,
			Timestamp: now,
		}
		if err := s.producer.PublishNotice(ctx, event); err != nil {
			log.Printf("level=error component=visitor_service msg=\"failed to publish notice\" type=%s error=%v", event.Type, err)
		}
	}

	return visitor, nil
}

// CompleteVisit marks an approved pass as completed when the guest leaves.
func (s *VisitorService) CompleteVisit(ctx context.Context, visitorID uuid.UUID) error {
	visitor, err := s.repo.FindVisitorByID(ctx, visitorID)
	if err != nil {
		return err
	}
	if visitor.Status != domain.VisitorStatusApproved {
		return fmt.Errorf("%w: only approved passes complete, pass is %s", ErrInvalidState, visitor.Status)
	}
	return s.repo.UpdateVisitorStatus(ctx, visitorID, domain.VisitorStatusCompleted)
}

// ScanHistory returns the most recent gate scans.
func (s *VisitorService) ScanHistory(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListScanHistory(ctx, limit)
}

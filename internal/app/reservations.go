/**
 * @description
 * This file contains the reservation service for common areas. The pure
 * availability check runs first against a snapshot; the store's
 * transactional insert then re-checks the overlap count under the area row
 * lock, so two racing requests for the last slot can never both succeed.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: Domain models and data access.
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
)

// ReservationService owns common areas and their bookings.
type ReservationService struct {
	repo          store.Repository
	retryAttempts int
	now           func() time.Time
}

// NewReservationService creates a reservation service. retryAttempts bounds
// how many times a booking is re-attempted after losing the slot race.
func NewReservationService(repo store.Repository, retryAttempts int, now func() time.Time) *ReservationService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ReservationService{repo: repo, retryAttempts: retryAttempts, now: now}
}

// ListAreas returns the bookable areas.
func (s *ReservationService) ListAreas(ctx context.Context, activeOnly bool) ([]domain.CommonArea, error) {
	return s.repo.ListCommonAreas(ctx, activeOnly)
}

// SaveArea creates or updates a common area definition.
func (s *ReservationService) SaveArea(ctx context.Context, area *domain.CommonArea) error {
	if area.Name == "" {
		return fmt.Errorf("%w: area name is required", ErrValidation)
	}
	if area.OpeningTime >= area.ClosingTime {
		return fmt.Errorf("%w: opening time must precede closing time", ErrValidation)
	}
	if area.MaxAdvanceDays < 0 {
		return fmt.Errorf("%w: max advance days must not be negative", ErrValidation)
	}
	if area.ID == uuid.Nil {
		area.ID = uuid.New()
	}
	return s.repo.SaveCommonArea(ctx, area)
}

// CheckAreaAvailability runs the availability check for a window on a date
// against the current reservation snapshot.
func (s *ReservationService) CheckAreaAvailability(ctx context.Context, areaID uuid.UUID, date time.Time, start, end domain.MinuteOfDay) (Availability, error) {
	area, err := s.repo.FindAreaByID(ctx, areaID)
	if err != nil {
		return Availability{}, err
	}
	if !area.Active {
		return Availability{}, fmt.Errorf("%w: area %s is not bookable", ErrInvalidState, area.Name)
	}

	existing, err := s.repo.FindActiveReservations(ctx, areaID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("failed to load reservations: %w", err)
	}

	return CheckAvailability(area, date, start, end, s.now(), existing), nil
}

// CreateReservation books an area. The snapshot check gives the caller a
// precise rejection reason; the transactional insert is what actually
// guarantees the slot.
func (s *ReservationService) CreateReservation(ctx context.Context, draft domain.ReservationDraft) (*domain.Reservation, Availability, error) {
	if draft.UserID == uuid.Nil {
		return nil, Availability{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	area, err := s.repo.FindAreaByID(ctx, draft.AreaID)
	if err != nil {
		return nil, Availability{}, err
	}
	if !area.Active {
		return nil, Availability{}, fmt.Errorf("%w: area %s is not bookable", ErrInvalidState, area.Name)
	}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		existing, err := s.repo.FindActiveReservations(ctx, draft.AreaID, draft.Date)
		if err != nil {
			return nil, Availability{}, fmt.Errorf("failed to load reservations: %w", err)
		}

		avail := CheckAvailability(area, draft.Date, draft.StartTime, draft.EndTime, s.now(), existing)
		if !avail.Available {
			return nil, avail, nil
		}

		res := &domain.Reservation{
			ID:        uuid.New(),
			AreaID:    draft.AreaID,
			UserID:    draft.UserID,
			Date:      startOfDay(draft.Date),
			StartTime: draft.StartTime,
			EndTime:   draft.EndTime,
			Status:    domain.ReservationStatusConfirmed,
			CreatedAt: s.now(),
		}

		err = s.repo.CreateReservationIfAvailable(ctx, res, area.SlotCapacity())
		if err == nil {
			log.Printf("level=info component=reservation_service msg=\"reservation created\" reservation_id=%s area_id=%s user_id=%s date=%s window=%s-%s",
				res.ID, res.AreaID, res.UserID, res.Date.Format("2006-01-02"), res.StartTime, res.EndTime)
			return res, available(), nil
		}
		if errors.Is(err, store.ErrSlotTaken) {
			// Lost the race; re-read and either report Full or retry.
			continue
		}
		return nil, Availability{}, err
	}

	return nil, unavailable(ReasonFull), nil
}

// GetReservationsByUser returns a resident's bookings, newest first.
func (s *ReservationService) GetReservationsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	return s.repo.FindReservationsByUser(ctx, userID)
}

// CancelReservation cancels a booking owned by the caller.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, userID uuid.UUID) error {
	return s.repo.CancelReservation(ctx, reservationID, userID)
}

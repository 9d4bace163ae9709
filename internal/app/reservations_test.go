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

type reservationRepoStub struct {
	store.Repository

	area         *domain.CommonArea
	reservations []domain.Reservation

	insertErrs  []error
	insertCalls int
	inserted    []domain.Reservation
}

func (s *reservationRepoStub) FindAreaByID(ctx context.Context, areaID uuid.UUID) (*domain.CommonArea, error) {
	if s.area == nil {
		return nil, store.ErrAreaNotFound
	}
	return s.area, nil
}

func (s *reservationRepoStub) FindActiveReservations(ctx context.Context, areaID uuid.UUID, date time.Time) ([]domain.Reservation, error) {
	return s.reservations, nil
}

func (s *reservationRepoStub) CreateReservationIfAvailable(ctx context.Context, res *domain.Reservation, slotCapacity int) error {
	call := s.insertCalls
	s.insertCalls++
	if call < len(s.insertErrs) && s.insertErrs[call] != nil {
		return s.insertErrs[call]
	}
	s.inserted = append(s.inserted, *res)
	return nil
}

func openArea(t *testing.T) *domain.CommonArea {
	t.Helper()
	return &domain.CommonArea{
		ID:             uuid.New(),
		Name:           "Palapa",
		OpeningTime:    mustMinute(t, "08:00"),
		ClosingTime:    mustMinute(t, "22:00"),
		MaxAdvanceDays: 30,
		Active:         true,
	}
}

func bookingDraft(t *testing.T, area *domain.CommonArea, date time.Time) domain.ReservationDraft {
	t.Helper()
	return domain.ReservationDraft{
		AreaID:    area.ID,
		UserID:    uuid.New(),
		Date:      date,
		StartTime: mustMinute(t, "12:00"),
		EndTime:   mustMinute(t, "14:00"),
	}
}

func TestCreateReservation_Succeeds(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := &reservationRepoStub{area: openArea(t)}
	svc := NewReservationService(repo, 2, fixedClock(now))

	res, avail, err := svc.CreateReservation(context.Background(), bookingDraft(t, repo.area, now.AddDate(0, 0, 3)))
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}
	if !avail.Available {
		t.Fatalf("expected available, got %s", avail.Reason)
	}
	if res == nil || res.Status != domain.ReservationStatusConfirmed {
		t.Fatalf("expected confirmed reservation, got %+v", res)
	}
	if repo.insertCalls != 1 {
		t.Fatalf("expected one insert, got %d", repo.insertCalls)
	}
}

func TestCreateReservation_SnapshotRejectionSkipsInsert(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := &reservationRepoStub{
		area:         openArea(t),
		reservations: []domain.Reservation{reservationAt(t, "13:00", "15:00")},
	}
	svc := NewReservationService(repo, 2, fixedClock(now))

	res, avail, err := svc.CreateReservation(context.Background(), bookingDraft(t, repo.area, now.AddDate(0, 0, 3)))
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}
	if res != nil {
		t.Fatal("rejected booking must not return a reservation")
	}
	if avail.Reason != ReasonFull {
		t.Fatalf("expected Full, got %s", avail.Reason)
	}
	if repo.insertCalls != 0 {
		t.Fatal("snapshot rejection must not reach the store")
	}
}

func TestCreateReservation_RetriesAfterLosingSlotRace(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	area := openArea(t)
	area.SimultaneousSlots = 2
	repo := &reservationRepoStub{
		area:       area,
		insertErrs: []error{store.ErrSlotTaken},
	}
	svc := NewReservationService(repo, 2, fixedClock(now))

	res, avail, err := svc.CreateReservation(context.Background(), bookingDraft(t, area, now.AddDate(0, 0, 3)))
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}
	if !avail.Available || res == nil {
		t.Fatalf("expected success on retry, got avail=%+v res=%+v", avail, res)
	}
	if repo.insertCalls != 2 {
		t.Fatalf("expected retry after slot race, got %d inserts", repo.insertCalls)
	}
}

func TestCreateReservation_ExhaustedRetriesReportFull(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := &reservationRepoStub{
		area:       openArea(t),
		insertErrs: []error{store.ErrSlotTaken, store.ErrSlotTaken},
	}
	svc := NewReservationService(repo, 2, fixedClock(now))

	res, avail, err := svc.CreateReservation(context.Background(), bookingDraft(t, repo.area, now.AddDate(0, 0, 3)))
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}
	if res != nil {
		t.Fatal("exhausted retries must not return a reservation")
	}
	if avail.Available || avail.Reason != ReasonFull {
		t.Fatalf("expected Full after losing every retry, got %+v", avail)
	}
}

func TestCreateReservation_InactiveAreaRejected(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	area := openArea(t)
	area.Active = false
	repo := &reservationRepoStub{area: area}
	svc := NewReservationService(repo, 2, fixedClock(now))

	_, _, err := svc.CreateReservation(context.Background(), bookingDraft(t, area, now.AddDate(0, 0, 3)))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestSaveArea_RejectsInvertedHours(t *testing.T) {
	repo := &reservationRepoStub{}
	svc := NewReservationService(repo, 2, nil)

	err := svc.SaveArea(context.Background(), &domain.CommonArea{
		Name:        "Gimnasio",
		OpeningTime: mustMinute(t, "22:00"),
		ClosingTime: mustMinute(t, "06:00"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

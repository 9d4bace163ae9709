package app

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/arcos/community-service/internal/domain"
)

func mustMinute(t *testing.T, s string) domain.MinuteOfDay {
	t.Helper()
	m, err := domain.ParseMinuteOfDay(s)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return m
}

func testArea(t *testing.T) *domain.CommonArea {
	t.Helper()
	return &domain.CommonArea{
		ID:             uuid.New(),
		Name:           "Salon de eventos",
		OpeningTime:    mustMinute(t, "08:00"),
		ClosingTime:    mustMinute(t, "22:00"),
		MaxAdvanceDays: 30,
		Active:         true,
	}
}

func reservationAt(t *testing.T, start, end string) domain.Reservation {
	t.Helper()
	return domain.Reservation{
		ID:        uuid.New(),
		StartTime: mustMinute(t, start),
		EndTime:   mustMinute(t, end),
		Status:    domain.ReservationStatusConfirmed,
	}
}

func TestCheckAvailability_InvalidWindow(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	got := CheckAvailability(testArea(t), today, mustMinute(t, "14:00"), mustMinute(t, "12:00"), today, nil)
	assert.False(t, got.Available)
	assert.Equal(t, ReasonInvalidWindow, got.Reason)

	// Zero-length windows are invalid too.
	got = CheckAvailability(testArea(t), today, mustMinute(t, "14:00"), mustMinute(t, "14:00"), today, nil)
	assert.Equal(t, ReasonInvalidWindow, got.Reason)
}

func TestCheckAvailability_OutsideOperatingHours(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	got := CheckAvailability(testArea(t), today, mustMinute(t, "07:00"), mustMinute(t, "09:00"), today, nil)
	assert.Equal(t, ReasonOutsideOperatingHours, got.Reason)

	got = CheckAvailability(testArea(t), today, mustMinute(t, "21:00"), mustMinute(t, "23:00"), today, nil)
	assert.Equal(t, ReasonOutsideOperatingHours, got.Reason)
}

func TestCheckAvailability_TooFarInAdvance(t *testing.T) {
	today := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	date := today.AddDate(0, 0, 31)

	got := CheckAvailability(testArea(t), date, mustMinute(t, "10:00"), mustMinute(t, "12:00"), today, nil)
	assert.Equal(t, ReasonTooFarInAdvance, got.Reason)

	// Exactly at the horizon is still bookable.
	got = CheckAvailability(testArea(t), today.AddDate(0, 0, 30), mustMinute(t, "10:00"), mustMinute(t, "12:00"), today, nil)
	assert.True(t, got.Available)
}

func TestCheckAvailability_BackToBackWindowsDoNotConflict(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Reservation{reservationAt(t, "12:00", "14:00")}

	got := CheckAvailability(testArea(t), today, mustMinute(t, "14:00"), mustMinute(t, "16:00"), today, existing)
	assert.True(t, got.Available)

	got = CheckAvailability(testArea(t), today, mustMinute(t, "10:00"), mustMinute(t, "12:00"), today, existing)
	assert.True(t, got.Available)
}

func TestCheckAvailability_OverlapFillsSingleSlot(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Reservation{reservationAt(t, "12:00", "14:00")}

	got := CheckAvailability(testArea(t), today, mustMinute(t, "13:00"), mustMinute(t, "15:00"), today, existing)
	assert.False(t, got.Available)
	assert.Equal(t, ReasonFull, got.Reason)
}

func TestCheckAvailability_CancelledReservationsIgnored(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cancelled := reservationAt(t, "12:00", "14:00")
	cancelled.Status = domain.ReservationStatusCancelled

	got := CheckAvailability(testArea(t), today, mustMinute(t, "13:00"), mustMinute(t, "15:00"), today, []domain.Reservation{cancelled})
	assert.True(t, got.Available)
}

func TestCheckAvailability_SimultaneousSlots(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	area := testArea(t)
	area.SimultaneousSlots = 2
	existing := []domain.Reservation{reservationAt(t, "12:00", "14:00")}

	got := CheckAvailability(area, today, mustMinute(t, "13:00"), mustMinute(t, "15:00"), today, existing)
	assert.True(t, got.Available)

	existing = append(existing, reservationAt(t, "13:00", "14:30"))
	got = CheckAvailability(area, today, mustMinute(t, "13:00"), mustMinute(t, "15:00"), today, existing)
	assert.Equal(t, ReasonFull, got.Reason)
}

func TestCheckAvailability_ReasonOrderWindowBeforeHours(t *testing.T) {
	// An inverted window outside operating hours reports InvalidWindow.
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	got := CheckAvailability(testArea(t), today, mustMinute(t, "23:00"), mustMinute(t, "06:00"), today, nil)
	assert.Equal(t, ReasonInvalidWindow, got.Reason)
}

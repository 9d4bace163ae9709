/**
 * @description
 * This file defines the domain models for bookable common areas and their
 * reservations. Times of day are minutes since midnight so that the overlap
 * arithmetic stays integer-only; an area's operating window never crosses
 * midnight.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MinuteOfDay is a time of day expressed as minutes since midnight [0, 1440].
type MinuteOfDay int

// ParseMinuteOfDay parses "HH:MM" into minutes since midnight.
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

// String renders the minute as "HH:MM".
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// CommonArea is a bookable shared facility.
// This struct maps directly to the `common_areas` table.
type CommonArea struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	Name              string      `json:"name" db:"name"`
	Description       string      `json:"description" db:"description"`
	Capacity          int         `json:"capacity" db:"capacity"` // people
	OpeningTime       MinuteOfDay `json:"opening_time" db:"opening_time"`
	ClosingTime       MinuteOfDay `json:"closing_time" db:"closing_time"`
	ReservationCost   int64       `json:"reservation_cost" db:"reservation_cost"` // in centavos
	RequiresDeposit   bool        `json:"requires_deposit" db:"requires_deposit"`
	DepositAmount     int64       `json:"deposit_amount" db:"deposit_amount"` // in centavos
	MaxAdvanceDays    int         `json:"max_advance_days" db:"max_advance_days"`
	SimultaneousSlots int         `json:"simultaneous_slots" db:"simultaneous_slots"` // concurrent bookings; 0 means 1
	Active            bool        `json:"active" db:"active"`
	CondominiumID     uuid.UUID   `json:"condominium_id" db:"condominium_id"`
}

// SlotCapacity returns how many reservations may hold the same window.
func (a *CommonArea) SlotCapacity() int {
	if a.SimultaneousSlots <= 0 {
		return 1
	}
	return a.SimultaneousSlots
}

// ReservationStatus enumerates the lifecycle states of a reservation.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a booking of a common area for a date and time window.
// The window is half-open: [StartTime, EndTime).
type Reservation struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	AreaID           uuid.UUID         `json:"area_id" db:"area_id"`
	UserID           uuid.UUID         `json:"user_id" db:"user_id"`
	Date             time.Time         `json:"date" db:"date"` // calendar day, midnight UTC
	StartTime        MinuteOfDay       `json:"start_time" db:"start_time"`
	EndTime          MinuteOfDay       `json:"end_time" db:"end_time"`
	Status           ReservationStatus `json:"status" db:"status"`
	DepositPaymentID *uuid.UUID        `json:"deposit_payment_id,omitempty" db:"deposit_payment_id"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// Overlaps reports whether two half-open windows on the same date intersect.
// A reservation ending at 14:00 does not conflict with one starting at 14:00.
func (r *Reservation) Overlaps(start, end MinuteOfDay) bool {
	return r.StartTime < end && start < r.EndTime
}

// ReservationDraft carries the fields a resident booking supplies.
type ReservationDraft struct {
	AreaID    uuid.UUID   `json:"area_id"`
	UserID    uuid.UUID   `json:"user_id"`
	Date      time.Time   `json:"date"`
	StartTime MinuteOfDay `json:"start_time"`
	EndTime   MinuteOfDay `json:"end_time"`
}

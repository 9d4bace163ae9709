/**
 * @description
 * This file contains the reservation availability checker: a pure decision
 * function over a snapshot of existing reservations. Rejections are typed
 * results rather than errors because they are expected, frequent outcomes.
 *
 * The checker never provides mutual exclusion. Two racing requests for the
 * last slot are serialized by the store's transactional insert, which
 * re-evaluates the same overlap count under the area row lock.
 */

package app

import (
	"time"

	"github.com/arcos/community-service/internal/domain"
)

// AvailabilityReason explains why a slot was rejected.
type AvailabilityReason string

const (
	ReasonInvalidWindow         AvailabilityReason = "InvalidWindow"
	ReasonOutsideOperatingHours AvailabilityReason = "OutsideOperatingHours"
	ReasonTooFarInAdvance       AvailabilityReason = "TooFarInAdvance"
	ReasonFull                  AvailabilityReason = "Full"
)

// Availability is the outcome of an availability check.
type Availability struct {
	Available bool               `json:"available"`
	Reason    AvailabilityReason `json:"reason,omitempty"`
}

func available() Availability {
	return Availability{Available: true}
}

func unavailable(reason AvailabilityReason) Availability {
	return Availability{Available: false, Reason: reason}
}

// CheckAvailability decides whether [start, end) on `date` can be booked for
// the area, given the snapshot of non-cancelled reservations for that area
// and date. Windows are half-open: a reservation ending at 14:00 does not
// conflict with one starting at 14:00.
func CheckAvailability(
	area *domain.CommonArea,
	date time.Time,
	start, end domain.MinuteOfDay,
	today time.Time,
	existing []domain.Reservation,
) Availability {
	if start >= end {
		return unavailable(ReasonInvalidWindow)
	}
	if start < area.OpeningTime || end > area.ClosingTime {
		return unavailable(ReasonOutsideOperatingHours)
	}

	lastBookable := startOfDay(today).AddDate(0, 0, area.MaxAdvanceDays)
	if startOfDay(date).After(lastBookable) {
		return unavailable(ReasonTooFarInAdvance)
	}

	overlapping := 0
	for i := range existing {
		res := &existing[i]
		if res.Status == domain.ReservationStatusCancelled {
			continue
		}
		if res.Overlaps(start, end) {
			overlapping++
		}
	}
	if overlapping >= area.SlotCapacity() {
		return unavailable(ReasonFull)
	}

	return available()
}

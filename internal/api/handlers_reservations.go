/**
 * @description
 * This file contains the HTTP handlers for common areas and reservations:
 * listing areas, checking availability, booking, and cancelling.
 */

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/arcos/community-service/internal/domain"
)

// ListAreasHandler returns the bookable common areas.
func (h *CommunityHandlers) ListAreasHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	// Admins see inactive areas too.
	areas, err := h.reservations.ListAreas(r.Context(), user.Role != RoleAdmin)
	if err != nil {
		h.writeServiceError(w, "list_areas", err)
		return
	}

	h.writeJSON(w, http.StatusOK, areas)
}

// SaveAreaHandler creates or updates a common area definition.
func (h *CommunityHandlers) SaveAreaHandler(w http.ResponseWriter, r *http.Request) {
	var area domain.CommonArea
	if err := json.NewDecoder(r.Body).Decode(&area); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.reservations.SaveArea(r.Context(), &area); err != nil {
		h.writeServiceError(w, "save_area", err)
		return
	}

	h.writeJSON(w, http.StatusOK, area)
}

// availabilityRequest asks whether a window on a date can be booked.
type availabilityRequest struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

func (h *CommunityHandlers) parseAvailabilityRequest(r *http.Request) (time.Time, domain.MinuteOfDay, domain.MinuteOfDay, error) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return time.Time{}, 0, 0, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	start, err := domain.ParseMinuteOfDay(req.StartTime)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	end, err := domain.ParseMinuteOfDay(req.EndTime)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	return date, start, end, nil
}

// CheckAvailabilityHandler runs the availability check for an area.
func (h *CommunityHandlers) CheckAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseIDParam(r, "areaID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid area ID format")
		return
	}

	date, start, end, err := h.parseAvailabilityRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid availability request")
		return
	}

	avail, err := h.reservations.CheckAreaAvailability(r.Context(), areaID, date, start, end)
	if err != nil {
		h.writeServiceError(w, "check_availability", err)
		return
	}

	h.writeJSON(w, http.StatusOK, avail)
}

// CreateReservationHandler books an area for the caller.
func (h *CommunityHandlers) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	areaID, err := parseIDParam(r, "areaID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid area ID format")
		return
	}

	date, start, end, err := h.parseAvailabilityRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid reservation request")
		return
	}

	res, avail, err := h.reservations.CreateReservation(r.Context(), domain.ReservationDraft{
		AreaID:    areaID,
		UserID:    user.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		h.writeServiceError(w, "create_reservation", err)
		return
	}
	if !avail.Available {
		h.writeJSON(w, http.StatusConflict, avail)
		return
	}

	h.writeJSON(w, http.StatusCreated, res)
}

// ListMyReservationsHandler returns the caller's bookings.
func (h *CommunityHandlers) ListMyReservationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	reservations, err := h.reservations.GetReservationsByUser(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, "list_my_reservations", err)
		return
	}

	h.writeJSON(w, http.StatusOK, reservations)
}

// CancelReservationHandler cancels a booking owned by the caller.
func (h *CommunityHandlers) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	reservationID, err := parseIDParam(r, "reservationID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid reservation ID format")
		return
	}

	if err := h.reservations.CancelReservation(r.Context(), reservationID, user.ID); err != nil {
		h.writeServiceError(w, "cancel_reservation", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation cancelled"})
}

/**
 * @description
 * This file contains the HTTP handlers for the fine ledger and maintenance
 * payment endpoints. Handlers are responsible for parsing incoming requests,
 * calling the appropriate methods on the application services, and writing
 * the HTTP response. They act as the bridge between the web layer and the
 * business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/app"
	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
)

// CommunityHandlers holds the application services that handlers use.
type CommunityHandlers struct {
	fines        *app.FineService
	payments     *app.PaymentService
	reservations *app.ReservationService
	visitors     *app.VisitorService
	settings     *app.SettingsService
	rateLimiter  *app.RedisScanRateLimiter
	scanLimit    int
}

// NewCommunityHandlers creates a new instance of CommunityHandlers.
func NewCommunityHandlers(
	fines *app.FineService,
	payments *app.PaymentService,
	reservations *app.ReservationService,
	visitors *app.VisitorService,
	settings *app.SettingsService,
	rateLimiter *app.RedisScanRateLimiter,
	scanLimit int,
) *CommunityHandlers {
	return &CommunityHandlers{
		fines:        fines,
		payments:     payments,
		reservations: reservations,
		visitors:     visitors,
		settings:     settings,
		rateLimiter:  rateLimiter,
		scanLimit:    scanLimit,
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *CommunityHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *CommunityHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors to HTTP statuses.
func (h *CommunityHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrNothingSelected):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrFineNotFound),
		errors.Is(err, store.ErrAgreementNotFound),
		errors.Is(err, store.ErrPaymentNotFound),
		errors.Is(err, store.ErrAreaNotFound),
		errors.Is(err, store.ErrReservationNotFound),
		errors.Is(err, store.ErrVisitorNotFound),
		errors.Is(err, store.ErrSettingsNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidState),
		errors.Is(err, app.ErrInvariantViolation),
		errors.Is(err, store.ErrDuplicatePayment),
		errors.Is(err, store.ErrSlotTaken):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// CreateFineHandler handles admin fine creation.
func (h *CommunityHandlers) CreateFineHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var draft domain.FineDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	draft.CreatedBy = user.ID

	fineID, err := h.fines.AddFine(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, "create_fine", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"fine_id": fineID.String()})
}

// UpdateFineHandler handles admin fine edits.
func (h *CommunityHandlers) UpdateFineHandler(w http.ResponseWriter, r *http.Request) {
	fineID, err := parseIDParam(r, "fineID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid fine ID format")
		return
	}

	var update domain.FineUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.fines.UpdateFine(r.Context(), fineID, update); err != nil {
		h.writeServiceError(w, "update_fine", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Fine updated"})
}

// CancelFineHandler voids a fine.
func (h *CommunityHandlers) CancelFineHandler(w http.ResponseWriter, r *http.Request) {
	fineID, err := parseIDParam(r, "fineID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid fine ID format")
		return
	}

	if err := h.fines.CancelFine(r.Context(), fineID); err != nil {
		h.writeServiceError(w, "cancel_fine", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Fine cancelled"})
}

// DeleteFineHandler removes a fine record entirely.
func (h *CommunityHandlers) DeleteFineHandler(w http.ResponseWriter, r *http.Request) {
	fineID, err := parseIDParam(r, "fineID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid fine ID format")
		return
	}

	if err := h.fines.DeleteFine(r.Context(), fineID); err != nil {
		h.writeServiceError(w, "delete_fine", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Fine deleted"})
}

// ListUserFinesHandler returns every fine for a user.
func (h *CommunityHandlers) ListUserFinesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	fines, err := h.fines.GetFinesByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "list_user_fines", err)
		return
	}

	h.writeJSON(w, http.StatusOK, fines)
}

// ListMyPendingFinesHandler returns the caller's unpaid fines with the
// amounts currently owed.
func (h *CommunityHandlers) ListMyPendingFinesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	fines, err := h.fines.GetPendingFinesByUser(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, "list_my_pending_fines", err)
		return
	}

	h.writeJSON(w, http.StatusOK, fines)
}

// quoteRequest is the resident form's breakdown preview payload.
type quoteRequest struct {
	Selection app.BreakdownSelection `json:"selection"`
}

// QuoteBreakdownHandler prices a charge selection without persisting anything.
func (h *CommunityHandlers) QuoteBreakdownHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.payments.QuoteBreakdown(r.Context(), user.ID, user.House, req.Selection)
	if err != nil {
		h.writeServiceError(w, "quote_breakdown", err)
		return
	}

	h.writeJSON(w, http.StatusOK, quote)
}

// CreatePaymentHandler records a maintenance payment for the caller.
func (h *CommunityHandlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var draft domain.PaymentDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	draft.UserID = user.ID
	if draft.UserName == "" {
		draft.UserName = user.Name
	}

	payment, err := h.payments.AddPayment(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, "create_payment", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, payment)
}

// UpdatePaymentHandler applies an administrative status change or comment.
func (h *CommunityHandlers) UpdatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	paymentID, err := parseIDParam(r, "paymentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	var update domain.PaymentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	update.UpdatedBy = user.ID

	payment, err := h.payments.UpdatePayment(r.Context(), paymentID, update)
	if err != nil {
		h.writeServiceError(w, "update_payment", err)
		return
	}

	h.writeJSON(w, http.StatusOK, payment)
}

// GetPaymentHandler returns one payment.
func (h *CommunityHandlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, err := parseIDParam(r, "paymentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid payment ID format")
		return
	}

	payment, err := h.payments.GetPaymentByID(r.Context(), paymentID)
	if err != nil {
		h.writeServiceError(w, "get_payment", err)
		return
	}

	h.writeJSON(w, http.StatusOK, payment)
}

// ListMyPaymentsHandler returns the caller's payment history.
func (h *CommunityHandlers) ListMyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	payments, err := h.payments.GetPaymentsByUser(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, "list_my_payments", err)
		return
	}

	h.writeJSON(w, http.StatusOK, payments)
}

func monthYearParams(r *http.Request) (month, year int, err error) {
	month, err = strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return 0, 0, err
	}
	year, err = strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

// ListMonthPaymentsHandler returns every payment targeting ?month=&year=.
func (h *CommunityHandlers) ListMonthPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYearParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "month and year query parameters are required")
		return
	}

	payments, err := h.payments.GetPaymentsByMonth(r.Context(), month, year)
	if err != nil {
		h.writeServiceError(w, "list_month_payments", err)
		return
	}

	h.writeJSON(w, http.StatusOK, payments)
}

// MonthTotalsHandler returns per-category completed totals for ?month=&year=.
func (h *CommunityHandlers) MonthTotalsHandler(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYearParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "month and year query parameters are required")
		return
	}

	totals, err := h.payments.CategorizedTotalsByMonth(r.Context(), month, year)
	if err != nil {
		h.writeServiceError(w, "month_totals", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"totals": totals,
		"sum":    totals.Sum(),
	})
}

func parseMonthKey(s string) (store.MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return store.MonthKey{}, err
	}
	return store.MonthKey{Month: int(t.Month()), Year: t.Year()}, nil
}

// RangeTotalsHandler returns per-category completed totals for every month
// in ?from=YYYY-MM&to=YYYY-MM.
func (h *CommunityHandlers) RangeTotalsHandler(w http.ResponseWriter, r *http.Request) {
	from, err := parseMonthKey(r.URL.Query().Get("from"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "from query parameter must be YYYY-MM")
		return
	}
	to, err := parseMonthKey(r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "to query parameter must be YYYY-MM")
		return
	}

	totals, err := h.payments.CategorizedTotalsByRange(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, "range_totals", err)
		return
	}

	h.writeJSON(w, http.StatusOK, totals)
}

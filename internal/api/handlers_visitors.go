/**
 * @description
 * This file contains the HTTP handlers for guest passes: resident
 * registration, the guard's scan endpoint, and the entry history. The scan
 * endpoint is rate limited per guard through Redis so a misbehaving scanner
 * cannot hammer the pass lookup.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/arcos/community-service/internal/domain"
)

// RegisterVisitorHandler creates a guest pass for the caller.
func (h *CommunityHandlers) RegisterVisitorHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var draft domain.VisitorDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	draft.HostUserID = user.ID

	visitor, err := h.visitors.RegisterVisitor(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, "register_visitor", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, visitor)
}

// ListMyVisitorsHandler returns the caller's guest passes.
func (h *CommunityHandlers) ListMyVisitorsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	visitors, err := h.visitors.ListVisitorsByHost(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, "list_my_visitors", err)
		return
	}

	h.writeJSON(w, http.StatusOK, visitors)
}

// scanRequest is the guard's scan payload.
type scanRequest struct {
	Payload  string               `json:"payload"`
	Decision domain.VisitorStatus `json:"decision"`
}

// ScanVisitorHandler resolves a scanned QR payload to an entry decision.
func (h *CommunityHandlers) ScanVisitorHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	if h.rateLimiter != nil {
		decision, err := h.rateLimiter.AllowScan(r.Context(), user.ID.String(), h.scanLimit)
		if err != nil {
			log.Printf("level=warn component=api endpoint=scan_visitor msg=\"rate limiter unavailable, allowing request\" err=%v", err)
		} else if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
			h.writeError(w, http.StatusTooManyRequests, "Too many scans, slow down")
			return
		}
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	visitor, err := h.visitors.ResolveScan(r.Context(), req.Payload, user.ID, req.Decision)
	if err != nil {
		h.writeServiceError(w, "scan_visitor", err)
		return
	}

	h.writeJSON(w, http.StatusOK, visitor)
}

// CompleteVisitHandler marks an approved pass completed on exit.
func (h *CommunityHandlers) CompleteVisitHandler(w http.ResponseWriter, r *http.Request) {
	visitorID, err := parseIDParam(r, "visitorID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid visitor ID format")
		return
	}

	if err := h.visitors.CompleteVisit(r.Context(), visitorID); err != nil {
		h.writeServiceError(w, "complete_visit", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Visit completed"})
}

// ScanHistoryHandler returns the most recent gate scans.
func (h *CommunityHandlers) ScanHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.visitors.ScanHistory(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "scan_history", err)
		return
	}

	h.writeJSON(w, http.StatusOK, history)
}

/**
 * @description
 * This file contains the HTTP handlers for the maintenance settings and the
 * price history.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/arcos/community-service/internal/domain"
)

// GetSettingsHandler returns the current maintenance settings.
func (h *CommunityHandlers) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context())
	if err != nil {
		h.writeServiceError(w, "get_settings", err)
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// UpdateSettingsHandler applies a partial settings change.
func (h *CommunityHandlers) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var update domain.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	update.UpdatedBy = user.ID

	settings, err := h.settings.UpdateSettings(r.Context(), update)
	if err != nil {
		h.writeServiceError(w, "update_settings", err)
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// PriceHistoryHandler returns past maintenance fee changes.
func (h *CommunityHandlers) PriceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := h.settings.PriceHistory(r.Context())
	if err != nil {
		h.writeServiceError(w, "price_history", err)
		return
	}

	h.writeJSON(w, http.StatusOK, history)
}

/**
 * @description
 * This file sets up the HTTP router for the community-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CommunityRoutes creates and returns the router for the community service.
func CommunityRoutes(h *CommunityHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Resident endpoints.
		r.Get("/fines/mine", h.ListMyPendingFinesHandler)
		r.Post("/payments/quote", h.QuoteBreakdownHandler)
		r.Post("/payments", h.CreatePaymentHandler)
		r.Get("/payments/mine", h.ListMyPaymentsHandler)
		r.Get("/settings", h.GetSettingsHandler)

		r.Get("/areas", h.ListAreasHandler)
		r.Post("/areas/{areaID}/availability", h.CheckAvailabilityHandler)
		r.Post("/areas/{areaID}/reservations", h.CreateReservationHandler)
		r.Get("/reservations/mine", h.ListMyReservationsHandler)
		r.Delete("/reservations/{reservationID}", h.CancelReservationHandler)

		r.Post("/visitors", h.RegisterVisitorHandler)
		r.Get("/visitors/mine", h.ListMyVisitorsHandler)

		// Guard endpoints.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleGuard, RoleAdmin))
			r.Post("/visitors/scan", h.ScanVisitorHandler)
			r.Post("/visitors/{visitorID}/complete", h.CompleteVisitHandler)
			r.Get("/visitors/history", h.ScanHistoryHandler)
		})

		// Admin endpoints.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))

			r.Post("/fines", h.CreateFineHandler)
			r.Put("/fines/{fineID}", h.UpdateFineHandler)
			r.Post("/fines/{fineID}/cancel", h.CancelFineHandler)
			r.Delete("/fines/{fineID}", h.DeleteFineHandler)
			r.Get("/users/{userID}/fines", h.ListUserFinesHandler)

			r.Put("/payments/{paymentID}", h.UpdatePaymentHandler)
			r.Get("/payments/{paymentID}", h.GetPaymentHandler)
			r.Get("/payments", h.ListMonthPaymentsHandler)
			r.Get("/payments/totals", h.MonthTotalsHandler)
			r.Get("/payments/totals/range", h.RangeTotalsHandler)

			r.Put("/settings", h.UpdateSettingsHandler)
			r.Get("/settings/history", h.PriceHistoryHandler)
			r.Post("/areas", h.SaveAreaHandler)
		})
	})

	return r
}

/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the service needs. Business logic only ever sees this interface,
 * which keeps the core components testable against in-memory stubs and
 * decoupled from PostgreSQL.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
)

// MonthKey identifies one calendar month of one year.
type MonthKey struct {
	Month int
	Year  int
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Fine methods
	CreateFine(ctx context.Context, fine *domain.Fine) error
	FindFineByID(ctx context.Context, fineID uuid.UUID) (*domain.Fine, error)
	FindFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error)
	FindUnsettledFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error)
	UpdateFineFields(ctx context.Context, fineID uuid.UUID, update domain.FineUpdate) error
	UpdateFineStatus(ctx context.Context, fineID uuid.UUID, status domain.FineStatus) error
	MarkFinePaid(ctx context.Context, fineID uuid.UUID, paymentID uuid.UUID, paidAt time.Time) error
	MarkOverdueFines(ctx context.Context, now time.Time) (int64, error)
	DeleteFine(ctx context.Context, fineID uuid.UUID) error

	// Payment agreement methods
	FindActiveAgreementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentAgreement, error)
	FindAgreementByID(ctx context.Context, agreementID uuid.UUID) (*domain.PaymentAgreement, error)
	DeactivateAgreement(ctx context.Context, agreementID uuid.UUID) error

	// Maintenance payment methods
	CreatePayment(ctx context.Context, payment *domain.MaintenancePayment) error
	FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.MaintenancePayment, error)
	FindPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.MaintenancePayment, error)
	FindPaymentsByMonth(ctx context.Context, month, year int) ([]domain.MaintenancePayment, error)
	HasCompletedPayment(ctx context.Context, userID uuid.UUID, month, year int) (bool, error)
	FindSettledMonths(ctx context.Context, userID uuid.UUID, from MonthKey) ([]MonthKey, error)
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate, updatedAt time.Time) error

	// Common area and reservation methods
	ListCommonAreas(ctx context.Context, activeOnly bool) ([]domain.CommonArea, error)
	FindAreaByID(ctx context.Context, areaID uuid.UUID) (*domain.CommonArea, error)
	SaveCommonArea(ctx context.Context, area *domain.CommonArea) error
	FindActiveReservations(ctx context.Context, areaID uuid.UUID, date time.Time) ([]domain.Reservation, error)
	CreateReservationIfAvailable(ctx context.Context, res *domain.Reservation, slotCapacity int) error
	FindReservationsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error)
	CancelReservation(ctx context.Context, reservationID, userID uuid.UUID) error

	// Maintenance settings methods
	GetMaintenanceSettings(ctx context.Context) (*domain.MaintenanceSettings, error)
	UpdateMaintenanceSettings(ctx context.Context, update domain.SettingsUpdate, now time.Time) (*domain.MaintenanceSettings, error)
	ListPriceHistory(ctx context.Context) ([]domain.MaintenancePriceChange, error)

	// Guest pass methods
	CreateVisitor(ctx context.Context, visitor *domain.Visitor) error
	FindVisitorByID(ctx context.Context, visitorID uuid.UUID) (*domain.Visitor, error)
	FindVisitorByQRPayload(ctx context.Context, payload string) (*domain.Visitor, error)
	ListVisitorsByHost(ctx context.Context, hostUserID uuid.UUID) ([]domain.Visitor, error)
	UpdateVisitorStatus(ctx context.Context, visitorID uuid.UUID, status domain.VisitorStatus) error
	CreateScanRecord(ctx context.Context, rec *domain.ScanRecord) error
	ListScanHistory(ctx context.Context, limit int) ([]domain.ScanRecord, error)
}

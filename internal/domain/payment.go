/**
 * @description
 * This file defines the domain models for maintenance payments and their
 * itemized breakdowns. A breakdown decomposes one payment into the categories
 * the administration reconciles against the bank statement: the monthly
 * maintenance fee, late surcharges, fines, payment agreements, advance
 * months, events, recovered months, and a free-form "others" bucket.
 *
 * @notes
 * - Amounts are stored as `int64` in centavos. The sum of every category
 *   present in a breakdown must equal the owning payment's total amount;
 *   the payment service refuses to persist a payment that violates this.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod enumerates how a resident paid.
type PaymentMethod string

const (
	PaymentMethodTransfer   PaymentMethod = "transfer"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
)

// PaymentStatus enumerates the lifecycle states of a maintenance payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// ResidentStatus is the administrative label attached to the payer.
type ResidentStatus string

const (
	ResidentStatusOrdinario   ResidentStatus = "Ordinario"
	ResidentStatusMoroso      ResidentStatus = "Moroso"
	ResidentStatusAlCorriente ResidentStatus = "Al corriente"
	ResidentStatusNuevo       ResidentStatus = "Nuevo"
)

// BreakdownFine itemizes one fine settled by a payment.
type BreakdownFine struct {
	FineID      uuid.UUID `json:"fine_id"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
}

// BreakdownAgreement itemizes one payment-agreement installment.
type BreakdownAgreement struct {
	AgreementID uuid.UUID `json:"agreement_id"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
}

// BreakdownMonth itemizes one calendar month covered by a payment, used for
// both advance payments and recovered (catch-up) payments.
type BreakdownMonth struct {
	Month  int   `json:"month"` // 1-12
	Year   int   `json:"year"`
	Amount int64 `json:"amount"`
}

// BreakdownEvent itemizes a common-area event charge.
type BreakdownEvent struct {
	AreaID   uuid.UUID `json:"area_id"`
	AreaName string    `json:"area_name"`
	Date     time.Time `json:"date"`
	Amount   int64     `json:"amount"`
}

// BreakdownOther itemizes a free-form charge.
type BreakdownOther struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// PaymentBreakdown is the itemization attached to one payment. Every field is
// optional; only the categories the payment actually covers are populated.
type PaymentBreakdown struct {
	Maintenance       *int64               `json:"maintenance,omitempty"`
	Surcharges        *int64               `json:"surcharges,omitempty"`
	RecoveredPayments []BreakdownMonth     `json:"recovered_payments,omitempty"`
	Fines             []BreakdownFine      `json:"fines,omitempty"`
	Agreements        []BreakdownAgreement `json:"agreements,omitempty"`
	AdvancePayments   []BreakdownMonth     `json:"advance_payments,omitempty"`
	Events            []BreakdownEvent     `json:"events,omitempty"`
	Others            []BreakdownOther     `json:"others,omitempty"`
}

// Total sums every category present in the breakdown, in centavos.
func (b *PaymentBreakdown) Total() int64 {
	if b == nil {
		return 0
	}
	var total int64
	if b.Maintenance != nil {
		total += *b.Maintenance
	}
	if b.Surcharges != nil {
		total += *b.Surcharges
	}
	for _, m := range b.RecoveredPayments {
		total += m.Amount
	}
	for _, f := range b.Fines {
		total += f.Amount
	}
	for _, a := range b.Agreements {
		total += a.Amount
	}
	for _, m := range b.AdvancePayments {
		total += m.Amount
	}
	for _, e := range b.Events {
		total += e.Amount
	}
	for _, o := range b.Others {
		total += o.Amount
	}
	return total
}

// Empty reports whether no category at all is present.
func (b *PaymentBreakdown) Empty() bool {
	if b == nil {
		return true
	}
	return b.Maintenance == nil && b.Surcharges == nil &&
		len(b.RecoveredPayments) == 0 && len(b.Fines) == 0 &&
		len(b.Agreements) == 0 && len(b.AdvancePayments) == 0 &&
		len(b.Events) == 0 && len(b.Others) == 0
}

// ResidentInfo is the address block recorded with every payment so exported
// reports stay readable even if the user record changes later.
type ResidentInfo struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// MaintenancePayment is one payment transaction by a resident.
// This struct maps directly to the `maintenance_payments` table.
type MaintenancePayment struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	UserID         uuid.UUID         `json:"user_id" db:"user_id"`
	UserName       string            `json:"user_name" db:"user_name"`
	ResidentInfo   ResidentInfo      `json:"resident_info" db:"resident_info"`
	Amount         int64             `json:"amount" db:"amount"` // in centavos
	PaymentDate    time.Time         `json:"payment_date" db:"payment_date"`
	PaymentMethod  PaymentMethod     `json:"payment_method" db:"payment_method"`
	Status         PaymentStatus     `json:"status" db:"status"`
	Month          int               `json:"month" db:"month"` // 1-12, target month
	Year           int               `json:"year" db:"year"`
	Notes          string            `json:"notes,omitempty" db:"notes"`
	Comments       string            `json:"comments,omitempty" db:"comments"`
	Breakdown      *PaymentBreakdown `json:"breakdown,omitempty" db:"breakdown"`
	TrackingKey    string            `json:"tracking_key" db:"tracking_key"`
	ResidentStatus ResidentStatus    `json:"resident_status" db:"resident_status"`
	UpdatedBy      *uuid.UUID        `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// PaymentDraft carries the fields a resident submission supplies.
type PaymentDraft struct {
	UserID         uuid.UUID         `json:"user_id"`
	UserName       string            `json:"user_name"`
	ResidentInfo   ResidentInfo      `json:"resident_info"`
	Amount         int64             `json:"amount"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	Month          int               `json:"month"`
	Year           int               `json:"year"`
	Notes          string            `json:"notes,omitempty"`
	Comments       string            `json:"comments,omitempty"`
	Breakdown      *PaymentBreakdown `json:"breakdown"`
	ResidentStatus ResidentStatus    `json:"resident_status,omitempty"`
}

// PaymentUpdate carries an administrative correction. Nil fields are left
// untouched; Status may only move a pending payment to completed or rejected.
type PaymentUpdate struct {
	Status    *PaymentStatus `json:"status,omitempty"`
	Comments  *string        `json:"comments,omitempty"`
	UpdatedBy uuid.UUID      `json:"updated_by"`
}

// CategoryTotals aggregates completed-payment amounts per breakdown category
// for one month, in centavos.
type CategoryTotals struct {
	Maintenance       int64 `json:"maintenance"`
	Surcharges        int64 `json:"surcharges"`
	RecoveredPayments int64 `json:"recovered_payments"`
	Fines             int64 `json:"fines"`
	Agreements        int64 `json:"agreements"`
	AdvancePayments   int64 `json:"advance_payments"`
	Events            int64 `json:"events"`
	Others            int64 `json:"others"`
}

// Sum returns the total across every category.
func (c CategoryTotals) Sum() int64 {
	return c.Maintenance + c.Surcharges + c.RecoveredPayments + c.Fines +
		c.Agreements + c.AdvancePayments + c.Events + c.Others
}

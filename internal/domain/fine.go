/**
 * @description
 * This file defines the domain model for fines ("multas") assessed against
 * residents, together with the status machine the fine ledger enforces.
 *
 * @notes
 * - Amounts are stored as `int64` in centavos (smallest currency unit) to
 *   avoid floating-point inaccuracies with financial data.
 * - `overdue` is a derived state: it is only ever reached by the time-driven
 *   status sweep, never set directly by a caller.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// FineStatus enumerates the lifecycle states of a fine.
type FineStatus string

const (
	FineStatusPending   FineStatus = "pending"
	FineStatusOverdue   FineStatus = "overdue"
	FineStatusPaid      FineStatus = "paid"
	FineStatusCancelled FineStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s FineStatus) Terminal() bool {
	return s == FineStatusPaid || s == FineStatusCancelled
}

// Fine represents a monetary penalty assessed against a resident.
// This struct maps directly to the `fines` table in the database.
type Fine struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	UserName  string     `json:"user_name" db:"user_name"`
	UserHouse string     `json:"user_house" db:"user_house"`
	Reason    string     `json:"reason" db:"reason"`
	Amount    int64      `json:"amount" db:"amount"` // in centavos
	Status    FineStatus `json:"status" db:"status"`
	DueDate   time.Time  `json:"due_date" db:"due_date"`
	LateFee   int64      `json:"late_fee" db:"late_fee"` // in centavos
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedBy uuid.UUID  `json:"created_by" db:"created_by"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsOverdue reports whether the fine is past its due date while still unpaid.
func (f *Fine) IsOverdue(now time.Time) bool {
	if f.Status != FineStatusPending && f.Status != FineStatusOverdue {
		return false
	}
	return now.After(f.DueDate)
}

// CurrentAmount returns the amount owed right now: the base amount plus the
// late fee once the fine is overdue.
func (f *Fine) CurrentAmount(now time.Time) int64 {
	if f.IsOverdue(now) {
		return f.Amount + f.LateFee
	}
	return f.Amount
}

// PendingFine is the resident-facing projection of an unpaid fine, annotated
// with the amount currently owed.
type PendingFine struct {
	Fine
	Overdue       bool  `json:"is_overdue"`
	CurrentAmount int64 `json:"current_amount"`
}

// FineDraft carries the fields an administrator supplies when creating a fine.
type FineDraft struct {
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserHouse string    `json:"user_house"`
	Reason    string    `json:"reason"`
	Amount    int64     `json:"amount"`
	DueDate   time.Time `json:"due_date"`
	LateFee   int64     `json:"late_fee"`
	CreatedBy uuid.UUID `json:"created_by"`
}

// FineUpdate carries the optional field changes for an administrative edit.
// Nil fields are left untouched.
type FineUpdate struct {
	Reason  *string    `json:"reason,omitempty"`
	Amount  *int64     `json:"amount,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
	LateFee *int64     `json:"late_fee,omitempty"`
}

// PaymentAgreement represents a payment plan ("convenio") a resident can pay
// down together with their maintenance fee.
type PaymentAgreement struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Description string    `json:"description" db:"description"`
	Amount      int64     `json:"amount" db:"amount"` // in centavos
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

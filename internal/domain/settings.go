/**
 * @description
 * This file defines the administrative maintenance settings: the monthly
 * fee, the due day that decides late surcharges, the surcharge amount, and
 * the banking details residents transfer to. Price changes are kept in a
 * history table for the admin dashboard.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaintenanceSettings is the singleton configuration row driving the
// payment rules.
type MaintenanceSettings struct {
	Price         int64      `json:"price" db:"price"`     // monthly fee in centavos
	DueDay        int        `json:"due_day" db:"due_day"` // day of month, 1-28
	LateFee       int64      `json:"late_fee" db:"late_fee"`
	BankName      string     `json:"bank_name" db:"bank_name"`
	AccountHolder string     `json:"account_holder" db:"account_holder"`
	CLABE         string     `json:"clabe" db:"clabe"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	UpdatedBy     *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
}

// MaintenancePriceChange is one entry in the price history.
type MaintenancePriceChange struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Price         int64     `json:"price" db:"price"`
	EffectiveDate time.Time `json:"effective_date" db:"effective_date"`
	CreatedBy     uuid.UUID `json:"created_by" db:"created_by"`
	Notes         string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// SettingsUpdate carries a partial settings change. Nil fields are kept.
type SettingsUpdate struct {
	Price         *int64    `json:"price,omitempty"`
	DueDay        *int      `json:"due_day,omitempty"`
	LateFee       *int64    `json:"late_fee,omitempty"`
	BankName      *string   `json:"bank_name,omitempty"`
	AccountHolder *string   `json:"account_holder,omitempty"`
	CLABE         *string   `json:"clabe,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	UpdatedBy     uuid.UUID `json:"updated_by"`
}

/**
 * @description
 * This file defines the domain model for guest passes ("invitados"): a
 * resident registers an expected visitor, the system issues a QR payload, and
 * the guard scans it at the gate to approve or deny entry.
 */

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VisitorStatus enumerates the lifecycle states of a guest pass.
type VisitorStatus string

const (
	VisitorStatusPending   VisitorStatus = "pending"
	VisitorStatusApproved  VisitorStatus = "approved"
	VisitorStatusDenied    VisitorStatus = "denied"
	VisitorStatusCompleted VisitorStatus = "completed"
)

// Visitor is a registered guest pass.
// This struct maps directly to the `visitors` table.
type Visitor struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	HostUserID  uuid.UUID     `json:"host_user_id" db:"host_user_id"`
	Name        string        `json:"name" db:"name"`
	Phone       string        `json:"phone" db:"phone"`
	VisitDate   string        `json:"visit_date" db:"visit_date"` // YYYY-MM-DD
	EntryTime   string        `json:"entry_time" db:"entry_time"` // HH:MM
	Destination string        `json:"destination" db:"destination"`
	Companions  int           `json:"companions" db:"companions"`
	QRPayload   string        `json:"qr_payload" db:"qr_payload"`
	Status      VisitorStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// VisitorDraft carries the fields a resident supplies when registering a guest.
type VisitorDraft struct {
	HostUserID  uuid.UUID `json:"host_user_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	VisitDate   string    `json:"visit_date"`
	EntryTime   string    `json:"entry_time"`
	Destination string    `json:"destination"`
	Companions  int       `json:"companions"`
}

// QRPayload renders the text encoded into the guest's QR code. The guard app
// scans this exact payload back, so the format must stay stable.
func (d VisitorDraft) QRPayload() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NOMBRE: %s\n", d.Name)
	fmt.Fprintf(&b, "TELÉFONO: %s\n", d.Phone)
	fmt.Fprintf(&b, "FECHA: %s\n", d.VisitDate)
	fmt.Fprintf(&b, "HORA: %s\n", d.EntryTime)
	fmt.Fprintf(&b, "DIRECCIÓN: %s", d.Destination)
	if d.Companions > 0 {
		fmt.Fprintf(&b, "\nACOMPAÑANTES: %d", d.Companions)
	}
	return b.String()
}

// ScanRecord is one guard scan of a guest pass, kept for the entry history.
type ScanRecord struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	VisitorID uuid.UUID     `json:"visitor_id" db:"visitor_id"`
	GuardID   uuid.UUID     `json:"guard_id" db:"guard_id"`
	Outcome   VisitorStatus `json:"outcome" db:"outcome"`
	ScannedAt time.Time     `json:"scanned_at" db:"scanned_at"`
}

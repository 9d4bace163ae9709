/**
 * @description
 * This file contains the payment breakdown calculator: the pure function
 * that turns a resident's charge selection into an itemized breakdown and
 * an exact total. All arithmetic is int64 centavos, so repeated
 * recalculation for a live form never drifts.
 *
 * The calculator performs no I/O; the caller assembles a BreakdownContext
 * from the settings, the fine ledger, and the payment history, and may call
 * ComputeBreakdown as often as it likes.
 */

package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
)

// BreakdownSelection is the set of charges a resident toggled on.
type BreakdownSelection struct {
	Maintenance   bool        `json:"maintenance"`
	FineIDs       []uuid.UUID `json:"fine_ids"`
	AgreementIDs  []uuid.UUID `json:"agreement_ids"`
	AdvanceMonths int         `json:"advance_months"`
}

// Empty reports whether nothing at all was selected.
func (s BreakdownSelection) Empty() bool {
	return !s.Maintenance && len(s.FineIDs) == 0 && len(s.AgreementIDs) == 0 && s.AdvanceMonths <= 0
}

// BreakdownContext carries everything the calculator needs: the current
// pricing rules, whether the resident is paying late, their unsettled fines
// and agreements, and the future months they already settled in advance.
type BreakdownContext struct {
	MaintenancePrice int64
	LateFee          int64
	IsLate           bool
	Now              time.Time
	PendingFines     []domain.Fine
	Agreements       []domain.PaymentAgreement
	SettledMonths    []store.MonthKey
}

// ComputeBreakdown builds the itemized breakdown for a selection and returns
// it with the exact total in centavos. It has no side effects.
func ComputeBreakdown(sel BreakdownSelection, bctx BreakdownContext) (domain.PaymentBreakdown, int64, error) {
	var breakdown domain.PaymentBreakdown

	if sel.Empty() {
		return breakdown, 0, ErrNothingSelected
	}
	if sel.AdvanceMonths < 0 {
		return breakdown, 0, fmt.Errorf("%w: advance months must not be negative", ErrValidation)
	}

	var total int64

	if sel.Maintenance {
		maintenance := bctx.MaintenancePrice
		breakdown.Maintenance = &maintenance
		total += maintenance
		if bctx.IsLate {
			surcharge := bctx.LateFee
			breakdown.Surcharges = &surcharge
			total += surcharge
		}
	}

	if len(sel.FineIDs) > 0 {
		finesByID := make(map[uuid.UUID]domain.Fine, len(bctx.PendingFines))
		for _, f := range bctx.PendingFines {
			finesByID[f.ID] = f
		}
		fines := make([]domain.BreakdownFine, 0, len(sel.FineIDs))
		for _, id := range sel.FineIDs {
			fine, ok := finesByID[id]
			if !ok {
				return domain.PaymentBreakdown{}, 0, fmt.Errorf("%w: fine %s is not payable", ErrValidation, id)
			}
			amount := fine.CurrentAmount(bctx.Now)
			fines = append(fines, domain.BreakdownFine{
				FineID:      fine.ID,
				Description: fine.Reason,
				Amount:      amount,
			})
			total += amount
		}
		breakdown.Fines = fines
	}

	if len(sel.AgreementIDs) > 0 {
		agreementsByID := make(map[uuid.UUID]domain.PaymentAgreement, len(bctx.Agreements))
		for _, a := range bctx.Agreements {
			agreementsByID[a.ID] = a
		}
		agreements := make([]domain.BreakdownAgreement, 0, len(sel.AgreementIDs))
		for _, id := range sel.AgreementIDs {
			agreement, ok := agreementsByID[id]
			if !ok {
				return domain.PaymentBreakdown{}, 0, fmt.Errorf("%w: agreement %s is not payable", ErrValidation, id)
			}
			agreements = append(agreements, domain.BreakdownAgreement{
				AgreementID: agreement.ID,
				Description: agreement.Description,
				Amount:      agreement.Amount,
			})
			total += agreement.Amount
		}
		breakdown.Agreements = agreements
	}

	if sel.AdvanceMonths > 0 {
		months := advanceMonthTargets(bctx.Now, sel.AdvanceMonths, bctx.SettledMonths)
		advance := make([]domain.BreakdownMonth, 0, len(months))
		for _, mk := range months {
			advance = append(advance, domain.BreakdownMonth{
				Month:  mk.Month,
				Year:   mk.Year,
				Amount: bctx.MaintenancePrice,
			})
			total += bctx.MaintenancePrice
		}
		breakdown.AdvancePayments = advance
	}

	return breakdown, total, nil
}

// advanceMonthTargets walks forward from the month after `now`, skipping
// months the resident already settled, until `count` targets are collected.
func advanceMonthTargets(now time.Time, count int, settled []store.MonthKey) []store.MonthKey {
	settledSet := make(map[store.MonthKey]struct{}, len(settled))
	for _, mk := range settled {
		settledSet[mk] = struct{}{}
	}

	targets := make([]store.MonthKey, 0, count)
	month, year := int(now.Month()), now.Year()
	// Bounded walk: skipping can push targets further out, but never scan
	// more than a decade ahead.
	for i := 0; len(targets) < count && i < 120; i++ {
		month++
		if month > 12 {
			month = 1
			year++
		}
		mk := store.MonthKey{Month: month, Year: year}
		if _, ok := settledSet[mk]; ok {
			continue
		}
		targets = append(targets, mk)
	}
	return targets
}

package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PenaltyStatus tracks the late-payment penalty of an obligation.
type PenaltyStatus string

const (
	PenaltyNone     PenaltyStatus = "NONE"
	PenaltyAccruing PenaltyStatus = "ACCRUING"
	PenaltyNotPaid  PenaltyStatus = "NOT_PAID"
	PenaltyPaid     PenaltyStatus = "PAID"
)

// Movement changes the outstanding principal on Date. Payments are negative,
// charges positive.
type Movement struct {
	Date   time.Time
	Amount decimal.Decimal
}

type PenaltyInput struct {
	Principal decimal.Decimal
	DueDate   time.Time
	Movements []Movement
	AsOf      time.Time
}

type Penalty struct {
	Status PenaltyStatus `json:"status"`
	// AccrualStart is the day after the due date.
	AccrualStart time.Time `json:"accrual_start_date"`
	// AccrualFinal is set once the principal has been paid off.
	AccrualFinal *time.Time      `json:"accrual_final_date,omitempty"`
	Days         int             `json:"days_accrued"`
	Amount       decimal.Decimal `json:"penalty_amount"`
}

// Finalized reports whether the penalty can no longer grow.
func (p Penalty) Finalized() bool {
	return p.AccrualFinal != nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccruePenalty computes the late-payment penalty on an obligation as of a
// date. Each day the outstanding principal is positive, the penalty grows
// by the daily rate applied to principal plus compounded penalty; accrued
// penalty folds into the base every CompoundingDays days. Accrual stops on
// the day the principal reaches zero, which finalizes the penalty.
func AccruePenalty(rules Rules, in PenaltyInput) Penalty {
	due := day(in.DueDate)
	asOf := day(in.AsOf)
	moves := make([]Movement, len(in.Movements))
	copy(moves, in.Movements)
	for i := range moves {
		moves[i].Date = day(moves[i].Date)
	}
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].Date.Before(moves[j].Date) })

	principal := in.Principal
	next := 0
	apply := func(through time.Time) {
		for next < len(moves) && !moves[next].Date.After(through) {
			principal = principal.Add(moves[next].Amount)
			next++
		}
	}
	apply(due)

	out := Penalty{Status: PenaltyNone, AccrualStart: due.AddDate(0, 0, 1), Amount: decimal.Zero}
	if !principal.IsPositive() || !asOf.After(due) {
		return out
	}

	// The day the balance reaches zero is the last accrual day. It accrues on
	// that day's closing principal, which leaves only the compounded penalty.
	compounded, pending := decimal.Zero, decimal.Zero
	for d := out.AccrualStart; !d.After(asOf); d = d.AddDate(0, 0, 1) {
		apply(d)
		pending = pending.Add(decimal.Max(decimal.Zero, principal).Add(compounded).Mul(rules.DailyPenaltyRate))
		out.Days++
		if out.Days%rules.CompoundingDays == 0 {
			compounded = compounded.Add(pending)
			pending = decimal.Zero
		}
		if !principal.IsPositive() {
			final := d
			out.AccrualFinal = &final
			break
		}
	}

	out.Amount = compounded.Add(pending).Round(MoneyScale)
	switch {
	case out.Amount.IsZero():
		out.Status = PenaltyNone
	case out.Finalized():
		out.Status = PenaltyNotPaid
	default:
		out.Status = PenaltyAccruing
	}
	return out
}

package calculator

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the compliance position of one report version.
type Summary struct {
	ReportingYear         int             `json:"reporting_year"`
	Products              []ProductLimit  `json:"products"`
	EmissionsAttributable decimal.Decimal `json:"emissions_attributable_for_compliance"`
	EmissionLimit         decimal.Decimal `json:"emission_limit"`
	ExcessEmissions       decimal.Decimal `json:"excess_emissions"`
	CreditedEmissions     decimal.Decimal `json:"credited_emissions"`
	ChargeRate            decimal.Decimal `json:"charge_rate"`
	ObligationFee         decimal.Decimal `json:"obligation_fee"`
	EarnedCredits         int64           `json:"earned_credits"`
	DueDate               time.Time       `json:"obligation_deadline"`
}

// Summarize totals the product limits of a report and derives the
// obligation or earned credits.
func Summarize(rules Rules, year int, products []ProductInput) (*Summary, error) {
	rate, err := rules.ChargeRate(year)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		ReportingYear: year,
		Products:      make([]ProductLimit, 0, len(products)),
		ChargeRate:    rate,
		DueDate:       DueDate(year),
	}
	attributable, limit := decimal.Zero, decimal.Zero
	for _, in := range products {
		pl, err := CalculateProductLimit(year, in)
		if err != nil {
			return nil, err
		}
		s.Products = append(s.Products, pl)
		attributable = attributable.Add(pl.AllocatedForCompliance)
		limit = limit.Add(pl.Limit)
	}
	s.EmissionsAttributable = attributable.Round(EmissionScale)
	s.EmissionLimit = limit.Round(EmissionScale)
	s.ExcessEmissions = decimal.Max(decimal.Zero, attributable.Sub(limit)).Round(EmissionScale)
	s.CreditedEmissions = decimal.Max(decimal.Zero, limit.Sub(attributable)).Round(EmissionScale)
	s.ObligationFee = ObligationFee(s.ExcessEmissions, rate)
	s.EarnedCredits = s.CreditedEmissions.Floor().IntPart()
	return s, nil
}

// UnitCapacity returns how many compliance units may still be applied to an
// obligation: the units are worth at most share of the fee in total, and
// never more than the outstanding balance.
func UnitCapacity(rules Rules, fee, alreadyApplied, outstanding, unitValue decimal.Decimal) int64 {
	if !unitValue.IsPositive() {
		return 0
	}
	room := fee.Mul(rules.MaxUnitShare).Sub(alreadyApplied)
	room = decimal.Min(room, outstanding)
	if !room.IsPositive() {
		return 0
	}
	return room.Div(unitValue).Floor().IntPart()
}

// Package calculator computes emission limits, compliance summaries,
// obligation fees and penalty accrual. It is pure: no I/O, no clocks.
package calculator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bciers/internal/platform/config"
	dErrors "bciers/pkg/domain-errors"
)

const (
	// EmissionScale is the precision of every tCO2e figure.
	EmissionScale = 4
	// MoneyScale is the precision of every dollar figure.
	MoneyScale = 2
)

// Rules are the regulatory constants the calculations depend on.
type Rules struct {
	ChargeRates      map[int]decimal.Decimal
	DailyPenaltyRate decimal.Decimal
	CompoundingDays  int
	MaxUnitShare     decimal.Decimal
}

// DefaultRules mirrors the configuration defaults.
func DefaultRules() Rules {
	return Rules{
		ChargeRates: map[int]decimal.Decimal{
			2024: decimal.NewFromInt(80),
			2025: decimal.NewFromInt(95),
			2026: decimal.NewFromInt(110),
			2027: decimal.NewFromInt(125),
		},
		DailyPenaltyRate: decimal.RequireFromString("0.0038"),
		CompoundingDays:  30,
		MaxUnitShare:     decimal.RequireFromString("0.5"),
	}
}

func RulesFromConfig(cfg config.Compliance) (Rules, error) {
	rates, err := cfg.Rates()
	if err != nil {
		return Rules{}, err
	}
	daily, err := decimal.NewFromString(cfg.DailyPenaltyRate)
	if err != nil {
		return Rules{}, fmt.Errorf("daily penalty rate: %w", err)
	}
	share, err := decimal.NewFromString(cfg.MaxUnitShare)
	if err != nil {
		return Rules{}, fmt.Errorf("max unit share: %w", err)
	}
	if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
		return Rules{}, fmt.Errorf("max unit share %s must be between 0 and 1", share)
	}
	if cfg.CompoundingDays < 1 {
		return Rules{}, fmt.Errorf("compounding days must be positive")
	}
	return Rules{
		ChargeRates:      rates,
		DailyPenaltyRate: daily,
		CompoundingDays:  cfg.CompoundingDays,
		MaxUnitShare:     share,
	}, nil
}

// ChargeRate is the dollar value of one tonne of excess emissions in year.
func (r Rules) ChargeRate(year int) (decimal.Decimal, error) {
	rate, ok := r.ChargeRates[year]
	if !ok {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidState, "no charge rate is configured for %d", year)
	}
	return rate, nil
}

// DueDate is the obligation deadline: 30 November of the following year.
func DueDate(reportingYear int) time.Time {
	return time.Date(reportingYear+1, time.November, 30, 0, 0, 0, 0, time.UTC)
}

// ObligationFee is excess times rate, rounded to cents.
func ObligationFee(excess, rate decimal.Decimal) decimal.Decimal {
	return excess.Mul(rate).Round(MoneyScale)
}

// FormatObligationID renders the public obligation identifier, e.g.
// 24-0001-25-1 for the first version of the 2025 report of BORO 24-0001.
func FormatObligationID(boroID string, reportingYear, versionNumber int) (string, error) {
	if boroID == "" {
		return "", dErrors.New(dErrors.CodeInvalidState, "obligations require an operation with a BORO ID")
	}
	return fmt.Sprintf("%s-%02d-%d", boroID, reportingYear%100, versionNumber), nil
}

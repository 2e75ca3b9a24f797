package calculator

import (
	"github.com/shopspring/decimal"

	"bciers/internal/reporting/catalog"
	dErrors "bciers/pkg/domain-errors"
)

var one = decimal.NewFromInt(1)

// ProductInput is one product's production and allocated emissions.
type ProductInput struct {
	ProductID                  int
	AnnualProduction           decimal.Decimal
	ProductionAprDec           *decimal.Decimal
	AllocatedForCompliance     decimal.Decimal
	AllocatedIndustrialProcess decimal.Decimal
}

// ProductLimit is the limit calculation for one product.
type ProductLimit struct {
	ProductID              int             `json:"product_id"`
	Name                   string          `json:"name"`
	Regulated              bool            `json:"regulated"`
	Production             decimal.Decimal `json:"production"`
	AllocatedForCompliance decimal.Decimal `json:"allocated_for_compliance"`
	IndustrialProcessShare decimal.Decimal `json:"industrial_process_share"`
	ReductionFactor        decimal.Decimal `json:"reduction_factor"`
	TighteningRate         decimal.Decimal `json:"tightening_rate"`
	PWAEI                  decimal.Decimal `json:"pwaei"`
	Limit                  decimal.Decimal `json:"emission_limit"`
}

// Prorated reports whether year is the partial first compliance period.
func Prorated(year int) bool {
	return year == catalog.InitialCompliancePeriod
}

// CalculateProductLimit applies the product's benchmark to its production.
func CalculateProductLimit(year int, in ProductInput) (ProductLimit, error) {
	if year < catalog.InitialCompliancePeriod {
		return ProductLimit{}, dErrors.Newf(dErrors.CodeInvalidState,
			"compliance obligations start in %d", catalog.InitialCompliancePeriod)
	}
	p, ok := catalog.Product(in.ProductID)
	if !ok {
		return ProductLimit{}, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown regulated product %d", in.ProductID)
	}

	production := in.AnnualProduction
	allocated := in.AllocatedForCompliance
	if Prorated(year) && in.ProductionAprDec != nil {
		production = *in.ProductionAprDec
		if in.AnnualProduction.IsZero() {
			allocated = decimal.Zero
		} else {
			allocated = allocated.Mul(*in.ProductionAprDec).Div(in.AnnualProduction)
		}
	}
	out := ProductLimit{
		ProductID:              p.ID,
		Name:                   p.Name,
		Regulated:              p.IsRegulated,
		Production:             production,
		AllocatedForCompliance: allocated.Round(EmissionScale),
		Limit:                  decimal.Zero,
	}
	if !p.IsRegulated {
		return out, nil
	}
	pwaei, ok := p.PWAEIFor(year)
	if !ok {
		return ProductLimit{}, dErrors.Newf(dErrors.CodeInvalidState, "no benchmark for %s in %d", p.Name, year)
	}

	share := decimal.Zero
	if in.AllocatedForCompliance.IsPositive() {
		share = decimal.Min(one, in.AllocatedIndustrialProcess.Div(in.AllocatedForCompliance))
	}
	rf := share.Add(one.Sub(share).Mul(p.ReductionFactor))
	tightening := decimal.NewFromInt(int64(year - catalog.InitialCompliancePeriod)).Mul(p.TighteningRate)
	limit := production.Mul(pwaei).Mul(rf.Sub(tightening))
	if limit.IsNegative() {
		limit = decimal.Zero
	}

	out.PWAEI = pwaei
	out.IndustrialProcessShare = share.Round(EmissionScale)
	out.ReductionFactor = rf.Round(EmissionScale)
	out.TighteningRate = p.TighteningRate
	out.Limit = limit.Round(EmissionScale)
	return out, nil
}

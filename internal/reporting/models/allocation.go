package models

import (
	"sort"

	"github.com/shopspring/decimal"

	"bciers/internal/reporting/catalog"
	dErrors "bciers/pkg/domain-errors"
)

type AllocationMethodology string

const (
	MethodologyCalculator    AllocationMethodology = "OBPS Allocation Calculator"
	MethodologyOther         AllocationMethodology = "Other"
	MethodologyNotApplicable AllocationMethodology = "Not Applicable"
)

func (m AllocationMethodology) IsValid() bool {
	switch m {
	case MethodologyCalculator, MethodologyOther, MethodologyNotApplicable:
		return true
	}
	return false
}

// AllocationTolerance is the largest accepted gap between a category total
// and the quantity allocated across products.
var AllocationTolerance = decimal.New(1, -EmissionScale)

// ProductAllocation is the share of one category's emissions assigned to a product.
type ProductAllocation struct {
	ProductID  int             `json:"product_id"`
	CategoryID int             `json:"emission_category_id"`
	Quantity   decimal.Decimal `json:"allocated_quantity"`
}

type EmissionAllocation struct {
	Methodology      AllocationMethodology `json:"methodology"`
	OtherDescription string                `json:"other_methodology_description,omitempty"`
	Allocations      []ProductAllocation   `json:"allocations"`
}

// NewAllocation validates an allocation of totals across products. With the
// Not Applicable methodology the single product receives every category in
// full and any supplied rows are ignored.
func NewAllocation(methodology AllocationMethodology, description string, products []ReportProduct, totals EmissionTotals, rows []ProductAllocation) (*EmissionAllocation, error) {
	if !methodology.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown allocation methodology %q", methodology)
	}
	if methodology == MethodologyOther && description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a description is required for the Other methodology")
	}
	if methodology != MethodologyOther {
		description = ""
	}
	if len(products) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "products must be reported before emissions are allocated")
	}

	if methodology == MethodologyNotApplicable {
		if len(products) != 1 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "Not Applicable is only valid for a single product")
		}
		rows = make([]ProductAllocation, 0, len(totals.Categories))
		for _, c := range totals.Categories {
			if c.Total.IsZero() {
				continue
			}
			rows = append(rows, ProductAllocation{ProductID: products[0].ProductID, CategoryID: c.CategoryID, Quantity: c.Total})
		}
	}

	if err := checkAllocation(products, totals, rows); err != nil {
		return nil, err
	}
	sorted := append([]ProductAllocation(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CategoryID != sorted[j].CategoryID {
			return sorted[i].CategoryID < sorted[j].CategoryID
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return &EmissionAllocation{Methodology: methodology, OtherDescription: description, Allocations: sorted}, nil
}

func checkAllocation(products []ReportProduct, totals EmissionTotals, rows []ProductAllocation) error {
	inVersion := make(map[int]bool, len(products))
	for _, p := range products {
		inVersion[p.ProductID] = true
	}

	allocated := map[int]decimal.Decimal{}
	type key struct{ product, category int }
	seen := map[key]bool{}
	for _, r := range rows {
		if !inVersion[r.ProductID] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "product %d is not part of this report", r.ProductID)
		}
		c, ok := catalog.Category(r.CategoryID)
		if !ok {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown category %d", r.CategoryID)
		}
		if r.Quantity.IsNegative() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "allocation to %q cannot be negative", c.Name)
		}
		if totals.CategoryTotal(r.CategoryID).IsZero() && !r.Quantity.IsZero() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%q has no emissions to allocate", c.Name)
		}
		k := key{r.ProductID, r.CategoryID}
		if seen[k] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "product %d is allocated %q twice", r.ProductID, c.Name)
		}
		seen[k] = true
		allocated[r.CategoryID] = allocated[r.CategoryID].Add(r.Quantity)
	}

	for _, c := range totals.Categories {
		if c.Total.IsZero() {
			continue
		}
		diff := allocated[c.CategoryID].Sub(c.Total)
		switch {
		case diff.GreaterThan(AllocationTolerance):
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%q is over-allocated by %s tCO2e", c.Name, diff.StringFixed(EmissionScale))
		case diff.Neg().GreaterThan(AllocationTolerance):
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%q is under-allocated by %s tCO2e", c.Name, diff.Neg().StringFixed(EmissionScale))
		}
	}
	return nil
}

// ProductEmissions summarises what one product was allocated.
type ProductEmissions struct {
	ProductID                  int             `json:"product_id"`
	AllocatedForReporting      decimal.Decimal `json:"allocated_for_reporting"`
	AllocatedReportingOnly     decimal.Decimal `json:"allocated_reporting_only"`
	AllocatedIndustrialProcess decimal.Decimal `json:"allocated_industrial_process"`
	AllocatedForCompliance     decimal.Decimal `json:"allocated_for_compliance"`
}

// ByProduct sums allocations per product, in the order of products.
func (a *EmissionAllocation) ByProduct(products []ReportProduct) []ProductEmissions {
	out := make([]ProductEmissions, len(products))
	index := make(map[int]int, len(products))
	for i, p := range products {
		out[i] = ProductEmissions{ProductID: p.ProductID}
		index[p.ProductID] = i
	}
	if a != nil {
		for _, r := range a.Allocations {
			i, ok := index[r.ProductID]
			if !ok {
				continue
			}
			c, ok := catalog.Category(r.CategoryID)
			if !ok {
				continue
			}
			pe := &out[i]
			if c.IsExcluded() {
				pe.AllocatedReportingOnly = pe.AllocatedReportingOnly.Add(r.Quantity)
			} else {
				pe.AllocatedForReporting = pe.AllocatedForReporting.Add(r.Quantity)
			}
			if r.CategoryID == catalog.IndustrialProcess {
				pe.AllocatedIndustrialProcess = pe.AllocatedIndustrialProcess.Add(r.Quantity)
			}
		}
	}
	for i := range out {
		out[i].AllocatedForCompliance = decimal.Max(decimal.Zero, out[i].AllocatedForReporting.Sub(out[i].AllocatedReportingOnly))
	}
	return out
}

// Package catalog holds the static emission category and regulated product
// reference data.
package catalog

import (
	"slices"

	"github.com/shopspring/decimal"
)

type CategoryType string

const (
	CategoryBasic         CategoryType = "basic"
	CategoryFuelExcluded  CategoryType = "fuel_excluded"
	CategoryOtherExcluded CategoryType = "other_excluded"
)

// EmissionCategory classifies an emission for attribution.
type EmissionCategory struct {
	ID   int          `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"category_type"`
	// LFOOnly categories may only be reported by linear facilities operations.
	LFOOnly bool `json:"lfo_only,omitempty"`
}

const (
	Flaring               = 1
	Fugitive              = 2
	IndustrialProcess     = 3
	OnSiteTransportation  = 4
	StationaryCombustion  = 5
	VentingUseful         = 6
	VentingNonUseful      = 7
	Waste                 = 8
	Wastewater            = 9
	WoodyBiomass          = 10
	ExcludedBiomass       = 11
	ExcludedNonBiomass    = 12
	LineTracingNonProcess = 13
)

var categories = []EmissionCategory{
	{ID: Flaring, Name: "Flaring emissions", Type: CategoryBasic},
	{ID: Fugitive, Name: "Fugitive emissions", Type: CategoryBasic},
	{ID: IndustrialProcess, Name: "Industrial process emissions", Type: CategoryBasic},
	{ID: OnSiteTransportation, Name: "On-site transportation emissions", Type: CategoryBasic},
	{ID: StationaryCombustion, Name: "Stationary fuel combustion emissions", Type: CategoryBasic},
	{ID: VentingUseful, Name: "Venting emissions (useful)", Type: CategoryBasic},
	{ID: VentingNonUseful, Name: "Venting emissions (non-useful)", Type: CategoryBasic},
	{ID: Waste, Name: "Emissions from waste", Type: CategoryBasic},
	{ID: Wastewater, Name: "Emissions from wastewater", Type: CategoryBasic},
	{ID: WoodyBiomass, Name: "CO2 emissions from excluded woody biomass", Type: CategoryFuelExcluded},
	{ID: ExcludedBiomass, Name: "Other emissions from excluded biomass", Type: CategoryFuelExcluded},
	{ID: ExcludedNonBiomass, Name: "Emissions from excluded non-biomass", Type: CategoryFuelExcluded},
	{ID: LineTracingNonProcess, Name: "Emissions from line tracing and non-processing and non-compression activities", Type: CategoryOtherExcluded, LFOOnly: true},
}

// Categories returns every emission category ordered by ID.
func Categories() []EmissionCategory {
	return slices.Clone(categories)
}

func Category(categoryID int) (EmissionCategory, bool) {
	for _, c := range categories {
		if c.ID == categoryID {
			return c, true
		}
	}
	return EmissionCategory{}, false
}

// IsExcluded reports fuel_excluded and other_excluded categories, whose
// emissions are reported but not attributable for compliance.
func (c EmissionCategory) IsExcluded() bool {
	return c.Type == CategoryFuelExcluded || c.Type == CategoryOtherExcluded
}

// InitialCompliancePeriod is the first reporting year with compliance obligations.
const InitialCompliancePeriod = 2024

// RegulatedProduct is a product whose production sets an emission limit.
type RegulatedProduct struct {
	ID              int                     `json:"id"`
	Name            string                  `json:"name"`
	Unit            string                  `json:"unit"`
	IsRegulated     bool                    `json:"is_regulated"`
	PWAEI           map[int]decimal.Decimal `json:"-"`
	ReductionFactor decimal.Decimal         `json:"reduction_factor"`
	TighteningRate  decimal.Decimal         `json:"tightening_rate"`
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pwaei(v string) map[int]decimal.Decimal {
	return map[int]decimal.Decimal{InitialCompliancePeriod: d(v)}
}

var products = []RegulatedProduct{
	{ID: 1, Name: "Aluminium ingots", Unit: "tonnes of aluminium", IsRegulated: true, PWAEI: pwaei("1.4898"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 2, Name: "Cement equivalent", Unit: "tonnes of cement equivalent", IsRegulated: true, PWAEI: pwaei("0.6826"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 3, Name: "Chemical pulp", Unit: "bone-dry tonnes", IsRegulated: true, PWAEI: pwaei("0.0955"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 4, Name: "Lime at 94.5% CaO and lime kiln dust", Unit: "tonnes of lime", IsRegulated: true, PWAEI: pwaei("1.1019"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 5, Name: "Sweet gas processing", Unit: "thousand cubic metres of gas", IsRegulated: true, PWAEI: pwaei("0.0619"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 6, Name: "Petroleum refining", Unit: "complexity-weighted barrels", IsRegulated: true, PWAEI: pwaei("0.0283"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 7, Name: "Coal mining", Unit: "tonnes of saleable coal", IsRegulated: true, PWAEI: pwaei("0.0342"), ReductionFactor: d("0.65"), TighteningRate: d("0.01")},
	{ID: 8, Name: "Hydrogen production", Unit: "tonnes of hydrogen", IsRegulated: true, PWAEI: pwaei("9.7100"), ReductionFactor: d("0.90"), TighteningRate: d("0.01")},
	{ID: 9, Name: "Reporting-only emissions", Unit: "not applicable", IsRegulated: false},
}

// Products returns every product ordered by ID.
func Products() []RegulatedProduct {
	return slices.Clone(products)
}

func Product(productID int) (RegulatedProduct, bool) {
	for _, p := range products {
		if p.ID == productID {
			return p, true
		}
	}
	return RegulatedProduct{}, false
}

// PWAEIFor returns the intensity in force for year: the value of the latest
// year not after it.
func (p RegulatedProduct) PWAEIFor(year int) (decimal.Decimal, bool) {
	best, found := 0, false
	for y := range p.PWAEI {
		if y <= year && (!found || y > best) {
			best, found = y, true
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return p.PWAEI[best], true
}

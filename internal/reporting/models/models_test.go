package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/internal/reporting/catalog"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

var now = time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)

func TestNewReport(t *testing.T) {
	_, err := NewReport(id.NewReportID(), id.NewOperatorID(), id.NewOperationID(), 2022, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewReport(id.NewReportID(), id.NewOperatorID(), id.NewOperationID(), 2025, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "current year has not ended")

	r, err := NewReport(id.NewReportID(), id.NewOperatorID(), id.NewOperationID(), 2024, now)
	require.NoError(t, err)
	assert.Equal(t, 2024, r.ReportingYear)
}

func TestVersionSubmit(t *testing.T) {
	v, err := NewDraftVersion(id.NewReportVersionID(), id.NewReportID(), 1, ReportTypeAnnual, now)
	require.NoError(t, err)
	assert.False(t, v.IsSupplementary())

	user := id.UserGUIDFrom(uuid.New())
	require.NoError(t, v.Submit(user, now))
	assert.Equal(t, VersionSubmitted, v.Status)
	require.NotNil(t, v.SubmittedBy)
	assert.Equal(t, user, *v.SubmittedBy)

	err = v.Submit(user, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = NewDraftVersion(id.NewReportVersionID(), id.NewReportID(), 1, "Quarterly", now)
	assert.Error(t, err)
}

func TestValidateProducts(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		err := ValidateProducts(2025, []ReportProduct{{ProductID: 99, AnnualProduction: dec("1")}})
		assert.ErrorContains(t, err, "unknown product")
	})
	t.Run("duplicate", func(t *testing.T) {
		err := ValidateProducts(2025, []ReportProduct{
			{ProductID: 1, AnnualProduction: dec("1")},
			{ProductID: 1, AnnualProduction: dec("2")},
		})
		assert.ErrorContains(t, err, "twice")
	})
	t.Run("2024 needs April to December production", func(t *testing.T) {
		err := ValidateProducts(2024, []ReportProduct{{ProductID: 1, AnnualProduction: dec("100")}})
		assert.ErrorContains(t, err, "April to December")

		err = ValidateProducts(2024, []ReportProduct{{ProductID: 1, AnnualProduction: dec("100"), ProductionAprDec: decPtr("120")}})
		assert.ErrorContains(t, err, "between 0 and the annual production")

		assert.NoError(t, ValidateProducts(2024, []ReportProduct{{ProductID: 1, AnnualProduction: dec("100"), ProductionAprDec: decPtr("75")}}))
	})
	t.Run("unregulated products skip proration data", func(t *testing.T) {
		assert.NoError(t, ValidateProducts(2024, []ReportProduct{{ProductID: 9, AnnualProduction: dec("0")}}))
	})
}

func TestValidateEmissions(t *testing.T) {
	ok := ReportEmission{GasType: "CO2", Quantity: dec("10"), CategoryIDs: []int{catalog.StationaryCombustion}}
	assert.NoError(t, ValidateEmissions([]ReportEmission{ok}, false))

	cases := map[string]ReportEmission{
		"unknown gas type":   {GasType: "H2O", Quantity: dec("1"), CategoryIDs: []int{1}},
		"cannot be negative": {GasType: "CO2", Quantity: dec("-1"), CategoryIDs: []int{1}},
		"at least one":       {GasType: "CO2", Quantity: dec("1")},
		"unknown category":   {GasType: "CO2", Quantity: dec("1"), CategoryIDs: []int{42}},
		"linear facilities":  {GasType: "CO2", Quantity: dec("1"), CategoryIDs: []int{catalog.LineTracingNonProcess}},
		"one source category": {GasType: "CO2", Quantity: dec("100"),
			CategoryIDs: []int{catalog.StationaryCombustion, catalog.IndustrialProcess}},
		"one excluded category": {GasType: "CO2", Quantity: dec("5"),
			CategoryIDs: []int{catalog.StationaryCombustion, catalog.WoodyBiomass, catalog.ExcludedBiomass}},
	}
	for want, e := range cases {
		want, e := want, e
		t.Run(want, func(t *testing.T) {
			err := ValidateEmissions([]ReportEmission{e}, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}

	lfo := ReportEmission{GasType: "CO2", Quantity: dec("1"), CategoryIDs: []int{catalog.LineTracingNonProcess}}
	assert.NoError(t, ValidateEmissions([]ReportEmission{lfo}, true))

	repeated := ReportEmission{GasType: "CH4", Quantity: dec("5"), CategoryIDs: []int{catalog.Fugitive, catalog.Fugitive}}
	assert.NoError(t, ValidateEmissions([]ReportEmission{repeated}, false))
	assert.NoError(t, ValidateEmissions(sampleEmissions(), false))
}

func sampleEmissions() []ReportEmission {
	return []ReportEmission{
		{GasType: "CO2", Quantity: dec("100"), CategoryIDs: []int{catalog.StationaryCombustion}},
		{GasType: "CO2", Quantity: dec("40"), CategoryIDs: []int{catalog.IndustrialProcess}},
		// Counted once toward reporting and once toward reporting-only.
		{GasType: "CO2", Quantity: dec("20"), CategoryIDs: []int{catalog.StationaryCombustion, catalog.WoodyBiomass}},
	}
}

func TestTotals(t *testing.T) {
	totals := Totals(sampleEmissions())

	require.Len(t, totals.Categories, 3)
	assert.Equal(t, catalog.IndustrialProcess, totals.Categories[0].CategoryID)
	assert.Equal(t, "120", totals.CategoryTotal(catalog.StationaryCombustion).String())
	assert.Equal(t, "40", totals.CategoryTotal(catalog.IndustrialProcess).String())
	assert.Equal(t, "20", totals.CategoryTotal(catalog.WoodyBiomass).String())
	assert.True(t, totals.CategoryTotal(catalog.Flaring).IsZero())

	assert.Equal(t, "160", totals.AttributableForReporting.String())
	assert.Equal(t, "20", totals.ReportingOnly.String())
	assert.Equal(t, "140", totals.AttributableForCompliance.String())
}

func TestTotalsCountsRepeatedCategoryOnce(t *testing.T) {
	totals := Totals([]ReportEmission{
		{GasType: "CH4", Quantity: dec("5"), CategoryIDs: []int{catalog.Fugitive, catalog.Fugitive}},
	})
	assert.Equal(t, "5", totals.AttributableForReporting.String())
	assert.Equal(t, "5", totals.CategoryTotal(catalog.Fugitive).String())
}

func TestProductAllocationsMatchTotals(t *testing.T) {
	emissions := sampleEmissions()
	require.NoError(t, ValidateEmissions(emissions, false))
	totals := Totals(emissions)

	for name, tc := range map[string]struct {
		methodology AllocationMethodology
		products    []ReportProduct
		rows        []ProductAllocation
	}{
		"single product": {MethodologyNotApplicable, []ReportProduct{{ProductID: 1}}, nil},
		"split across products": {MethodologyCalculator, []ReportProduct{{ProductID: 1}, {ProductID: 2}}, []ProductAllocation{
			{ProductID: 1, CategoryID: catalog.StationaryCombustion, Quantity: dec("70")},
			{ProductID: 2, CategoryID: catalog.StationaryCombustion, Quantity: dec("50")},
			{ProductID: 2, CategoryID: catalog.IndustrialProcess, Quantity: dec("40")},
			{ProductID: 1, CategoryID: catalog.WoodyBiomass, Quantity: dec("20")},
		}},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			a, err := NewAllocation(tc.methodology, "", tc.products, totals, tc.rows)
			require.NoError(t, err)
			sum := decimal.Zero
			for _, pe := range a.ByProduct(tc.products) {
				sum = sum.Add(pe.AllocatedForCompliance)
			}
			assert.True(t, totals.AttributableForCompliance.Equal(sum),
				"products %s, totals %s", sum, totals.AttributableForCompliance)
		})
	}
}

func TestTotalsComplianceFloorsAtZero(t *testing.T) {
	totals := Totals([]ReportEmission{
		{GasType: "CO2", Quantity: dec("10"), CategoryIDs: []int{catalog.ExcludedBiomass}},
	})
	assert.True(t, totals.AttributableForReporting.IsZero())
	assert.True(t, totals.AttributableForCompliance.IsZero())
}

func TestNewAllocation(t *testing.T) {
	totals := Totals(sampleEmissions())
	products := []ReportProduct{{ProductID: 1}, {ProductID: 2}}
	full := []ProductAllocation{
		{ProductID: 1, CategoryID: catalog.StationaryCombustion, Quantity: dec("60")},
		{ProductID: 2, CategoryID: catalog.StationaryCombustion, Quantity: dec("60")},
		{ProductID: 1, CategoryID: catalog.IndustrialProcess, Quantity: dec("40")},
		{ProductID: 1, CategoryID: catalog.WoodyBiomass, Quantity: dec("20")},
	}

	t.Run("complete allocation", func(t *testing.T) {
		a, err := NewAllocation(MethodologyCalculator, "ignored", products, totals, full)
		require.NoError(t, err)
		assert.Empty(t, a.OtherDescription)
		assert.Equal(t, catalog.IndustrialProcess, a.Allocations[0].CategoryID)
	})

	t.Run("within tolerance", func(t *testing.T) {
		rows := append([]ProductAllocation(nil), full...)
		rows[1].Quantity = dec("59.99995")
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, rows)
		assert.NoError(t, err)
	})

	t.Run("under-allocated names the category", func(t *testing.T) {
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, full[:3])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "under-allocated")
		assert.Contains(t, err.Error(), "woody biomass")
	})

	t.Run("over-allocated", func(t *testing.T) {
		rows := append([]ProductAllocation(nil), full...)
		rows[0].Quantity = dec("61")
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, rows)
		assert.ErrorContains(t, err, "over-allocated by 1.0000")
	})

	t.Run("category without emissions", func(t *testing.T) {
		rows := append(append([]ProductAllocation(nil), full...), ProductAllocation{ProductID: 1, CategoryID: catalog.Flaring, Quantity: dec("1")})
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, rows)
		assert.ErrorContains(t, err, "no emissions")
	})

	t.Run("product outside version", func(t *testing.T) {
		rows := append(append([]ProductAllocation(nil), full...), ProductAllocation{ProductID: 5, CategoryID: catalog.Fugitive, Quantity: dec("0")})
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, rows)
		assert.ErrorContains(t, err, "not part of this report")
	})

	t.Run("negative", func(t *testing.T) {
		rows := append([]ProductAllocation(nil), full...)
		rows[0].Quantity = dec("-1")
		_, err := NewAllocation(MethodologyCalculator, "", products, totals, rows)
		assert.ErrorContains(t, err, "negative")
	})

	t.Run("other requires description", func(t *testing.T) {
		_, err := NewAllocation(MethodologyOther, "", products, totals, full)
		assert.ErrorContains(t, err, "description")
		a, err := NewAllocation(MethodologyOther, "mass balance", products, totals, full)
		require.NoError(t, err)
		assert.Equal(t, "mass balance", a.OtherDescription)
	})

	t.Run("not applicable needs one product", func(t *testing.T) {
		_, err := NewAllocation(MethodologyNotApplicable, "", products, totals, nil)
		assert.ErrorContains(t, err, "single product")
	})
}

func TestNotApplicableAllocatesEverything(t *testing.T) {
	totals := Totals(sampleEmissions())
	a, err := NewAllocation(MethodologyNotApplicable, "", []ReportProduct{{ProductID: 3}}, totals, nil)
	require.NoError(t, err)
	require.Len(t, a.Allocations, 3)
	for _, r := range a.Allocations {
		assert.Equal(t, 3, r.ProductID)
		assert.True(t, r.Quantity.Equal(totals.CategoryTotal(r.CategoryID)))
	}
}

func TestByProduct(t *testing.T) {
	a := &EmissionAllocation{Allocations: []ProductAllocation{
		{ProductID: 1, CategoryID: catalog.StationaryCombustion, Quantity: dec("60")},
		{ProductID: 2, CategoryID: catalog.StationaryCombustion, Quantity: dec("60")},
		{ProductID: 1, CategoryID: catalog.IndustrialProcess, Quantity: dec("40")},
		{ProductID: 2, CategoryID: catalog.WoodyBiomass, Quantity: dec("70")},
	}}
	got := a.ByProduct([]ReportProduct{{ProductID: 1}, {ProductID: 2}})
	require.Len(t, got, 2)

	assert.Equal(t, "100", got[0].AllocatedForReporting.String())
	assert.Equal(t, "40", got[0].AllocatedIndustrialProcess.String())
	assert.Equal(t, "100", got[0].AllocatedForCompliance.String())

	assert.Equal(t, "70", got[1].AllocatedReportingOnly.String())
	assert.True(t, got[1].AllocatedForCompliance.IsZero())

	var none *EmissionAllocation
	assert.True(t, none.ByProduct([]ReportProduct{{ProductID: 1}})[0].AllocatedForReporting.IsZero())
}

package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	all := Categories()
	require.Len(t, all, 13)
	for i, c := range all {
		assert.Equal(t, i+1, c.ID)
	}

	ip, ok := Category(IndustrialProcess)
	require.True(t, ok)
	assert.Equal(t, CategoryBasic, ip.Type)
	assert.False(t, ip.IsExcluded())

	woody, _ := Category(WoodyBiomass)
	assert.True(t, woody.IsExcluded())
	tracing, _ := Category(LineTracingNonProcess)
	assert.True(t, tracing.LFOOnly)
	assert.True(t, tracing.IsExcluded())

	_, ok = Category(99)
	assert.False(t, ok)
}

func TestPWAEIFor(t *testing.T) {
	p := RegulatedProduct{PWAEI: map[int]decimal.Decimal{
		2024: decimal.RequireFromString("1.0"),
		2026: decimal.RequireFromString("0.9"),
	}}
	_, ok := p.PWAEIFor(2023)
	assert.False(t, ok)

	v, ok := p.PWAEIFor(2025)
	require.True(t, ok)
	assert.Equal(t, "1", v.String())

	v, _ = p.PWAEIFor(2030)
	assert.Equal(t, "0.9", v.String())
}

func TestProducts(t *testing.T) {
	for _, p := range Products() {
		if !p.IsRegulated {
			continue
		}
		_, ok := p.PWAEIFor(InitialCompliancePeriod)
		assert.True(t, ok, "%s has an intensity for the first period", p.Name)
		assert.True(t, p.ReductionFactor.IsPositive(), p.Name)
	}
	_, ok := Product(0)
	assert.False(t, ok)
}

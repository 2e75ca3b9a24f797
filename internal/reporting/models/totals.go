package models

import (
	"sort"

	"github.com/shopspring/decimal"

	"bciers/internal/reporting/catalog"
)

// EmissionScale is the number of decimal places kept for tCO2e figures.
const EmissionScale = 4

type CategoryTotal struct {
	CategoryID int             `json:"category_id"`
	Name       string          `json:"name"`
	Type       string          `json:"category_type"`
	Total      decimal.Decimal `json:"total"`
}

type EmissionTotals struct {
	Categories                []CategoryTotal `json:"categories"`
	AttributableForReporting  decimal.Decimal `json:"attributable_for_reporting"`
	ReportingOnly             decimal.Decimal `json:"reporting_only"`
	AttributableForCompliance decimal.Decimal `json:"attributable_for_compliance"`
}

// CategoryTotal returns the total for categoryID, zero when nothing was
// tagged with it.
func (t EmissionTotals) CategoryTotal(categoryID int) decimal.Decimal {
	for _, c := range t.Categories {
		if c.CategoryID == categoryID {
			return c.Total
		}
	}
	return decimal.Zero
}

// Totals aggregates emissions per category. An emission tagged with several
// categories counts toward each category total, but only once toward the
// reporting and reporting-only totals.
func Totals(emissions []ReportEmission) EmissionTotals {
	byCategory := map[int]decimal.Decimal{}
	reporting, reportingOnly := decimal.Zero, decimal.Zero
	for _, e := range emissions {
		basic, excluded := false, false
		for _, cid := range uniqueInts(e.CategoryIDs) {
			c, ok := catalog.Category(cid)
			if !ok {
				continue
			}
			byCategory[cid] = byCategory[cid].Add(e.Quantity)
			if c.IsExcluded() {
				excluded = true
			} else {
				basic = true
			}
		}
		if basic {
			reporting = reporting.Add(e.Quantity)
		}
		if excluded {
			reportingOnly = reportingOnly.Add(e.Quantity)
		}
	}

	ids := make([]int, 0, len(byCategory))
	for cid := range byCategory {
		ids = append(ids, cid)
	}
	sort.Ints(ids)
	out := EmissionTotals{
		Categories:               make([]CategoryTotal, 0, len(ids)),
		AttributableForReporting: reporting.Round(EmissionScale),
		ReportingOnly:            reportingOnly.Round(EmissionScale),
	}
	for _, cid := range ids {
		c, _ := catalog.Category(cid)
		out.Categories = append(out.Categories, CategoryTotal{
			CategoryID: cid,
			Name:       c.Name,
			Type:       string(c.Type),
			Total:      byCategory[cid].Round(EmissionScale),
		})
	}
	out.AttributableForCompliance = decimal.Max(decimal.Zero, out.AttributableForReporting.Sub(out.ReportingOnly))
	return out
}

func uniqueInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

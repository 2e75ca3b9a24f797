// Package models holds annual emission report aggregates and the emission
// aggregation and allocation rules.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bciers/internal/reporting/catalog"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

// FirstReportingYear is the earliest year a report may be started for.
const FirstReportingYear = 2023

type Report struct {
	ID            id.ReportID    `json:"id"`
	OperatorID    id.OperatorID  `json:"operator_id"`
	OperationID   id.OperationID `json:"operation_id"`
	ReportingYear int            `json:"reporting_year"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewReport(reportID id.ReportID, operatorID id.OperatorID, operationID id.OperationID, year int, now time.Time) (*Report, error) {
	if year < FirstReportingYear {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "reporting year must be %d or later", FirstReportingYear)
	}
	if year >= now.Year() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "reporting year %d has not ended", year)
	}
	return &Report{
		ID:            reportID,
		OperatorID:    operatorID,
		OperationID:   operationID,
		ReportingYear: year,
		CreatedAt:     now,
	}, nil
}

type VersionStatus string

const (
	VersionDraft     VersionStatus = "Draft"
	VersionSubmitted VersionStatus = "Submitted"
)

type ReportType string

const (
	ReportTypeAnnual ReportType = "Annual Report"
	ReportTypeSimple ReportType = "Simple Report"
)

func (t ReportType) IsValid() bool {
	return t == ReportTypeAnnual || t == ReportTypeSimple
}

type ReportVersion struct {
	ID            id.ReportVersionID `json:"id"`
	ReportID      id.ReportID        `json:"report_id"`
	VersionNumber int                `json:"version_number"`
	ReportType    ReportType         `json:"report_type"`
	Status        VersionStatus      `json:"status"`
	SubmittedAt   *time.Time         `json:"submitted_at,omitempty"`
	SubmittedBy   *id.UserGUID       `json:"submitted_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func NewDraftVersion(versionID id.ReportVersionID, reportID id.ReportID, number int, reportType ReportType, now time.Time) (*ReportVersion, error) {
	if !reportType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown report type %q", reportType)
	}
	return &ReportVersion{
		ID:            versionID,
		ReportID:      reportID,
		VersionNumber: number,
		ReportType:    reportType,
		Status:        VersionDraft,
		CreatedAt:     now,
	}, nil
}

func (v *ReportVersion) IsDraft() bool { return v.Status == VersionDraft }

// IsSupplementary reports whether the version amends an earlier submission.
func (v *ReportVersion) IsSupplementary() bool { return v.VersionNumber > 1 }

// RequireDraft rejects changes to a submitted version.
func (v *ReportVersion) RequireDraft() error {
	if !v.IsDraft() {
		return dErrors.New(dErrors.CodeInvalidState, "submitted report versions cannot be changed")
	}
	return nil
}

func (v *ReportVersion) Submit(by id.UserGUID, now time.Time) error {
	if err := v.RequireDraft(); err != nil {
		return err
	}
	v.Status = VersionSubmitted
	v.SubmittedAt = &now
	if !by.IsNil() {
		v.SubmittedBy = &by
	}
	return nil
}

// ReportProduct is the production of one product in a version.
type ReportProduct struct {
	ProductID             int              `json:"product_id"`
	AnnualProduction      decimal.Decimal  `json:"annual_production"`
	ProductionAprDec      *decimal.Decimal `json:"production_apr_dec,omitempty"`
	ProductionMethodology string           `json:"production_methodology"`
}

// ValidateProducts checks products against the catalog for year.
func ValidateProducts(year int, products []ReportProduct) error {
	seen := map[int]bool{}
	for _, p := range products {
		product, ok := catalog.Product(p.ProductID)
		if !ok {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown product %d", p.ProductID)
		}
		if seen[p.ProductID] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "product %q is listed twice", product.Name)
		}
		seen[p.ProductID] = true
		if p.AnnualProduction.IsNegative() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "production of %q cannot be negative", product.Name)
		}
		if year != catalog.InitialCompliancePeriod || !product.IsRegulated {
			continue
		}
		if p.ProductionAprDec == nil {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "April to December production of %q is required for %d", product.Name, year)
		}
		if p.ProductionAprDec.IsNegative() || p.ProductionAprDec.GreaterThan(p.AnnualProduction) {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "April to December production of %q must be between 0 and the annual production", product.Name)
		}
	}
	return nil
}

// ReportEmission is one reported quantity in tCO2e tagged with categories.
type ReportEmission struct {
	ID          uuid.UUID       `json:"id"`
	GasType     string          `json:"gas_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	CategoryIDs []int           `json:"category_ids"`
}

var gasTypes = map[string]bool{
	"CO2": true, "CH4": true, "N2O": true, "HFCs": true, "PFCs": true, "SF6": true, "CO2nonbio": true,
}

// ValidateEmissions checks quantities and category tags. lfo is set for
// linear facilities operations, the only ones allowed LFO-only categories.
func ValidateEmissions(emissions []ReportEmission, lfo bool) error {
	for i, e := range emissions {
		if !gasTypes[e.GasType] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: unknown gas type %q", i+1, e.GasType)
		}
		if e.Quantity.IsNegative() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: quantity cannot be negative", i+1)
		}
		if len(e.CategoryIDs) == 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: at least one category is required", i+1)
		}
		basic, excluded := 0, 0
		for _, cid := range uniqueInts(e.CategoryIDs) {
			c, ok := catalog.Category(cid)
			if !ok {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: unknown category %d", i+1, cid)
			}
			if c.LFOOnly && !lfo {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: %q applies to linear facilities operations only", i+1, c.Name)
			}
			if c.IsExcluded() {
				excluded++
			} else {
				basic++
			}
		}
		// Each category is allocated in full, so a second category of the
		// same kind would count the quantity twice per product.
		if basic > 1 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: only one source category is allowed", i+1)
		}
		if excluded > 1 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "emission %d: only one excluded category is allowed", i+1)
		}
	}
	return nil
}

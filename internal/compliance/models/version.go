package models

import (
	"time"

	"github.com/shopspring/decimal"

	"bciers/internal/compliance/calculator"
	id "bciers/pkg/domain"
)

// VersionInput identifies the report version a compliance record is for.
type VersionInput struct {
	ReportVersionID id.ReportVersionID
	ReportID        id.ReportID
	OperationID     id.OperationID
	OperatorID      id.OperatorID
	ReportingYear   int
	VersionNumber   int
}

// NewComplianceReportVersion records a summary. For a supplementary report
// the baseline is what earlier versions have billed and issued in total:
// only excess above the billed total raises an obligation and only whole
// credits above the issued total are returned for issuance.
func NewComplianceReportVersion(in VersionInput, s *calculator.Summary, previous *ComplianceReportVersion, now time.Time) (*ComplianceReportVersion, int64) {
	v := &ComplianceReportVersion{
		ID:                    id.NewComplianceReportVersionID(),
		ReportVersionID:       in.ReportVersionID,
		ReportID:              in.ReportID,
		OperationID:           in.OperationID,
		OperatorID:            in.OperatorID,
		ReportingYear:         in.ReportingYear,
		VersionNumber:         in.VersionNumber,
		EmissionsAttributable: s.EmissionsAttributable,
		EmissionLimit:         s.EmissionLimit,
		ExcessEmissions:       s.ExcessEmissions,
		CreditedEmissions:     s.CreditedEmissions,
		ExcessEmissionsDelta:  s.ExcessEmissions,
		CreatedAt:             now,
	}
	credits := s.EarnedCredits
	if previous != nil {
		prevID := previous.ID
		v.PreviousID = &prevID
		v.ExcessEmissionsDelta = s.ExcessEmissions.Sub(previous.BilledExcess)
		v.BilledExcess = previous.BilledExcess
		v.CreditsIssued = previous.CreditsIssued
		credits -= previous.CreditsIssued
	}

	switch {
	case v.BillableExcess().IsPositive():
		v.Status = StatusObligationPendingInvoice
		v.BilledExcess = v.BilledExcess.Add(v.BillableExcess())
		credits = 0
	case credits > 0:
		v.Status = StatusEarnedCredits
		v.CreditsIssued += credits
	default:
		v.Status = StatusNoObligation
		credits = 0
	}
	return v, credits
}

// BillableExcess is the excess emissions a new obligation is raised for.
func (v *ComplianceReportVersion) BillableExcess() decimal.Decimal {
	return decimal.Max(decimal.Zero, v.ExcessEmissionsDelta)
}

// Track mirrors the obligation status onto the version.
func (v *ComplianceReportVersion) Track(o *Obligation) {
	switch o.Status {
	case ObligationPendingInvoice:
		v.Status = StatusObligationPendingInvoice
	case ObligationNotMet:
		v.Status = StatusObligationNotMet
	case ObligationFullyMet:
		v.Status = StatusObligationFullyMet
	}
}

package service

import (
	"context"
	"strconv"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	"bciers/internal/reporting/catalog"
	reporting "bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

// VersionDetail is a compliance version with everything attached to it.
type VersionDetail struct {
	Version      *models.ComplianceReportVersion `json:"compliance_report_version"`
	Obligation   *models.Obligation              `json:"obligation,omitempty"`
	Invoice      *models.Invoice                 `json:"invoice,omitempty"`
	Penalty      *models.Penalty                 `json:"penalty,omitempty"`
	Applications []models.UnitApplication        `json:"compliance_unit_applications,omitempty"`
	EarnedCredit *models.EarnedCredit            `json:"earned_credit,omitempty"`
}

// applies reports whether a submission takes part in compliance at all.
func applies(sub *reporting.Submission) bool {
	return sub.Regulated && sub.Report.ReportingYear >= catalog.InitialCompliancePeriod
}

func (s *Service) summarize(sub *reporting.Submission) (*calculator.Summary, error) {
	inputs := make([]calculator.ProductInput, 0, len(sub.Products))
	for i, p := range sub.Products {
		in := calculator.ProductInput{
			ProductID:        p.ProductID,
			AnnualProduction: p.AnnualProduction,
			ProductionAprDec: p.ProductionAprDec,
		}
		if i < len(sub.Emissions) && sub.Emissions[i].ProductID == p.ProductID {
			in.AllocatedForCompliance = sub.Emissions[i].AllocatedForCompliance
			in.AllocatedIndustrialProcess = sub.Emissions[i].AllocatedIndustrialProcess
		}
		inputs = append(inputs, in)
	}
	return calculator.Summarize(s.rules, sub.Report.ReportingYear, inputs)
}

// GetSummary previews the compliance position of a report version, draft or
// submitted.
func (s *Service) GetSummary(ctx context.Context, reportVersionID id.ReportVersionID) (*calculator.Summary, error) {
	sub, err := s.reports.Submission(ctx, reportVersionID)
	if err != nil {
		return nil, err
	}
	if !applies(sub) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"compliance applies to regulated operations from %d", catalog.InitialCompliancePeriod)
	}
	return s.summarize(sub)
}

// RecordSubmission creates the compliance record of a version that has just
// been submitted. Versions outside compliance, and versions already
// recorded, are left alone.
func (s *Service) RecordSubmission(ctx context.Context, reportVersionID id.ReportVersionID) error {
	sub, err := s.reports.Submission(ctx, reportVersionID)
	if err != nil {
		return err
	}
	if !applies(sub) {
		return nil
	}
	if _, err := s.store.FindVersionByReportVersion(ctx, reportVersionID); err == nil {
		return nil
	} else if !notFound(err) {
		return translate(err, "compliance report version")
	}
	_, err = s.record(ctx, sub)
	return err
}

// CreateComplianceReportVersion records the compliance outcome of a
// submitted report version.
func (s *Service) CreateComplianceReportVersion(ctx context.Context, reportVersionID id.ReportVersionID) (*VersionDetail, error) {
	var detail *VersionDetail
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.reports.Submission(txCtx, reportVersionID)
		if err != nil {
			return err
		}
		if !applies(sub) {
			return dErrors.Newf(dErrors.CodeInvalidState,
				"compliance applies to regulated operations from %d", catalog.InitialCompliancePeriod)
		}
		detail, err = s.record(txCtx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) record(ctx context.Context, sub *reporting.Submission) (*VersionDetail, error) {
	if sub.Version.IsDraft() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only submitted report versions have a compliance record")
	}
	summary, err := s.summarize(sub)
	if err != nil {
		return nil, err
	}
	detail := &VersionDetail{}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		previous, err := s.store.LatestVersion(txCtx, sub.Report.ID)
		switch {
		case notFound(err):
			previous = nil
		case err != nil:
			return translate(err, "compliance report version")
		}
		now := requestcontext.Now(txCtx)
		v, credits := models.NewComplianceReportVersion(models.VersionInput{
			ReportVersionID: sub.Version.ID,
			ReportID:        sub.Report.ID,
			OperationID:     sub.Report.OperationID,
			OperatorID:      sub.Report.OperatorID,
			ReportingYear:   sub.Report.ReportingYear,
			VersionNumber:   sub.Version.VersionNumber,
		}, summary, previous, now)
		detail.Version = v

		var obligation *models.Obligation
		if v.Status == models.StatusObligationPendingInvoice {
			fee := calculator.ObligationFee(v.BillableExcess(), summary.ChargeRate)
			if fee.IsPositive() {
				obligationID, err := calculator.FormatObligationID(sub.BOROID, sub.Report.ReportingYear, sub.Version.VersionNumber)
				if err != nil {
					return err
				}
				if obligation, err = models.NewObligation(v, obligationID, fee, summary.ChargeRate, now); err != nil {
					return translate(err, "obligation")
				}
			} else {
				v.Status = models.StatusNoObligation
			}
		}

		if err := s.store.CreateVersion(txCtx, v); err != nil {
			return translate(err, "compliance report version")
		}
		if err := s.emit(txCtx, audit.ActionComplianceReportVersionCreated, v.ID.String(), map[string]string{
			"report_version_id": v.ReportVersionID.String(),
			"reporting_year":    strconv.Itoa(v.ReportingYear),
			"status":            string(v.Status),
			"excess_emissions":  v.ExcessEmissions.String(),
			"credited":          v.CreditedEmissions.String(),
		}); err != nil {
			return err
		}

		if obligation != nil {
			if err := s.store.CreateObligation(txCtx, obligation); err != nil {
				return translate(err, "obligation")
			}
			if err := s.emit(txCtx, audit.ActionObligationCreated, obligation.ID.String(), map[string]string{
				"obligation_id": obligation.ObligationID,
				"fee_amount":    obligation.FeeAmount.StringFixed(calculator.MoneyScale),
				"fee_rate":      obligation.FeeRate.String(),
				"deadline":      obligation.Deadline.Format("2006-01-02"),
			}); err != nil {
				return err
			}
			detail.Obligation = obligation
			s.queueInvoice(txCtx, obligation.ID)
		}

		if v.Status == models.StatusEarnedCredits {
			credit, err := models.NewEarnedCredit(v.ID, credits)
			if err != nil {
				return translate(err, "earned credit")
			}
			if err := s.store.CreateEarnedCredit(txCtx, credit); err != nil {
				return translate(err, "earned credit")
			}
			detail.EarnedCredit = credit
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncVersionRecorded(string(detail.Version.Status))
	if detail.Obligation != nil {
		s.metrics.AddObligationFee(detail.Obligation.FeeAmount.InexactFloat64())
	}
	s.logger.InfoContext(ctx, "compliance report version created",
		"compliance_report_version_id", detail.Version.ID.String(),
		"report_version_id", detail.Version.ReportVersionID.String(),
		"status", string(detail.Version.Status),
	)
	return detail, nil
}

// queueInvoice hands invoice creation to the task queue once the current
// transaction commits. The task runs as the system, not as the submitter.
func (s *Service) queueInvoice(ctx context.Context, obligationID id.ObligationID) {
	tx.AfterCommit(ctx, func(ctx context.Context) {
		taskCtx := requestcontext.WithTime(
			requestcontext.WithRequestID(context.Background(), requestcontext.RequestID(ctx)),
			requestcontext.Now(ctx),
		)
		err := s.tasks.Submit(taskCtx, "issue_obligation_invoice", func(ctx context.Context) error {
			_, err := s.IssueInvoice(ctx, obligationID)
			return err
		})
		if err != nil {
			s.logger.WarnContext(ctx, "obligation invoice not issued, left for the refresh job",
				"obligation_id", obligationID.String(),
				"error", err,
			)
		}
	})
}

// GetComplianceReportVersion returns a version with its obligation or
// earned credit.
func (s *Service) GetComplianceReportVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*VersionDetail, error) {
	v, _, err := s.visible(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, v)
}

func (s *Service) detail(ctx context.Context, v *models.ComplianceReportVersion) (*VersionDetail, error) {
	d := &VersionDetail{Version: v}
	o, err := s.store.FindObligationByVersion(ctx, v.ID)
	switch {
	case err == nil:
		d.Obligation = o
		if err := s.obligationParts(ctx, d); err != nil {
			return nil, err
		}
	case !notFound(err):
		return nil, translate(err, "obligation")
	}
	c, err := s.store.FindEarnedCreditByVersion(ctx, v.ID)
	switch {
	case err == nil:
		d.EarnedCredit = c
	case !notFound(err):
		return nil, translate(err, "earned credit")
	}
	return d, nil
}

func (s *Service) obligationParts(ctx context.Context, d *VersionDetail) error {
	o := d.Obligation
	if o.HasInvoice() {
		inv, err := s.store.FindInvoice(ctx, *o.InvoiceID)
		if err != nil {
			return translate(err, "invoice")
		}
		d.Invoice = inv
	}
	p, err := s.store.FindPenalty(ctx, o.ID)
	switch {
	case err == nil:
		d.Penalty = p
	case !notFound(err):
		return translate(err, "penalty")
	}
	apps, err := s.store.ListUnitApplications(ctx, o.ID)
	if err != nil {
		return translate(err, "compliance unit applications")
	}
	d.Applications = apps
	return nil
}

// ListComplianceReportVersions lists the compliance versions of an operation.
func (s *Service) ListComplianceReportVersions(ctx context.Context, operationID id.OperationID) ([]*models.ComplianceReportVersion, error) {
	if _, err := s.operations.GetOperation(ctx, operationID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, operationID)
	if err != nil {
		return nil, translate(err, "compliance report versions")
	}
	return versions, nil
}

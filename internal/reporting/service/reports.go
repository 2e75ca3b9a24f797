package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	registration "bciers/internal/registration/models"
	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

// StartReport opens the report of operationID for year with a first draft.
func (s *Service) StartReport(ctx context.Context, operationID id.OperationID, year int, reportType models.ReportType) (*models.Report, *models.ReportVersion, error) {
	if err := requireAuthor(ctx); err != nil {
		return nil, nil, err
	}
	var (
		report  *models.Report
		version *models.ReportVersion
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		op, err := s.operations.GetOperation(txCtx, operationID)
		if err != nil {
			return err
		}
		if op.Status != registration.OperationRegistered {
			return dErrors.New(dErrors.CodeInvalidState, "only registered operations can report")
		}
		now := requestcontext.Now(txCtx)
		r, err := models.NewReport(id.NewReportID(), op.OperatorID, op.ID, year, now)
		if err != nil {
			return translate(err, "report")
		}
		if err := s.store.CreateReport(txCtx, r); err != nil {
			return translate(err, "report")
		}
		v, err := models.NewDraftVersion(id.NewReportVersionID(), r.ID, 1, reportType, now)
		if err != nil {
			return translate(err, "report version")
		}
		if err := s.store.CreateVersion(txCtx, v); err != nil {
			return translate(err, "report version")
		}
		report, version = r, v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "report started",
		"report_id", report.ID.String(),
		"operation_id", operationID.String(),
		"reporting_year", year,
	)
	return report, version, nil
}

func (s *Service) GetReport(ctx context.Context, reportID id.ReportID) (*models.Report, []*models.ReportVersion, error) {
	var (
		report   *models.Report
		versions []*models.ReportVersion
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.store.FindReport(txCtx, reportID)
		if err != nil {
			return translate(err, "report")
		}
		if _, err := s.operations.GetOperation(txCtx, r.OperationID); err != nil {
			return err
		}
		vs, err := s.store.ListVersions(txCtx, reportID)
		if err != nil {
			return translate(err, "report versions")
		}
		report, versions = r, vs
		return nil
	})
	return report, versions, err
}

func (s *Service) ListReports(ctx context.Context, operationID id.OperationID) ([]*models.Report, error) {
	var reports []*models.Report
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.operations.GetOperation(txCtx, operationID); err != nil {
			return err
		}
		rs, err := s.store.ListReports(txCtx, operationID)
		if err != nil {
			return translate(err, "reports")
		}
		reports = rs
		return nil
	})
	return reports, err
}

// CreateSupplementaryVersion copies the latest submitted version of reportID
// into a new draft.
func (s *Service) CreateSupplementaryVersion(ctx context.Context, reportID id.ReportID) (*models.ReportVersion, error) {
	if err := requireAuthor(ctx); err != nil {
		return nil, err
	}
	var version *models.ReportVersion
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.store.FindReport(txCtx, reportID)
		if err != nil {
			return translate(err, "report")
		}
		if _, err := s.operations.GetOperation(txCtx, r.OperationID); err != nil {
			return err
		}
		versions, err := s.store.ListVersions(txCtx, reportID)
		if err != nil {
			return translate(err, "report versions")
		}
		if len(versions) == 0 {
			return dErrors.New(dErrors.CodeNotFound, "report has no versions")
		}
		latest := versions[len(versions)-1]
		if latest.IsDraft() {
			return dErrors.New(dErrors.CodeInvalidState, "report already has a draft version")
		}

		v, err := models.NewDraftVersion(id.NewReportVersionID(), reportID, latest.VersionNumber+1, latest.ReportType, requestcontext.Now(txCtx))
		if err != nil {
			return translate(err, "report version")
		}
		if err := s.store.CreateVersion(txCtx, v); err != nil {
			return translate(err, "report version")
		}
		if err := s.copyVersion(txCtx, latest.ID, v.ID); err != nil {
			return err
		}
		version = v
		return nil
	})
	return version, err
}

func (s *Service) copyVersion(ctx context.Context, from, to id.ReportVersionID) error {
	products, err := s.store.ListProducts(ctx, from)
	if err != nil {
		return translate(err, "report products")
	}
	if err := s.store.ReplaceProducts(ctx, to, products); err != nil {
		return translate(err, "report products")
	}
	emissions, err := s.store.ListEmissions(ctx, from)
	if err != nil {
		return translate(err, "report emissions")
	}
	for i := range emissions {
		emissions[i].ID = uuid.New()
	}
	if err := s.store.ReplaceEmissions(ctx, to, emissions); err != nil {
		return translate(err, "report emissions")
	}
	allocation, err := s.store.FindAllocation(ctx, from)
	if err != nil {
		if dErrors.HasCode(translate(err, "allocation"), dErrors.CodeNotFound) {
			return nil
		}
		return translate(err, "allocation")
	}
	return translate(s.store.SaveAllocation(ctx, to, allocation), "allocation")
}

// VersionDetail is a version with its content and derived totals.
type VersionDetail struct {
	Report     *models.Report             `json:"report"`
	Version    *models.ReportVersion      `json:"version"`
	Products   []models.ReportProduct     `json:"products"`
	Emissions  []models.ReportEmission    `json:"emissions"`
	Allocation *models.EmissionAllocation `json:"allocation,omitempty"`
	Totals     models.EmissionTotals      `json:"totals"`
}

func (s *Service) GetVersion(ctx context.Context, versionID id.ReportVersionID) (*VersionDetail, error) {
	var detail *VersionDetail
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.load(txCtx, versionID, false)
		if err != nil {
			return err
		}
		products, emissions, allocation, err := s.content(txCtx, versionID)
		if err != nil {
			return err
		}
		detail = &VersionDetail{
			Report:     sc.report,
			Version:    sc.version,
			Products:   products,
			Emissions:  emissions,
			Allocation: allocation,
			Totals:     models.Totals(emissions),
		}
		return nil
	})
	return detail, err
}

// content loads products, emissions and the allocation, which may be nil.
func (s *Service) content(ctx context.Context, versionID id.ReportVersionID) ([]models.ReportProduct, []models.ReportEmission, *models.EmissionAllocation, error) {
	products, err := s.store.ListProducts(ctx, versionID)
	if err != nil {
		return nil, nil, nil, translate(err, "report products")
	}
	emissions, err := s.store.ListEmissions(ctx, versionID)
	if err != nil {
		return nil, nil, nil, translate(err, "report emissions")
	}
	allocation, err := s.store.FindAllocation(ctx, versionID)
	if err != nil {
		err = translate(err, "allocation")
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil, nil, err
		}
		allocation = nil
	}
	return products, emissions, allocation, nil
}

// SaveProducts replaces the products of a draft. Any allocation is dropped
// since it no longer matches.
func (s *Service) SaveProducts(ctx context.Context, versionID id.ReportVersionID, products []models.ReportProduct) ([]models.ReportProduct, error) {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.load(txCtx, versionID, true)
		if err != nil {
			return err
		}
		if err := models.ValidateProducts(sc.report.ReportingYear, products); err != nil {
			return translate(err, "report products")
		}
		if err := s.store.DeleteAllocation(txCtx, versionID); err != nil {
			return translate(err, "allocation")
		}
		return translate(s.store.ReplaceProducts(txCtx, versionID, products), "report products")
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// SaveEmissions replaces the emissions of a draft and drops any allocation.
func (s *Service) SaveEmissions(ctx context.Context, versionID id.ReportVersionID, emissions []models.ReportEmission) (models.EmissionTotals, error) {
	var totals models.EmissionTotals
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.load(txCtx, versionID, true)
		if err != nil {
			return err
		}
		lfo := sc.operation.Type == registration.OperationLFO
		if err := models.ValidateEmissions(emissions, lfo); err != nil {
			return translate(err, "report emissions")
		}
		for i := range emissions {
			emissions[i].ID = uuid.New()
		}
		if err := s.store.DeleteAllocation(txCtx, versionID); err != nil {
			return translate(err, "allocation")
		}
		if err := s.store.ReplaceEmissions(txCtx, versionID, emissions); err != nil {
			return translate(err, "report emissions")
		}
		totals = models.Totals(emissions)
		return nil
	})
	return totals, err
}

func (s *Service) EmissionTotals(ctx context.Context, versionID id.ReportVersionID) (models.EmissionTotals, error) {
	var totals models.EmissionTotals
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, versionID, false); err != nil {
			return err
		}
		emissions, err := s.store.ListEmissions(txCtx, versionID)
		if err != nil {
			return translate(err, "report emissions")
		}
		totals = models.Totals(emissions)
		return nil
	})
	return totals, err
}

// SaveAllocation validates and stores how each category's emissions are
// split across the version's products.
func (s *Service) SaveAllocation(ctx context.Context, versionID id.ReportVersionID, methodology models.AllocationMethodology, description string, rows []models.ProductAllocation) (*models.EmissionAllocation, error) {
	var allocation *models.EmissionAllocation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, versionID, true); err != nil {
			return err
		}
		products, emissions, _, err := s.content(txCtx, versionID)
		if err != nil {
			return err
		}
		a, err := models.NewAllocation(methodology, description, products, models.Totals(emissions), rows)
		if err != nil {
			return translate(err, "allocation")
		}
		if err := s.store.SaveAllocation(txCtx, versionID, a); err != nil {
			return translate(err, "allocation")
		}
		allocation = a
		return nil
	})
	return allocation, err
}

// Submit finalizes a draft and creates its compliance record in the same
// transaction.
func (s *Service) Submit(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	var version *models.ReportVersion
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sc, err := s.load(txCtx, versionID, true)
		if err != nil {
			return err
		}
		if err := s.validateForSubmit(txCtx, sc); err != nil {
			return err
		}
		if err := sc.version.Submit(requestcontext.UserGUID(txCtx), requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.store.UpdateVersion(txCtx, sc.version); err != nil {
			return translate(err, "report version")
		}
		if s.compliance != nil && sc.operation.RegistrationPurpose.IsRegulated() {
			if err := s.compliance.RecordSubmission(txCtx, versionID); err != nil {
				return err
			}
		}
		version = sc.version
		return s.emit(txCtx, audit.ActionReportSubmitted, versionID.String(), map[string]string{
			"report_id":      sc.report.ID.String(),
			"operation_id":   sc.report.OperationID.String(),
			"reporting_year": strconv.Itoa(sc.report.ReportingYear),
			"version_number": strconv.Itoa(sc.version.VersionNumber),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "report submitted",
		"report_version_id", versionID.String(),
		"version_number", version.VersionNumber,
	)
	return version, nil
}

func (s *Service) validateForSubmit(ctx context.Context, sc *scope) error {
	products, emissions, allocation, err := s.content(ctx, sc.version.ID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one product is required before submitting")
	}
	if err := models.ValidateProducts(sc.report.ReportingYear, products); err != nil {
		return translate(err, "report products")
	}
	totals := models.Totals(emissions)
	if allocation == nil {
		if len(totals.Categories) > 0 {
			return dErrors.New(dErrors.CodeValidation, "emissions must be allocated to products before submitting")
		}
		return nil
	}
	if _, err := models.NewAllocation(allocation.Methodology, allocation.OtherDescription, products, totals, allocation.Allocations); err != nil {
		return translate(err, "allocation")
	}
	return nil
}

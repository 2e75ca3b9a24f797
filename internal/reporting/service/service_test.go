package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks OperationReader,ComplianceRecorder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	registration "bciers/internal/registration/models"
	"bciers/internal/reporting/catalog"
	"bciers/internal/reporting/models"
	"bciers/internal/reporting/service/mocks"
	"bciers/internal/reporting/store"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/platform/audit/publishers/compliance"
	"bciers/pkg/platform/audit/store/memory"
	"bciers/pkg/requestcontext"
)

type ReportingSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	operations *mocks.MockOperationReader
	recorder   *mocks.MockComplianceRecorder
	store      *store.InMemoryStore
	audit      *memory.InMemoryStore
	service    *Service
	operation  *registration.Operation
	user       id.UserGUID
}

func TestReportingSuite(t *testing.T) {
	suite.Run(t, new(ReportingSuite))
}

func (s *ReportingSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.operations = mocks.NewMockOperationReader(s.ctrl)
	s.recorder = mocks.NewMockComplianceRecorder(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.audit = memory.NewInMemoryStore()
	s.service = New(s.store, s.operations,
		WithComplianceRecorder(s.recorder),
		WithAuditPublisher(compliance.New(s.audit)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.user = id.UserGUIDFrom(uuid.New())
	s.operation = &registration.Operation{
		ID:                  id.NewOperationID(),
		OperatorID:          id.NewOperatorID(),
		Name:                "Mill",
		Type:                registration.OperationSFO,
		RegistrationPurpose: registration.PurposeOBPSRegulated,
		Status:              registration.OperationRegistered,
	}
	s.operations.EXPECT().GetOperation(gomock.Any(), s.operation.ID).Return(s.operation, nil).AnyTimes()
}

func (s *ReportingSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ReportingSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC))
	return requestcontext.WithUser(ctx, s.user, "industry_user")
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *ReportingSuite) start(year int) (*models.Report, *models.ReportVersion) {
	r, v, err := s.service.StartReport(s.ctx(), s.operation.ID, year, models.ReportTypeAnnual)
	s.Require().NoError(err)
	return r, v
}

// fill saves one product, two emissions and a Not Applicable allocation.
func (s *ReportingSuite) fill(versionID id.ReportVersionID) {
	ctx := s.ctx()
	aprDec := dec("750")
	_, err := s.service.SaveProducts(ctx, versionID, []models.ReportProduct{
		{ProductID: 3, AnnualProduction: dec("1000"), ProductionAprDec: &aprDec},
	})
	s.Require().NoError(err)
	_, err = s.service.SaveEmissions(ctx, versionID, []models.ReportEmission{
		{GasType: "CO2", Quantity: dec("80"), CategoryIDs: []int{catalog.StationaryCombustion}},
		{GasType: "CO2", Quantity: dec("20"), CategoryIDs: []int{catalog.IndustrialProcess}},
	})
	s.Require().NoError(err)
	_, err = s.service.SaveAllocation(ctx, versionID, models.MethodologyNotApplicable, "", nil)
	s.Require().NoError(err)
}

func (s *ReportingSuite) TestStartReport() {
	s.Run("creates the first draft", func() {
		r, v := s.start(2024)
		s.Equal(s.operation.OperatorID, r.OperatorID)
		s.Equal(1, v.VersionNumber)
		s.Equal(models.VersionDraft, v.Status)
	})

	s.Run("one report per operation and year", func() {
		_, _, err := s.service.StartReport(s.ctx(), s.operation.ID, 2024, models.ReportTypeAnnual)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("year must have ended", func() {
		_, _, err := s.service.StartReport(s.ctx(), s.operation.ID, 2025, models.ReportTypeAnnual)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("CAS users cannot start reports", func() {
		ctx := requestcontext.WithUser(context.Background(), id.UserGUIDFrom(uuid.New()), "cas_analyst")
		_, _, err := s.service.StartReport(ctx, s.operation.ID, 2023, models.ReportTypeAnnual)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("membership failures propagate", func() {
		other := id.NewOperationID()
		s.operations.EXPECT().GetOperation(gomock.Any(), other).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "user is not a member of this operator"))
		_, _, err := s.service.StartReport(s.ctx(), other, 2024, models.ReportTypeAnnual)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ReportingSuite) TestStartReportRequiresRegisteredOperation() {
	draft := &registration.Operation{ID: id.NewOperationID(), Status: registration.OperationDraft}
	s.operations.EXPECT().GetOperation(gomock.Any(), draft.ID).Return(draft, nil)
	_, _, err := s.service.StartReport(s.ctx(), draft.ID, 2024, models.ReportTypeAnnual)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ReportingSuite) TestSaveContent() {
	_, v := s.start(2024)
	ctx := s.ctx()

	s.Run("2024 regulated products need April to December production", func() {
		_, err := s.service.SaveProducts(ctx, v.ID, []models.ReportProduct{{ProductID: 1, AnnualProduction: dec("10")}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("LFO-only categories are rejected for other operations", func() {
		_, err := s.service.SaveEmissions(ctx, v.ID, []models.ReportEmission{
			{GasType: "CO2", Quantity: dec("1"), CategoryIDs: []int{catalog.LineTracingNonProcess}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("emissions return totals", func() {
		totals, err := s.service.SaveEmissions(ctx, v.ID, []models.ReportEmission{
			{GasType: "CO2", Quantity: dec("100"), CategoryIDs: []int{catalog.StationaryCombustion}},
			{GasType: "CO2", Quantity: dec("25"), CategoryIDs: []int{catalog.WoodyBiomass}},
		})
		s.Require().NoError(err)
		s.Equal("100", totals.AttributableForReporting.String())
		s.Equal("25", totals.ReportingOnly.String())

		again, err := s.service.EmissionTotals(ctx, v.ID)
		s.Require().NoError(err)
		s.Equal(totals.AttributableForCompliance.String(), again.AttributableForCompliance.String())
		s.Len(again.Categories, 2)
	})

	s.Run("saving products drops the allocation", func() {
		_, err := s.service.SaveProducts(ctx, v.ID, []models.ReportProduct{{ProductID: 9, AnnualProduction: dec("0")}})
		s.Require().NoError(err)
		_, err = s.service.SaveAllocation(ctx, v.ID, models.MethodologyNotApplicable, "", nil)
		s.Require().NoError(err)

		_, err = s.service.SaveProducts(ctx, v.ID, []models.ReportProduct{{ProductID: 9, AnnualProduction: dec("1")}})
		s.Require().NoError(err)
		detail, err := s.service.GetVersion(ctx, v.ID)
		s.Require().NoError(err)
		s.Nil(detail.Allocation)
	})

	s.Run("incomplete allocation names the category", func() {
		_, err := s.service.SaveAllocation(ctx, v.ID, models.MethodologyCalculator, "", []models.ProductAllocation{
			{ProductID: 9, CategoryID: catalog.StationaryCombustion, Quantity: dec("100")},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorContains(err, "woody biomass")
	})
}

func (s *ReportingSuite) TestSubmit() {
	_, v := s.start(2023)
	s.Run("allocation is required when there are emissions", func() {
		ctx := s.ctx()
		_, err := s.service.SaveProducts(ctx, v.ID, []models.ReportProduct{{ProductID: 3, AnnualProduction: dec("1000")}})
		s.Require().NoError(err)
		_, err = s.service.SaveEmissions(ctx, v.ID, []models.ReportEmission{
			{GasType: "CO2", Quantity: dec("5"), CategoryIDs: []int{catalog.Flaring}},
		})
		s.Require().NoError(err)
		_, err = s.service.Submit(ctx, v.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("submission creates the compliance record and freezes the version", func() {
		s.fill(v.ID)
		s.recorder.EXPECT().RecordSubmission(gomock.Any(), v.ID).Return(nil)

		got, err := s.service.Submit(s.ctx(), v.ID)
		s.Require().NoError(err)
		s.Equal(models.VersionSubmitted, got.Status)
		s.Equal(s.user, *got.SubmittedBy)
		s.Contains(s.audit.Actions(), audit.ActionReportSubmitted)

		_, err = s.service.SaveProducts(s.ctx(), v.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		_, err = s.service.Submit(s.ctx(), v.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ReportingSuite) TestSubmitFailsWhenComplianceFails() {
	_, v := s.start(2024)
	s.fill(v.ID)
	s.recorder.EXPECT().RecordSubmission(gomock.Any(), v.ID).
		Return(dErrors.New(dErrors.CodeInternal, "compliance unavailable"))

	_, err := s.service.Submit(s.ctx(), v.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.NotContains(s.audit.Actions(), audit.ActionReportSubmitted)
}

func (s *ReportingSuite) TestSubmitSkipsComplianceForReportingOperations() {
	s.operation.RegistrationPurpose = registration.PurposeReporting
	_, v := s.start(2024)
	s.fill(v.ID)

	_, err := s.service.Submit(s.ctx(), v.ID)
	s.Require().NoError(err)
}

func (s *ReportingSuite) TestSupplementaryVersion() {
	r, v := s.start(2024)

	s.Run("needs a submitted version", func() {
		_, err := s.service.CreateSupplementaryVersion(s.ctx(), r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.fill(v.ID)
	s.recorder.EXPECT().RecordSubmission(gomock.Any(), v.ID).Return(nil)
	_, err := s.service.Submit(s.ctx(), v.ID)
	s.Require().NoError(err)

	s.Run("copies the submitted content into a new draft", func() {
		next, err := s.service.CreateSupplementaryVersion(s.ctx(), r.ID)
		s.Require().NoError(err)
		s.Equal(2, next.VersionNumber)
		s.True(next.IsSupplementary())

		detail, err := s.service.GetVersion(s.ctx(), next.ID)
		s.Require().NoError(err)
		s.Len(detail.Products, 1)
		s.Len(detail.Emissions, 2)
		s.Require().NotNil(detail.Allocation)
		s.Equal(models.MethodologyNotApplicable, detail.Allocation.Methodology)
		s.Equal("100", detail.Totals.AttributableForReporting.String())

		_, versions, err := s.service.GetReport(s.ctx(), r.ID)
		s.Require().NoError(err)
		s.Len(versions, 2)
	})

	s.Run("only one draft at a time", func() {
		_, err := s.service.CreateSupplementaryVersion(s.ctx(), r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ReportingSuite) TestSourceSubmission() {
	_, v := s.start(2024)
	s.fill(v.ID)
	boro := "25-0001"
	s.operation.BOROID = &boro

	sub, err := NewSource(s.store, s.operations).Submission(s.ctx(), v.ID)
	s.Require().NoError(err)
	s.Equal(2024, sub.Report.ReportingYear)
	s.Equal("25-0001", sub.BOROID)
	s.True(sub.Regulated)
	s.Require().Len(sub.Emissions, 1)
	s.Equal("100", sub.Emissions[0].AllocatedForCompliance.String())
	s.Equal("20", sub.Emissions[0].AllocatedIndustrialProcess.String())
}

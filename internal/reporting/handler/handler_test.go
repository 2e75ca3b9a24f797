package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

// stubService records the last call; unimplemented methods panic through the
// embedded nil interface.
type stubService struct {
	Service
	products    []models.ReportProduct
	emissions   []models.ReportEmission
	methodology models.AllocationMethodology
	rows        []models.ProductAllocation
	year        int
	err         error
}

func (s *stubService) StartReport(_ context.Context, operationID id.OperationID, year int, reportType models.ReportType) (*models.Report, *models.ReportVersion, error) {
	s.year = year
	if s.err != nil {
		return nil, nil, s.err
	}
	r := &models.Report{ID: id.NewReportID(), OperationID: operationID, ReportingYear: year}
	return r, &models.ReportVersion{ID: id.NewReportVersionID(), ReportID: r.ID, VersionNumber: 1, ReportType: reportType, Status: models.VersionDraft}, nil
}

func (s *stubService) SaveProducts(_ context.Context, _ id.ReportVersionID, products []models.ReportProduct) ([]models.ReportProduct, error) {
	s.products = products
	return products, s.err
}

func (s *stubService) SaveEmissions(_ context.Context, _ id.ReportVersionID, emissions []models.ReportEmission) (models.EmissionTotals, error) {
	s.emissions = emissions
	return models.Totals(emissions), s.err
}

func (s *stubService) SaveAllocation(_ context.Context, _ id.ReportVersionID, methodology models.AllocationMethodology, _ string, rows []models.ProductAllocation) (*models.EmissionAllocation, error) {
	s.methodology, s.rows = methodology, rows
	return &models.EmissionAllocation{Methodology: methodology, Allocations: rows}, s.err
}

func (s *stubService) Submit(_ context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ReportVersion{ID: versionID, Status: models.VersionSubmitted}, nil
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestStartReport(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)
	path := "/api/operations/" + uuid.NewString() + "/reports"

	rec := do(router, http.MethodPost, path, `{"reporting_year": 2024}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Versions []models.ReportVersion `json:"versions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Versions, 1)
	assert.Equal(t, models.ReportTypeAnnual, body.Versions[0].ReportType)
	assert.Equal(t, 2024, svc.year)

	t.Run("year before the program", func(t *testing.T) {
		rec := do(router, http.MethodPost, path, `{"reporting_year": 2019}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad operation id", func(t *testing.T) {
		rec := do(router, http.MethodPost, "/api/operations/nope/reports", `{"reporting_year": 2024}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service conflict", func(t *testing.T) {
		svc.err = dErrors.New(dErrors.CodeConflict, "report already exists")
		defer func() { svc.err = nil }()
		rec := do(router, http.MethodPost, path, `{"reporting_year": 2024}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSaveContent(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)
	base := "/api/report-versions/" + uuid.NewString()

	rec := do(router, http.MethodPut, base+"/products",
		`{"products":[{"product_id":3,"annual_production":"1000.5","production_apr_dec":750}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.products, 1)
	assert.Equal(t, "1000.5", svc.products[0].AnnualProduction.String())
	require.NotNil(t, svc.products[0].ProductionAprDec)
	assert.Equal(t, "750", svc.products[0].ProductionAprDec.String())

	rec = do(router, http.MethodPut, base+"/products", `{"products":[{"product_id":3}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "production is required")

	rec = do(router, http.MethodPut, base+"/emissions",
		`{"emissions":[{"gas_type":"CO2","quantity":"12.5","category_ids":[5,10]}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var totals models.EmissionTotals
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&totals))
	assert.Equal(t, "12.5", totals.ReportingOnly.String())

	rec = do(router, http.MethodPut, base+"/emissions", `{"emissions":[{"gas_type":"CO2","quantity":"1","category_ids":[]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "categories are required")

	rec = do(router, http.MethodPut, base+"/allocation",
		`{"methodology":"OBPS Allocation Calculator","allocations":[{"product_id":3,"emission_category_id":5,"allocated_quantity":"12.5"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MethodologyCalculator, svc.methodology)
	require.Len(t, svc.rows, 1)

	rec = do(router, http.MethodPut, base+"/allocation", `{"methodology":"Guess"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)
	path := "/api/report-versions/" + uuid.NewString() + "/submit"

	rec := do(router, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Submitted"`)

	svc.err = dErrors.New(dErrors.CodeInvalidState, "submitted report versions cannot be changed")
	rec = do(router, http.MethodPost, path, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCatalogs(t *testing.T) {
	router := newRouter(&stubService{})

	rec := do(router, http.MethodGet, "/api/reporting/emission-categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&categories))
	assert.Len(t, categories, 13)

	rec = do(router, http.MethodGet, "/api/reporting/regulated-products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pwaei":{"2024":"1.4898"}`)
}

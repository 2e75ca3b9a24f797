// Package handler exposes emission report endpoints and the reporting catalogs.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bciers/internal/reporting/catalog"
	"bciers/internal/reporting/models"
	"bciers/internal/reporting/service"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/requestcontext"
)

// Service is the reporting use-case port.
type Service interface {
	StartReport(ctx context.Context, operationID id.OperationID, year int, reportType models.ReportType) (*models.Report, *models.ReportVersion, error)
	GetReport(ctx context.Context, reportID id.ReportID) (*models.Report, []*models.ReportVersion, error)
	ListReports(ctx context.Context, operationID id.OperationID) ([]*models.Report, error)
	CreateSupplementaryVersion(ctx context.Context, reportID id.ReportID) (*models.ReportVersion, error)
	GetVersion(ctx context.Context, versionID id.ReportVersionID) (*service.VersionDetail, error)
	SaveProducts(ctx context.Context, versionID id.ReportVersionID, products []models.ReportProduct) ([]models.ReportProduct, error)
	SaveEmissions(ctx context.Context, versionID id.ReportVersionID, emissions []models.ReportEmission) (models.EmissionTotals, error)
	EmissionTotals(ctx context.Context, versionID id.ReportVersionID) (models.EmissionTotals, error)
	SaveAllocation(ctx context.Context, versionID id.ReportVersionID, methodology models.AllocationMethodology, description string, rows []models.ProductAllocation) (*models.EmissionAllocation, error)
	Submit(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/reporting/emission-categories", h.handleListCategories)
	r.Get("/api/reporting/regulated-products", h.handleListProducts)

	r.Post("/api/operations/{operationID}/reports", h.handleStartReport)
	r.Get("/api/operations/{operationID}/reports", h.handleListReports)
	r.Get("/api/reports/{reportID}", h.handleGetReport)
	r.Post("/api/reports/{reportID}/versions", h.handleCreateSupplementary)

	r.Get("/api/report-versions/{versionID}", h.handleGetVersion)
	r.Put("/api/report-versions/{versionID}/products", h.handleSaveProducts)
	r.Put("/api/report-versions/{versionID}/emissions", h.handleSaveEmissions)
	r.Get("/api/report-versions/{versionID}/emission-totals", h.handleEmissionTotals)
	r.Put("/api/report-versions/{versionID}/allocation", h.handleSaveAllocation)
	r.Post("/api/report-versions/{versionID}/submit", h.handleSubmit)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, result any, err error, msg string) {
	if err != nil {
		h.logger.WarnContext(r.Context(), msg,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) versionID(w http.ResponseWriter, r *http.Request) (id.ReportVersionID, bool) {
	versionID, err := id.ParseReportVersionID(httputil.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ReportVersionID{}, false
	}
	return versionID, true
}

func (h *Handler) reportID(w http.ResponseWriter, r *http.Request) (id.ReportID, bool) {
	reportID, err := id.ParseReportID(httputil.URLParam(r, "reportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ReportID{}, false
	}
	return reportID, true
}

func (h *Handler) operationID(w http.ResponseWriter, r *http.Request) (id.OperationID, bool) {
	operationID, err := id.ParseOperationID(httputil.URLParam(r, "operationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.OperationID{}, false
	}
	return operationID, true
}

func (h *Handler) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, catalog.Categories())
}

type productResponse struct {
	catalog.RegulatedProduct
	PWAEI map[int]string `json:"pwaei,omitempty"`
}

func (h *Handler) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	products := catalog.Products()
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productResponse{RegulatedProduct: p}
		if len(p.PWAEI) > 0 {
			out[i].PWAEI = make(map[int]string, len(p.PWAEI))
			for year, v := range p.PWAEI {
				out[i].PWAEI[year] = v.String()
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type reportResponse struct {
	Report   *models.Report          `json:"report"`
	Versions []*models.ReportVersion `json:"versions"`
}

func (h *Handler) handleStartReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartReportRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, version, err := h.service.StartReport(ctx, operationID, req.ReportingYear, models.ReportType(req.ReportType))
	var res *reportResponse
	if err == nil {
		res = &reportResponse{Report: report, Versions: []*models.ReportVersion{version}}
	}
	h.respond(w, r, http.StatusCreated, res, err, "failed to start report")
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	reports, err := h.service.ListReports(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, reports, err, "failed to list reports")
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, versions, err := h.service.GetReport(r.Context(), reportID)
	var res *reportResponse
	if err == nil {
		res = &reportResponse{Report: report, Versions: versions}
	}
	h.respond(w, r, http.StatusOK, res, err, "failed to get report")
}

func (h *Handler) handleCreateSupplementary(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.reportID(w, r)
	if !ok {
		return
	}
	v, err := h.service.CreateSupplementaryVersion(r.Context(), reportID)
	h.respond(w, r, http.StatusCreated, v, err, "failed to create supplementary version")
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetVersion(r.Context(), versionID)
	h.respond(w, r, http.StatusOK, detail, err, "failed to get report version")
}

func (h *Handler) handleSaveProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SaveProductsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	products, err := h.service.SaveProducts(ctx, versionID, req.toModels())
	h.respond(w, r, http.StatusOK, products, err, "failed to save products")
}

func (h *Handler) handleSaveEmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SaveEmissionsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	totals, err := h.service.SaveEmissions(ctx, versionID, req.toModels())
	h.respond(w, r, http.StatusOK, totals, err, "failed to save emissions")
}

func (h *Handler) handleEmissionTotals(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	totals, err := h.service.EmissionTotals(r.Context(), versionID)
	h.respond(w, r, http.StatusOK, totals, err, "failed to compute emission totals")
}

func (h *Handler) handleSaveAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SaveAllocationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.SaveAllocation(ctx, versionID, models.AllocationMethodology(req.Methodology), req.OtherDescription, req.rows())
	h.respond(w, r, http.StatusOK, a, err, "failed to save allocation")
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	v, err := h.service.Submit(r.Context(), versionID)
	h.respond(w, r, http.StatusOK, v, err, "failed to submit report")
}

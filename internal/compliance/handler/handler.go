// Package handler exposes compliance summaries, obligations, compliance unit
// applications and earned credit reviews.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	"bciers/internal/compliance/service"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/requestcontext"
)

// Service is the compliance use-case port.
type Service interface {
	GetSummary(ctx context.Context, reportVersionID id.ReportVersionID) (*calculator.Summary, error)
	CreateComplianceReportVersion(ctx context.Context, reportVersionID id.ReportVersionID) (*service.VersionDetail, error)
	GetComplianceReportVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*service.VersionDetail, error)
	ListComplianceReportVersions(ctx context.Context, operationID id.OperationID) ([]*models.ComplianceReportVersion, error)
	GetObligation(ctx context.Context, obligationID id.ObligationID) (*service.VersionDetail, error)
	IssueInvoice(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error)
	RefreshObligation(ctx context.Context, obligationID id.ObligationID) (*service.VersionDetail, error)
	GetUnitCapacity(ctx context.Context, obligationID id.ObligationID) (*service.UnitCapacity, error)
	ApplyComplianceUnits(ctx context.Context, obligationID id.ObligationID, holdingAccountID string, units int64) (*models.UnitApplication, error)
	GetEarnedCredit(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error)
	RequestEarnedCredits(ctx context.Context, creditID id.EarnedCreditID, holdingAccountID string) (*models.EarnedCredit, error)
	ReviewEarnedCredits(ctx context.Context, creditID id.EarnedCreditID, in service.ReviewInput) (*models.EarnedCredit, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/report-versions/{versionID}/compliance-summary", h.handleGetSummary)
	r.Post("/api/report-versions/{versionID}/compliance-report-version", h.handleCreateVersion)

	r.Get("/api/operations/{operationID}/compliance-report-versions", h.handleListVersions)
	r.Get("/api/compliance-report-versions/{complianceVersionID}", h.handleGetVersion)

	r.Get("/api/obligations/{obligationID}", h.handleGetObligation)
	r.Post("/api/obligations/{obligationID}/invoice", h.handleIssueInvoice)
	r.Post("/api/obligations/{obligationID}/refresh", h.handleRefresh)
	r.Get("/api/obligations/{obligationID}/unit-capacity", h.handleUnitCapacity)
	r.Post("/api/obligations/{obligationID}/compliance-units", h.handleApplyUnits)

	r.Get("/api/earned-credits/{creditID}", h.handleGetEarnedCredit)
	r.Post("/api/earned-credits/{creditID}/request", h.handleRequestCredits)
	r.Post("/api/earned-credits/{creditID}/review", h.handleReviewCredits)
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

func (h *Handler) reportVersionID(w http.ResponseWriter, r *http.Request) (id.ReportVersionID, bool) {
	v, err := id.ParseReportVersionID(httputil.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ReportVersionID{}, false
	}
	return v, true
}

func (h *Handler) obligationID(w http.ResponseWriter, r *http.Request) (id.ObligationID, bool) {
	o, err := id.ParseObligationID(httputil.URLParam(r, "obligationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ObligationID{}, false
	}
	return o, true
}

func (h *Handler) creditID(w http.ResponseWriter, r *http.Request) (id.EarnedCreditID, bool) {
	c, err := id.ParseEarnedCreditID(httputil.URLParam(r, "creditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EarnedCreditID{}, false
	}
	return c, true
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.reportVersionID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(r.Context(), versionID)
	h.respond(w, r, http.StatusOK, summary, err, "failed to compute compliance summary")
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.reportVersionID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.CreateComplianceReportVersion(r.Context(), versionID)
	h.respond(w, r, http.StatusCreated, detail, err, "failed to create compliance report version")
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	operationID, err := id.ParseOperationID(httputil.URLParam(r, "operationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	versions, err := h.service.ListComplianceReportVersions(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, versions, err, "failed to list compliance report versions")
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionID, err := id.ParseComplianceReportVersionID(httputil.URLParam(r, "complianceVersionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.GetComplianceReportVersion(r.Context(), versionID)
	h.respond(w, r, http.StatusOK, detail, err, "failed to get compliance report version")
}

func (h *Handler) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	obligationID, ok := h.obligationID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetObligation(r.Context(), obligationID)
	h.respond(w, r, http.StatusOK, detail, err, "failed to get obligation")
}

func (h *Handler) handleIssueInvoice(w http.ResponseWriter, r *http.Request) {
	obligationID, ok := h.obligationID(w, r)
	if !ok {
		return
	}
	obligation, err := h.service.IssueInvoice(r.Context(), obligationID)
	h.respond(w, r, http.StatusOK, obligation, err, "failed to issue obligation invoice")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	obligationID, ok := h.obligationID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.RefreshObligation(r.Context(), obligationID)
	h.respond(w, r, http.StatusOK, detail, err, "failed to refresh obligation")
}

func (h *Handler) handleUnitCapacity(w http.ResponseWriter, r *http.Request) {
	obligationID, ok := h.obligationID(w, r)
	if !ok {
		return
	}
	capacity, err := h.service.GetUnitCapacity(r.Context(), obligationID)
	h.respond(w, r, http.StatusOK, capacity, err, "failed to compute unit capacity")
}

func (h *Handler) handleApplyUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	obligationID, ok := h.obligationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApplyUnitsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.ApplyComplianceUnits(ctx, obligationID, req.HoldingAccountID, req.Units)
	h.respond(w, r, http.StatusCreated, app, err, "failed to apply compliance units")
}

func (h *Handler) handleGetEarnedCredit(w http.ResponseWriter, r *http.Request) {
	creditID, ok := h.creditID(w, r)
	if !ok {
		return
	}
	credit, err := h.service.GetEarnedCredit(r.Context(), creditID)
	h.respond(w, r, http.StatusOK, credit, err, "failed to get earned credit")
}

func (h *Handler) handleRequestCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creditID, ok := h.creditID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequestCreditsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	credit, err := h.service.RequestEarnedCredits(ctx, creditID, req.HoldingAccountID)
	h.respond(w, r, http.StatusOK, credit, err, "failed to request earned credits")
}

func (h *Handler) handleReviewCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creditID, ok := h.creditID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewCreditsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	credit, err := h.service.ReviewEarnedCredits(ctx, creditID, req.toInput())
	h.respond(w, r, http.StatusOK, credit, err, "failed to review earned credits")
}

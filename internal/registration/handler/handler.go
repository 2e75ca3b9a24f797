// Package handler exposes operator, access request, contact, operation and
// facility endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bciers/internal/registration/models"
	"bciers/internal/registration/service"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/requestcontext"
)

// Service is the registration use-case port.
type Service interface {
	CreateOperator(ctx context.Context, in service.OperatorInput) (*models.Operator, error)
	GetOperator(ctx context.Context, operatorID id.OperatorID) (*models.Operator, error)
	SetOperatorStatus(ctx context.Context, operatorID id.OperatorID, status models.OperatorStatus) (*models.Operator, error)

	RequestAccess(ctx context.Context, operatorID id.OperatorID) (*models.UserOperator, error)
	ListAccessRequests(ctx context.Context, operatorID id.OperatorID) ([]*models.UserOperator, error)
	DecideAccess(ctx context.Context, reqID id.UserOperatorID, approve bool, role models.UserOperatorRole) (*models.UserOperator, error)

	CreateContact(ctx context.Context, operatorID id.OperatorID, in service.ContactInput) (*models.Contact, error)
	ListContacts(ctx context.Context, operatorID id.OperatorID) ([]*models.Contact, error)

	CreateOperation(ctx context.Context, operatorID id.OperatorID, in service.OperationInput) (*models.Operation, error)
	GetOperation(ctx context.Context, operationID id.OperationID) (*models.Operation, error)
	ListOperations(ctx context.Context, operatorID id.OperatorID) ([]*models.Operation, error)
	UpdateOperation(ctx context.Context, operationID id.OperationID, in service.OperationInput) (*models.Operation, error)
	SubmitRegistration(ctx context.Context, operationID id.OperationID) (*models.Operation, error)
	ChangeOperationStatus(ctx context.Context, operationID id.OperationID, status models.OperationStatus) (*models.Operation, error)
	IssueBORO(ctx context.Context, operationID id.OperationID) (*models.Operation, error)
	IssueBCGHG(ctx context.Context, operationID id.OperationID) (*models.Operation, error)

	AddFacility(ctx context.Context, operationID id.OperationID, in service.FacilityInput) (*models.Facility, error)
	ListFacilities(ctx context.Context, operationID id.OperationID) ([]*models.Facility, error)
	IssueFacilityBCGHG(ctx context.Context, facilityID id.FacilityID) (*models.Facility, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/operators", h.handleCreateOperator)
	r.Get("/api/operators/{operatorID}", h.handleGetOperator)
	r.Patch("/api/operators/{operatorID}/status", h.handleSetOperatorStatus)
	r.Post("/api/operators/{operatorID}/access-requests", h.handleRequestAccess)
	r.Get("/api/operators/{operatorID}/access-requests", h.handleListAccessRequests)
	r.Post("/api/access-requests/{requestID}/decision", h.handleDecideAccess)
	r.Post("/api/operators/{operatorID}/contacts", h.handleCreateContact)
	r.Get("/api/operators/{operatorID}/contacts", h.handleListContacts)
	r.Post("/api/operators/{operatorID}/operations", h.handleCreateOperation)
	r.Get("/api/operators/{operatorID}/operations", h.handleListOperations)

	r.Get("/api/operations/{operationID}", h.handleGetOperation)
	r.Patch("/api/operations/{operationID}", h.handleUpdateOperation)
	r.Post("/api/operations/{operationID}/submit", h.handleSubmitRegistration)
	r.Patch("/api/operations/{operationID}/status", h.handleChangeOperationStatus)
	r.Post("/api/operations/{operationID}/boro-id", h.handleIssueBORO)
	r.Post("/api/operations/{operationID}/bcghg-id", h.handleIssueBCGHG)
	r.Post("/api/operations/{operationID}/facilities", h.handleAddFacility)
	r.Get("/api/operations/{operationID}/facilities", h.handleListFacilities)
	r.Post("/api/facilities/{facilityID}/bcghg-id", h.handleIssueFacilityBCGHG)
}

// respond writes result or the mapped error.
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

func (h *Handler) operatorID(w http.ResponseWriter, r *http.Request) (id.OperatorID, bool) {
	operatorID, err := id.ParseOperatorID(httputil.URLParam(r, "operatorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.OperatorID{}, false
	}
	return operatorID, true
}

func (h *Handler) operationID(w http.ResponseWriter, r *http.Request) (id.OperationID, bool) {
	operationID, err := id.ParseOperationID(httputil.URLParam(r, "operationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.OperationID{}, false
	}
	return operationID, true
}

func (h *Handler) handleCreateOperator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateOperatorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, err := h.service.CreateOperator(ctx, req.toInput())
	h.respond(w, r, http.StatusCreated, op, err, "failed to create operator")
}

func (h *Handler) handleGetOperator(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	op, err := h.service.GetOperator(r.Context(), operatorID)
	h.respond(w, r, http.StatusOK, op, err, "failed to get operator")
}

func (h *Handler) handleSetOperatorStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OperatorStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, err := h.service.SetOperatorStatus(ctx, operatorID, models.OperatorStatus(req.Status))
	h.respond(w, r, http.StatusOK, op, err, "failed to set operator status")
}

func (h *Handler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	uo, err := h.service.RequestAccess(r.Context(), operatorID)
	h.respond(w, r, http.StatusCreated, uo, err, "failed to request access")
}

func (h *Handler) handleListAccessRequests(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListAccessRequests(r.Context(), operatorID)
	h.respond(w, r, http.StatusOK, list, err, "failed to list access requests")
}

func (h *Handler) handleDecideAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, err := id.ParseUserOperatorID(httputil.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AccessDecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	uo, err := h.service.DecideAccess(ctx, reqID, req.Decision == "approve", models.UserOperatorRole(req.Role))
	h.respond(w, r, http.StatusOK, uo, err, "failed to decide access request")
}

func (h *Handler) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ContactRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	contact, err := h.service.CreateContact(ctx, operatorID, req.toInput())
	h.respond(w, r, http.StatusCreated, contact, err, "failed to create contact")
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListContacts(r.Context(), operatorID)
	h.respond(w, r, http.StatusOK, list, err, "failed to list contacts")
}

func (h *Handler) handleCreateOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OperationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, err := h.service.CreateOperation(ctx, operatorID, req.toInput())
	h.respond(w, r, http.StatusCreated, op, err, "failed to create operation")
}

func (h *Handler) handleListOperations(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operatorID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListOperations(r.Context(), operatorID)
	h.respond(w, r, http.StatusOK, list, err, "failed to list operations")
}

func (h *Handler) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	op, err := h.service.GetOperation(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, op, err, "failed to get operation")
}

func (h *Handler) handleUpdateOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OperationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, err := h.service.UpdateOperation(ctx, operationID, req.toInput())
	h.respond(w, r, http.StatusOK, op, err, "failed to update operation")
}

func (h *Handler) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	op, err := h.service.SubmitRegistration(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, op, err, "failed to submit registration")
}

func (h *Handler) handleChangeOperationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OperationStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, err := h.service.ChangeOperationStatus(ctx, operationID, models.OperationStatus(req.Status))
	h.respond(w, r, http.StatusOK, op, err, "failed to change operation status")
}

func (h *Handler) handleIssueBORO(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	op, err := h.service.IssueBORO(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, op, err, "failed to issue BORO ID")
}

func (h *Handler) handleIssueBCGHG(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	op, err := h.service.IssueBCGHG(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, op, err, "failed to issue BCGHG ID")
}

func (h *Handler) handleAddFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FacilityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.service.AddFacility(ctx, operationID, req.toInput())
	h.respond(w, r, http.StatusCreated, f, err, "failed to add facility")
}

func (h *Handler) handleListFacilities(w http.ResponseWriter, r *http.Request) {
	operationID, ok := h.operationID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListFacilities(r.Context(), operationID)
	h.respond(w, r, http.StatusOK, list, err, "failed to list facilities")
}

func (h *Handler) handleIssueFacilityBCGHG(w http.ResponseWriter, r *http.Request) {
	facilityID, err := id.ParseFacilityID(httputil.URLParam(r, "facilityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.service.IssueFacilityBCGHG(r.Context(), facilityID)
	h.respond(w, r, http.StatusOK, f, err, "failed to issue facility BCGHG ID")
}

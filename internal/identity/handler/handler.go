// Package handler exposes user self-registration, profile and role endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bciers/internal/identity/models"
	"bciers/internal/identity/service"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/httputil"
	"bciers/pkg/platform/validation"
	"bciers/pkg/requestcontext"
)

// Service is the identity use-case port.
type Service interface {
	GetByGUID(ctx context.Context, guid id.UserGUID) (*models.User, error)
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	ChangeRole(ctx context.Context, guid id.UserGUID, role models.AppRole) (*models.User, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register mounts routes that require an authenticated token. The role
// guard for PATCH is applied by the service.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/users", h.handleRegister)
	r.Get("/api/users/me", h.handleMe)
	r.Patch("/api/users/{guid}/role", h.handleChangeRole)
}

type RegisterRequest struct {
	IdentityProvider string  `json:"identity_provider" validate:"required,oneof=bceidbusiness idir"`
	BusinessGUID     *string `json:"business_guid" validate:"omitempty,uuid"`
	FirstName        string  `json:"first_name" validate:"required,max=100"`
	LastName         string  `json:"last_name" validate:"required,max=100"`
	Email            string  `json:"email" validate:"required,email"`
	PositionTitle    string  `json:"position_title" validate:"max=100"`
	PhoneNumber      string  `json:"phone_number" validate:"max=30"`
}

func (r *RegisterRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	return validation.Struct(r)
}

type ChangeRoleRequest struct {
	AppRole string `json:"app_role" validate:"required"`
}

func (r *ChangeRoleRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if !models.AppRole(r.AppRole).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown app_role %q", r.AppRole)
	}
	return nil
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := service.RegisterInput{
		Provider:      models.IdentityProvider(req.IdentityProvider),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PositionTitle: req.PositionTitle,
		PhoneNumber:   req.PhoneNumber,
	}
	if req.BusinessGUID != nil {
		biz := uuid.MustParse(*req.BusinessGUID)
		in.BusinessGUID = &biz
	}
	user, err := h.service.Register(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to register user", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.GetByGUID(ctx, requestcontext.UserGUID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	guid, err := id.ParseUserGUID(httputil.URLParam(r, "guid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.service.ChangeRole(ctx, guid, models.AppRole(req.AppRole))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to change role", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

package service

import (
	"context"

	identity "bciers/internal/identity/models"
	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

type OperatorInput struct {
	LegalName                 string
	TradeName                 string
	CRABusinessNumber         string
	BCCorporateRegistryNumber string
	BusinessStructure         string
	Address                   models.Address
}

// CreateOperator registers a new operator and files the creator's admin
// access request, which CAS staff decide.
func (s *Service) CreateOperator(ctx context.Context, in OperatorInput) (*models.Operator, error) {
	c, err := requireRole(ctx, identity.RoleIndustryUser)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	op, err := models.NewOperator(id.NewOperatorID(), in.LegalName, in.TradeName, in.CRABusinessNumber,
		in.BCCorporateRegistryNumber, in.BusinessStructure, in.Address, c.guid, now)
	if err != nil {
		return nil, translate(err, "operator")
	}
	req := models.NewAccessRequest(id.NewUserOperatorID(), c.guid, op.ID, false, now)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateOperator(txCtx, op); err != nil {
			return translate(err, "operator with this CRA business number")
		}
		if err := s.store.CreateUserOperator(txCtx, req); err != nil {
			return translate(err, "access request")
		}
		return s.emit(txCtx, audit.ActionAccessRequested, req.ID.String(), map[string]string{
			"operator_id": op.ID.String(),
			"role":        string(req.Role),
		})
	})
	if err != nil {
		return nil, err
	}
	email, first := s.userEmail(ctx, c.guid)
	s.notify(ctx, "access_request_confirmation", recipients(email), map[string]any{
		"first_name":          first,
		"operator_legal_name": op.LegalName,
		"is_admin_request":    true,
	})
	return op, nil
}

func (s *Service) GetOperator(ctx context.Context, operatorID id.OperatorID) (*models.Operator, error) {
	var op *models.Operator
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperator(txCtx, operatorID)
		if err != nil {
			return translate(err, "operator")
		}
		op = o
		return nil
	})
	return op, err
}

// SetOperatorStatus records a CAS decision on an operator.
func (s *Service) SetOperatorStatus(ctx context.Context, operatorID id.OperatorID, status models.OperatorStatus) (*models.Operator, error) {
	if _, err := requireRole(ctx, identity.RoleCasDirector, identity.RoleCasAdmin, identity.RoleCasAnalyst); err != nil {
		return nil, err
	}
	var op *models.Operator
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperator(txCtx, operatorID)
		if err != nil {
			return translate(err, "operator")
		}
		if err := o.SetStatus(status, requestcontext.Now(txCtx)); err != nil {
			return translate(err, "operator")
		}
		if err := s.store.UpdateOperator(txCtx, o); err != nil {
			return translate(err, "operator")
		}
		op = o
		return s.emit(txCtx, audit.ActionOperatorDecided, o.ID.String(), map[string]string{"status": string(status)})
	})
	return op, err
}

// RequestAccess files the caller's request to join an existing operator.
func (s *Service) RequestAccess(ctx context.Context, operatorID id.OperatorID) (*models.UserOperator, error) {
	c, err := requireRole(ctx, identity.RoleIndustryUser)
	if err != nil {
		return nil, err
	}
	var (
		req      *models.UserOperator
		operator *models.Operator
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperator(txCtx, operatorID)
		if err != nil {
			return translate(err, "operator")
		}
		if o.Status == models.OperatorDeclined {
			return dErrors.New(dErrors.CodeInvalidState, "operator has been declined")
		}
		hasAdmin, err := s.store.HasApprovedAdmin(txCtx, operatorID)
		if err != nil {
			return translate(err, "operator")
		}
		req = models.NewAccessRequest(id.NewUserOperatorID(), c.guid, operatorID, hasAdmin, requestcontext.Now(txCtx))
		if err := s.store.CreateUserOperator(txCtx, req); err != nil {
			return translate(err, "access request for this operator")
		}
		operator = o
		return s.emit(txCtx, audit.ActionAccessRequested, req.ID.String(), map[string]string{
			"operator_id": operatorID.String(),
			"role":        string(req.Role),
		})
	})
	if err != nil {
		return nil, err
	}
	email, first := s.userEmail(ctx, c.guid)
	s.notify(ctx, "access_request_confirmation", recipients(email), map[string]any{
		"first_name":          first,
		"operator_legal_name": operator.LegalName,
		"is_admin_request":    req.Role == models.UserOperatorAdmin,
	})
	return req, nil
}

func (s *Service) ListAccessRequests(ctx context.Context, operatorID id.OperatorID) ([]*models.UserOperator, error) {
	var out []*models.UserOperator
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireMember(txCtx, operatorID, true); err != nil {
			return err
		}
		list, err := s.store.ListUserOperators(txCtx, operatorID)
		if err != nil {
			return translate(err, "access requests")
		}
		out = list
		return nil
	})
	return out, err
}

// DecideAccess approves or declines a pending request. Admin requests are
// decided by CAS staff; other requests by the operator's approved admins.
// Approving an admin request of a draft operator also approves the operator.
func (s *Service) DecideAccess(ctx context.Context, reqID id.UserOperatorID, approve bool, role models.UserOperatorRole) (*models.UserOperator, error) {
	c := callerFrom(ctx)
	var (
		req      *models.UserOperator
		operator *models.Operator
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		uo, err := s.store.FindUserOperator(txCtx, reqID)
		if err != nil {
			return translate(err, "access request")
		}
		if err := s.canDecide(txCtx, c, uo); err != nil {
			return err
		}
		now := requestcontext.Now(txCtx)
		action := audit.ActionAccessDeclined
		if approve {
			action = audit.ActionAccessApproved
			err = uo.Approve(role, c.guid, now)
		} else {
			err = uo.Decline(c.guid, now)
		}
		if err != nil {
			return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeInvalidState)
		}
		if err := s.store.UpdateUserOperator(txCtx, uo); err != nil {
			return translate(err, "access request")
		}
		o, err := s.store.FindOperator(txCtx, uo.OperatorID)
		if err != nil {
			return translate(err, "operator")
		}
		if approve && uo.Role == models.UserOperatorAdmin && o.Status == models.OperatorDraft {
			if err := o.SetStatus(models.OperatorApproved, now); err != nil {
				return translate(err, "operator")
			}
			if err := s.store.UpdateOperator(txCtx, o); err != nil {
				return translate(err, "operator")
			}
			if err := s.emit(txCtx, audit.ActionOperatorDecided, o.ID.String(), map[string]string{"status": string(o.Status)}); err != nil {
				return err
			}
		}
		req, operator = uo, o
		return s.emit(txCtx, action, uo.ID.String(), map[string]string{
			"operator_id": uo.OperatorID.String(),
			"role":        string(uo.Role),
		})
	})
	if err != nil {
		return nil, err
	}

	decision, template := "declined", "access_request_declined"
	if approve {
		decision, template = "approved", "access_request_approved"
	}
	s.metrics.IncAccessDecision(decision)
	email, first := s.userEmail(ctx, req.UserGUID)
	s.notify(ctx, template, recipients(email), map[string]any{
		"first_name":          first,
		"operator_legal_name": operator.LegalName,
		"role":                string(req.Role),
	})
	return req, nil
}

func (s *Service) canDecide(ctx context.Context, c caller, uo *models.UserOperator) error {
	if c.isSystem() {
		return nil
	}
	if c.guid == uo.UserGUID {
		return dErrors.New(dErrors.CodeForbidden, "users cannot decide their own access request")
	}
	switch {
	case c.role == identity.RoleCasDirector || c.role == identity.RoleCasAdmin || c.role == identity.RoleCasAnalyst:
		return nil
	case uo.IsAdminRequest():
		return dErrors.New(dErrors.CodeForbidden, "admin access requests are decided by CAS staff")
	case c.role.IsIndustryUser():
		admin, err := s.store.FindUserOperatorFor(ctx, c.guid, uo.OperatorID)
		if err != nil || !admin.IsApprovedAdmin() {
			return dErrors.New(dErrors.CodeForbidden, "only operator admins can decide access requests")
		}
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation")
}

type ContactInput struct {
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	PositionTitle string
	BusinessRole  string
}

func (s *Service) CreateContact(ctx context.Context, operatorID id.OperatorID, in ContactInput) (*models.Contact, error) {
	contact, err := models.NewContact(id.NewContactID(), operatorID, in.FirstName, in.LastName, in.Email,
		in.PhoneNumber, in.PositionTitle, in.BusinessRole, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err, "contact")
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireMember(txCtx, operatorID, false); err != nil {
			return err
		}
		if _, err := s.store.FindOperator(txCtx, operatorID); err != nil {
			return translate(err, "operator")
		}
		return translate(s.store.CreateContact(txCtx, contact), "contact")
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *Service) ListContacts(ctx context.Context, operatorID id.OperatorID) ([]*models.Contact, error) {
	var out []*models.Contact
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireMember(txCtx, operatorID, true); err != nil {
			return err
		}
		list, err := s.store.ListContacts(txCtx, operatorID)
		if err != nil {
			return translate(err, "contacts")
		}
		out = list
		return nil
	})
	return out, err
}

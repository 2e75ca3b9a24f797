package service

import (
	"context"
	"fmt"

	identity "bciers/internal/identity/models"
	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

type OperationInput struct {
	Name                string
	Type                models.OperationType
	NAICSCode           string
	RegistrationPurpose models.RegistrationPurpose
	PointOfContactID    *id.ContactID
}

func (s *Service) CreateOperation(ctx context.Context, operatorID id.OperatorID, in OperationInput) (*models.Operation, error) {
	op, err := models.NewOperation(id.NewOperationID(), operatorID, in.Name, in.Type, in.NAICSCode,
		in.RegistrationPurpose, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err, "operation")
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireMember(txCtx, operatorID, false); err != nil {
			return err
		}
		operator, err := s.store.FindOperator(txCtx, operatorID)
		if err != nil {
			return translate(err, "operator")
		}
		if operator.Status == models.OperatorDeclined {
			return dErrors.New(dErrors.CodeInvalidState, "declined operators cannot register operations")
		}
		if err := s.setPointOfContact(txCtx, op, in.PointOfContactID); err != nil {
			return err
		}
		return translate(s.store.CreateOperation(txCtx, op), "operation")
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *Service) setPointOfContact(ctx context.Context, op *models.Operation, contactID *id.ContactID) error {
	if contactID == nil {
		return nil
	}
	contact, err := s.store.FindContact(ctx, *contactID)
	if err != nil {
		return translate(err, "contact")
	}
	if contact.OperatorID != op.OperatorID {
		return dErrors.New(dErrors.CodeValidation, "point of contact must belong to the operation's operator")
	}
	op.PointOfContactID = contactID
	return nil
}

// GetOperation returns an operation visible to the caller.
func (s *Service) GetOperation(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	var op *models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperation(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := s.requireMember(txCtx, o.OperatorID, true); err != nil {
			return err
		}
		op = o
		return nil
	})
	return op, err
}

func (s *Service) ListOperations(ctx context.Context, operatorID id.OperatorID) ([]*models.Operation, error) {
	var out []*models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireMember(txCtx, operatorID, true); err != nil {
			return err
		}
		list, err := s.store.ListOperations(txCtx, operatorID)
		if err != nil {
			return translate(err, "operations")
		}
		out = list
		return nil
	})
	return out, err
}

// UpdateOperation changes editable details. The operation type is fixed.
func (s *Service) UpdateOperation(ctx context.Context, operationID id.OperationID, in OperationInput) (*models.Operation, error) {
	var op *models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := s.requireMember(txCtx, o.OperatorID, false); err != nil {
			return err
		}
		if in.Type != "" && in.Type != o.Type {
			return dErrors.New(dErrors.CodeValidation, "operation type cannot be changed")
		}
		if err := o.Update(in.Name, in.NAICSCode, in.RegistrationPurpose, requestcontext.Now(txCtx)); err != nil {
			return translate(err, "operation")
		}
		if err := s.setPointOfContact(txCtx, o, in.PointOfContactID); err != nil {
			return err
		}
		if err := s.store.UpdateOperation(txCtx, o); err != nil {
			return translate(err, "operation")
		}
		op = o
		return nil
	})
	return op, err
}

// SubmitRegistration moves a complete draft operation to Registered.
func (s *Service) SubmitRegistration(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	var (
		op      *models.Operation
		contact *models.Contact
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := s.requireMember(txCtx, o.OperatorID, false); err != nil {
			return err
		}
		facilities, err := s.store.ListFacilities(txCtx, operationID)
		if err != nil {
			return translate(err, "facilities")
		}
		if err := o.CanSubmit(len(facilities)); err != nil {
			return translate(err, "operation")
		}
		c, err := s.store.FindContact(txCtx, *o.PointOfContactID)
		if err != nil {
			return translate(err, "point of contact")
		}
		o.Submit(requestcontext.Now(txCtx))
		if err := s.store.UpdateOperation(txCtx, o); err != nil {
			return translate(err, "operation")
		}
		op, contact = o, c
		return s.emit(txCtx, audit.ActionOperationRegistered, o.ID.String(), map[string]string{
			"operator_id":          o.OperatorID.String(),
			"registration_purpose": string(o.RegistrationPurpose),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOperationRegistered()
	s.notify(ctx, "registration_confirmation", recipients(contact.Email), map[string]any{
		"first_name":     contact.FirstName,
		"operation_name": op.Name,
	})
	return op, nil
}

// ChangeOperationStatus closes or suspends a registered operation.
func (s *Service) ChangeOperationStatus(ctx context.Context, operationID id.OperationID, status models.OperationStatus) (*models.Operation, error) {
	var op *models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		c := callerFrom(txCtx)
		if !c.role.IsCasDirector() && c.role != identity.RoleCasAnalyst {
			if err := s.requireMember(txCtx, o.OperatorID, false); err != nil {
				return err
			}
		}
		if err := o.ChangeStatus(status, requestcontext.Now(txCtx)); err != nil {
			return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeInvalidState)
		}
		if err := s.store.UpdateOperation(txCtx, o); err != nil {
			return translate(err, "operation")
		}
		op = o
		return nil
	})
	return op, err
}

// IssueBORO assigns the next YY-NNNN identifier of the current year.
func (s *Service) IssueBORO(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	if _, err := requireRole(ctx, identity.RoleCasDirector, identity.RoleCasAnalyst); err != nil {
		return nil, err
	}
	var op *models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := o.CanIssueBORO(); err != nil {
			return translate(err, "operation")
		}
		year := requestcontext.Now(txCtx).Year()
		n, err := s.store.NextSequence(txCtx, fmt.Sprintf("boro:%d", year))
		if err != nil {
			return translate(err, "BORO ID sequence")
		}
		boro, err := models.FormatBOROID(year, n)
		if err != nil {
			return err
		}
		o.BOROID = &boro
		o.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.UpdateOperation(txCtx, o); err != nil {
			return translate(err, "BORO ID "+boro)
		}
		op = o
		return s.emit(txCtx, audit.ActionBOROIDIssued, o.ID.String(), map[string]string{"boro_id": boro})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncIdentifierIssued("boro")
	s.logger.InfoContext(ctx, "BORO ID issued", "operation_id", op.ID.String(), "boro_id", *op.BOROID)
	return op, nil
}

// IssueBCGHG assigns the operation its type-and-NAICS prefixed identifier.
func (s *Service) IssueBCGHG(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	if _, err := requireRole(ctx, identity.RoleCasDirector, identity.RoleCasAnalyst, identity.RoleCasAdmin); err != nil {
		return nil, err
	}
	var op *models.Operation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := o.CanIssueBCGHG(); err != nil {
			return translate(err, "operation")
		}
		bcghg, err := s.nextBCGHG(txCtx, o.BCGHGPrefix())
		if err != nil {
			return err
		}
		o.BCGHGID = &bcghg
		o.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.UpdateOperation(txCtx, o); err != nil {
			return translate(err, "BCGHG ID "+bcghg)
		}
		op = o
		return s.emit(txCtx, audit.ActionBCGHGIDIssued, o.ID.String(), map[string]string{"bcghg_id": bcghg})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncIdentifierIssued("bcghg")
	return op, nil
}

func (s *Service) nextBCGHG(ctx context.Context, prefix string) (string, error) {
	n, err := s.store.NextSequence(ctx, "bcghg:"+prefix)
	if err != nil {
		return "", translate(err, "BCGHG ID sequence")
	}
	return models.FormatBCGHGID(prefix, n)
}

type FacilityInput struct {
	Name      string
	Type      models.FacilityType
	Latitude  *float64
	Longitude *float64
}

func (s *Service) AddFacility(ctx context.Context, operationID id.OperationID, in FacilityInput) (*models.Facility, error) {
	var facility *models.Facility
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		op, err := s.store.FindOperationForUpdate(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := s.requireMember(txCtx, op.OperatorID, false); err != nil {
			return err
		}
		existing, err := s.store.ListFacilities(txCtx, operationID)
		if err != nil {
			return translate(err, "facilities")
		}
		f, err := models.NewFacility(id.NewFacilityID(), op, len(existing), in.Name, in.Type,
			in.Latitude, in.Longitude, requestcontext.Now(txCtx))
		if err != nil {
			return translate(err, "facility")
		}
		if err := s.store.CreateFacility(txCtx, f); err != nil {
			return translate(err, "facility")
		}
		facility = f
		return nil
	})
	return facility, err
}

func (s *Service) ListFacilities(ctx context.Context, operationID id.OperationID) ([]*models.Facility, error) {
	var out []*models.Facility
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		op, err := s.store.FindOperation(txCtx, operationID)
		if err != nil {
			return translate(err, "operation")
		}
		if err := s.requireMember(txCtx, op.OperatorID, true); err != nil {
			return err
		}
		list, err := s.store.ListFacilities(txCtx, operationID)
		if err != nil {
			return translate(err, "facilities")
		}
		out = list
		return nil
	})
	return out, err
}

// IssueFacilityBCGHG assigns a facility its own BCGHG ID using the parent
// operation's prefix.
func (s *Service) IssueFacilityBCGHG(ctx context.Context, facilityID id.FacilityID) (*models.Facility, error) {
	if _, err := requireRole(ctx, identity.RoleCasDirector, identity.RoleCasAnalyst, identity.RoleCasAdmin); err != nil {
		return nil, err
	}
	var facility *models.Facility
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.store.FindFacility(txCtx, facilityID)
		if err != nil {
			return translate(err, "facility")
		}
		if f.BCGHGID != nil {
			return dErrors.New(dErrors.CodeConflict, "a BCGHG ID has already been issued")
		}
		op, err := s.store.FindOperationForUpdate(txCtx, f.OperationID)
		if err != nil {
			return translate(err, "operation")
		}
		bcghg, err := s.nextBCGHG(txCtx, op.BCGHGPrefix())
		if err != nil {
			return err
		}
		if err := s.store.UpdateFacilityBCGHG(txCtx, facilityID, bcghg); err != nil {
			return translate(err, "BCGHG ID "+bcghg)
		}
		f.BCGHGID = &bcghg
		facility = f
		return s.emit(txCtx, audit.ActionBCGHGIDIssued, f.ID.String(), map[string]string{"bcghg_id": bcghg})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncIdentifierIssued("bcghg")
	return facility, nil
}

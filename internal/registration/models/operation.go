package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

var naicsPattern = regexp.MustCompile(`^\d{6}$`)

type OperationType string

const (
	OperationSFO OperationType = "Single Facility Operation"
	OperationLFO OperationType = "Linear Facilities Operation"
	OperationEIO OperationType = "Electricity Import Operation"
)

func (t OperationType) IsValid() bool {
	return t == OperationSFO || t == OperationLFO || t == OperationEIO
}

type RegistrationPurpose string

const (
	PurposeOBPSRegulated      RegistrationPurpose = "OBPS Regulated Operation"
	PurposeReporting          RegistrationPurpose = "Reporting Operation"
	PurposeOptedIn            RegistrationPurpose = "Opted-in Operation"
	PurposeNewEntrant         RegistrationPurpose = "New Entrant Operation"
	PurposeElectricityImport  RegistrationPurpose = "Electricity Import Operation"
	PurposePotentialReporting RegistrationPurpose = "Potential Reporting Operation"
)

func (p RegistrationPurpose) IsValid() bool {
	switch p {
	case PurposeOBPSRegulated, PurposeReporting, PurposeOptedIn, PurposeNewEntrant,
		PurposeElectricityImport, PurposePotentialReporting:
		return true
	}
	return false
}

// IsRegulated reports purposes that take part in compliance and receive a BORO ID.
func (p RegistrationPurpose) IsRegulated() bool {
	return p == PurposeOBPSRegulated || p == PurposeOptedIn || p == PurposeNewEntrant
}

type OperationStatus string

const (
	OperationNotStarted          OperationStatus = "Not Started"
	OperationDraft               OperationStatus = "Draft"
	OperationRegistered          OperationStatus = "Registered"
	OperationClosed              OperationStatus = "Closed"
	OperationTemporarilyShutdown OperationStatus = "Temporarily Shutdown"
)

// Operation is a regulated or reporting industrial operation.
type Operation struct {
	ID                  id.OperationID      `json:"id"`
	OperatorID          id.OperatorID       `json:"operator_id"`
	Name                string              `json:"name"`
	Type                OperationType       `json:"type"`
	NAICSCode           string              `json:"naics_code"`
	RegistrationPurpose RegistrationPurpose `json:"registration_purpose"`
	Status              OperationStatus     `json:"status"`
	BCGHGID             *string             `json:"bcghg_id,omitempty"`
	BOROID              *string             `json:"boro_id,omitempty"`
	PointOfContactID    *id.ContactID       `json:"point_of_contact_id,omitempty"`
	SubmittedAt         *time.Time          `json:"submitted_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func NewOperation(operationID id.OperationID, operator id.OperatorID, name string, opType OperationType, naics string, purpose RegistrationPurpose, now time.Time) (*Operation, error) {
	op := &Operation{
		ID:         operationID,
		OperatorID: operator,
		Type:       opType,
		Status:     OperationDraft,
		CreatedAt:  now,
	}
	if !opType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown operation type %q", opType)
	}
	if err := op.Update(name, naics, purpose, now); err != nil {
		return nil, err
	}
	return op, nil
}

// Update changes the editable registration details.
func (o *Operation) Update(name, naics string, purpose RegistrationPurpose, now time.Time) error {
	if o.Status == OperationClosed {
		return dErrors.New(dErrors.CodeInvariantViolation, "closed operations cannot be changed")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "operation name is required")
	}
	if !naicsPattern.MatchString(naics) {
		return dErrors.New(dErrors.CodeInvariantViolation, "NAICS code must be 6 digits")
	}
	if !purpose.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown registration purpose %q", purpose)
	}
	if (o.Type == OperationEIO) != (purpose == PurposeElectricityImport) {
		return dErrors.New(dErrors.CodeInvariantViolation, "electricity import operations must use the electricity import purpose")
	}
	if o.BOROID != nil && !purpose.IsRegulated() {
		return dErrors.New(dErrors.CodeInvariantViolation, "operations with a BORO ID must keep a regulated purpose")
	}
	o.Name = name
	o.NAICSCode = naics
	o.RegistrationPurpose = purpose
	o.UpdatedAt = now
	return nil
}

// CanSubmit checks registration completeness for the given facility count.
func (o *Operation) CanSubmit(facilities int) error {
	if o.Status != OperationDraft && o.Status != OperationNotStarted {
		return dErrors.New(dErrors.CodeInvariantViolation, "only draft operations can be submitted")
	}
	if o.PointOfContactID == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "a point of contact is required")
	}
	switch o.Type {
	case OperationEIO:
	case OperationSFO:
		if facilities != 1 {
			return dErrors.New(dErrors.CodeInvariantViolation, "single facility operations must have exactly one facility")
		}
	default:
		if facilities < 1 {
			return dErrors.New(dErrors.CodeInvariantViolation, "at least one facility is required")
		}
	}
	return nil
}

func (o *Operation) Submit(now time.Time) {
	o.Status = OperationRegistered
	o.SubmittedAt = &now
	o.UpdatedAt = now
}

// ChangeStatus moves a registered operation in or out of shutdown, or closes it.
func (o *Operation) ChangeStatus(status OperationStatus, now time.Time) error {
	allowed := false
	switch o.Status {
	case OperationRegistered:
		allowed = status == OperationClosed || status == OperationTemporarilyShutdown
	case OperationTemporarilyShutdown:
		allowed = status == OperationClosed || status == OperationRegistered
	}
	if !allowed {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot change operation status from %s to %s", o.Status, status)
	}
	o.Status = status
	o.UpdatedAt = now
	return nil
}

// CanIssueBORO checks that the operation may receive a BORO ID.
func (o *Operation) CanIssueBORO() error {
	if o.BOROID != nil {
		return dErrors.New(dErrors.CodeConflict, "a BORO ID has already been issued")
	}
	if !o.RegistrationPurpose.IsRegulated() {
		return dErrors.New(dErrors.CodeInvariantViolation, "BORO IDs are only issued to regulated, opted-in or new entrant operations")
	}
	if o.Status != OperationRegistered {
		return dErrors.New(dErrors.CodeInvariantViolation, "BORO IDs are only issued to registered operations")
	}
	return nil
}

func (o *Operation) CanIssueBCGHG() error {
	if o.BCGHGID != nil {
		return dErrors.New(dErrors.CodeConflict, "a BCGHG ID has already been issued")
	}
	return nil
}

// BCGHGPrefix is the type digit followed by the NAICS code.
func (o *Operation) BCGHGPrefix() string {
	t := "1"
	if o.Type == OperationLFO {
		t = "2"
	}
	return t + o.NAICSCode
}

// FormatBOROID renders the nth BORO ID of a year as YY-NNNN.
func FormatBOROID(year, n int) (string, error) {
	if n < 1 || n > 9999 {
		return "", dErrors.Newf(dErrors.CodeInternal, "BORO ID sequence %d out of range", n)
	}
	return fmt.Sprintf("%02d-%04d", year%100, n), nil
}

// FormatBCGHGID renders the nth BCGHG ID for prefix.
func FormatBCGHGID(prefix string, n int) (string, error) {
	if len(prefix) != 7 {
		return "", dErrors.Newf(dErrors.CodeInternal, "invalid BCGHG prefix %q", prefix)
	}
	if n < 1 || n > 9999 {
		return "", dErrors.Newf(dErrors.CodeInternal, "BCGHG ID sequence %d out of range", n)
	}
	return fmt.Sprintf("%s%04d", prefix, n), nil
}

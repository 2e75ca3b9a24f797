// Package domain holds identifier primitives shared across BCIERS modules.
//
// Every entity is addressed by a typed UUID. The kind parameter makes an
// OperatorID and an OperationID distinct types even though both wrap a UUID,
// while the embedded uuid.UUID keeps JSON, text and SQL encoding for free.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "bciers/pkg/domain-errors"
)

type kind interface {
	field() string
}

type (
	userKind            struct{}
	operatorKind        struct{}
	operationKind       struct{}
	facilityKind        struct{}
	contactKind         struct{}
	userOperatorKind    struct{}
	reportKind          struct{}
	reportVersionKind   struct{}
	complianceRVKind    struct{}
	obligationKind      struct{}
	earnedCreditKind    struct{}
	invoiceKind         struct{}
	unitApplicationKind struct{}
)

func (userKind) field() string            { return "user_guid" }
func (operatorKind) field() string        { return "operator_id" }
func (operationKind) field() string       { return "operation_id" }
func (facilityKind) field() string        { return "facility_id" }
func (contactKind) field() string         { return "contact_id" }
func (userOperatorKind) field() string    { return "user_operator_id" }
func (reportKind) field() string          { return "report_id" }
func (reportVersionKind) field() string   { return "report_version_id" }
func (complianceRVKind) field() string    { return "compliance_report_version_id" }
func (obligationKind) field() string      { return "obligation_id" }
func (earnedCreditKind) field() string    { return "earned_credit_id" }
func (invoiceKind) field() string         { return "invoice_id" }
func (unitApplicationKind) field() string { return "compliance_unit_application_id" }

// ID is a UUID tagged with the entity it identifies.
type ID[K kind] struct {
	uuid.UUID
}

// IsNil reports whether the ID is the zero UUID.
func (id ID[K]) IsNil() bool {
	return id.UUID == uuid.Nil
}

type (
	UserGUID                  = ID[userKind]
	OperatorID                = ID[operatorKind]
	OperationID               = ID[operationKind]
	FacilityID                = ID[facilityKind]
	ContactID                 = ID[contactKind]
	UserOperatorID            = ID[userOperatorKind]
	ReportID                  = ID[reportKind]
	ReportVersionID           = ID[reportVersionKind]
	ComplianceReportVersionID = ID[complianceRVKind]
	ObligationID              = ID[obligationKind]
	EarnedCreditID            = ID[earnedCreditKind]
	InvoiceID                 = ID[invoiceKind]
	UnitApplicationID         = ID[unitApplicationKind]
)

func newID[K kind]() ID[K] {
	return ID[K]{UUID: uuid.New()}
}

func parseID[K kind](s string) (ID[K], error) {
	var k K
	if strings.TrimSpace(s) == "" {
		return ID[K]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", k.field())
	}
	if len(s) > 64 {
		return ID[K]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is too long", k.field())
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ID[K]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid UUID", k.field())
	}
	if parsed == uuid.Nil {
		return ID[K]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", k.field())
	}
	return ID[K]{UUID: parsed}, nil
}

func NewOperatorID() OperatorID                               { return newID[operatorKind]() }
func NewOperationID() OperationID                             { return newID[operationKind]() }
func NewFacilityID() FacilityID                               { return newID[facilityKind]() }
func NewContactID() ContactID                                 { return newID[contactKind]() }
func NewUserOperatorID() UserOperatorID                       { return newID[userOperatorKind]() }
func NewReportID() ReportID                                   { return newID[reportKind]() }
func NewReportVersionID() ReportVersionID                     { return newID[reportVersionKind]() }
func NewComplianceReportVersionID() ComplianceReportVersionID { return newID[complianceRVKind]() }
func NewObligationID() ObligationID                           { return newID[obligationKind]() }
func NewEarnedCreditID() EarnedCreditID                       { return newID[earnedCreditKind]() }
func NewInvoiceID() InvoiceID                                 { return newID[invoiceKind]() }
func NewUnitApplicationID() UnitApplicationID                 { return newID[unitApplicationKind]() }

// UserGUIDFrom wraps an identity-provider GUID.
func UserGUIDFrom(u uuid.UUID) UserGUID { return UserGUID{UUID: u} }

func ParseUserGUID(s string) (UserGUID, error)             { return parseID[userKind](s) }
func ParseOperatorID(s string) (OperatorID, error)         { return parseID[operatorKind](s) }
func ParseOperationID(s string) (OperationID, error)       { return parseID[operationKind](s) }
func ParseFacilityID(s string) (FacilityID, error)         { return parseID[facilityKind](s) }
func ParseContactID(s string) (ContactID, error)           { return parseID[contactKind](s) }
func ParseUserOperatorID(s string) (UserOperatorID, error) { return parseID[userOperatorKind](s) }
func ParseReportID(s string) (ReportID, error)             { return parseID[reportKind](s) }
func ParseReportVersionID(s string) (ReportVersionID, error) {
	return parseID[reportVersionKind](s)
}
func ParseComplianceReportVersionID(s string) (ComplianceReportVersionID, error) {
	return parseID[complianceRVKind](s)
}
func ParseObligationID(s string) (ObligationID, error)     { return parseID[obligationKind](s) }
func ParseEarnedCreditID(s string) (EarnedCreditID, error) { return parseID[earnedCreditKind](s) }

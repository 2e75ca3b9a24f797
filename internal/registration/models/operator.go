// Package models holds the registration aggregates: operators, their users,
// contacts, operations and facilities.
package models

import (
	"regexp"
	"strings"
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

var (
	craBusinessNumberPattern = regexp.MustCompile(`^\d{9}$`)
	bcCorporateNumberPattern = regexp.MustCompile(`^[A-Za-z]{1,3}\d{7}$`)
)

type OperatorStatus string

const (
	OperatorDraft    OperatorStatus = "Draft"
	OperatorApproved OperatorStatus = "Approved"
	OperatorDeclined OperatorStatus = "Declined"
)

func (s OperatorStatus) IsValid() bool {
	return s == OperatorDraft || s == OperatorApproved || s == OperatorDeclined
}

type Address struct {
	StreetAddress string `json:"street_address"`
	Municipality  string `json:"municipality"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
}

// Operator is a company that owns regulated operations.
type Operator struct {
	ID                        id.OperatorID  `json:"id"`
	LegalName                 string         `json:"legal_name"`
	TradeName                 string         `json:"trade_name"`
	CRABusinessNumber         string         `json:"cra_business_number"`
	BCCorporateRegistryNumber string         `json:"bc_corporate_registry_number"`
	BusinessStructure         string         `json:"business_structure"`
	Status                    OperatorStatus `json:"status"`
	Address                   Address        `json:"address"`
	CreatedBy                 id.UserGUID    `json:"created_by"`
	CreatedAt                 time.Time      `json:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at"`
}

// NewOperator builds a Draft operator.
func NewOperator(operatorID id.OperatorID, legalName, tradeName, craBN, bcCorp, structure string, addr Address, createdBy id.UserGUID, now time.Time) (*Operator, error) {
	legalName = strings.TrimSpace(legalName)
	if legalName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "legal name is required")
	}
	if !craBusinessNumberPattern.MatchString(craBN) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "CRA business number must be 9 digits")
	}
	if !bcCorporateNumberPattern.MatchString(bcCorp) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "BC corporate registry number must be 1-3 letters followed by 7 digits")
	}
	if addr.Province == "" {
		addr.Province = "BC"
	}
	addr.PostalCode = strings.ToUpper(strings.ReplaceAll(addr.PostalCode, " ", ""))
	return &Operator{
		ID:                        operatorID,
		LegalName:                 legalName,
		TradeName:                 strings.TrimSpace(tradeName),
		CRABusinessNumber:         craBN,
		BCCorporateRegistryNumber: strings.ToUpper(bcCorp),
		BusinessStructure:         strings.TrimSpace(structure),
		Status:                    OperatorDraft,
		Address:                   addr,
		CreatedBy:                 createdBy,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}, nil
}

// SetStatus moves the operator to status. Declined operators are final.
func (o *Operator) SetStatus(status OperatorStatus, now time.Time) error {
	if !status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown operator status %q", status)
	}
	if o.Status == OperatorDeclined && status != OperatorDeclined {
		return dErrors.New(dErrors.CodeInvariantViolation, "declined operators cannot change status")
	}
	o.Status = status
	o.UpdatedAt = now
	return nil
}

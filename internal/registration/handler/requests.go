package handler

import (
	"strings"

	"bciers/internal/registration/models"
	"bciers/internal/registration/service"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/validation"
)

type AddressRequest struct {
	StreetAddress string `json:"street_address" validate:"max=1000"`
	Municipality  string `json:"municipality" validate:"max=1000"`
	Province      string `json:"province" validate:"omitempty,len=2"`
	PostalCode    string `json:"postal_code" validate:"omitempty,postal_code"`
}

type CreateOperatorRequest struct {
	LegalName                 string         `json:"legal_name" validate:"required,max=1000"`
	TradeName                 string         `json:"trade_name" validate:"max=1000"`
	CRABusinessNumber         string         `json:"cra_business_number" validate:"required,cra_bn"`
	BCCorporateRegistryNumber string         `json:"bc_corporate_registry_number" validate:"required,bc_corp"`
	BusinessStructure         string         `json:"business_structure" validate:"max=100"`
	Address                   AddressRequest `json:"address"`
}

func (r *CreateOperatorRequest) Validate() error {
	r.LegalName = strings.TrimSpace(r.LegalName)
	return validation.Struct(r)
}

func (r *CreateOperatorRequest) toInput() service.OperatorInput {
	return service.OperatorInput{
		LegalName:                 r.LegalName,
		TradeName:                 r.TradeName,
		CRABusinessNumber:         r.CRABusinessNumber,
		BCCorporateRegistryNumber: r.BCCorporateRegistryNumber,
		BusinessStructure:         r.BusinessStructure,
		Address: models.Address{
			StreetAddress: r.Address.StreetAddress,
			Municipality:  r.Address.Municipality,
			Province:      strings.ToUpper(r.Address.Province),
			PostalCode:    r.Address.PostalCode,
		},
	}
}

type OperatorStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Draft Approved Declined"`
}

func (r *OperatorStatusRequest) Validate() error { return validation.Struct(r) }

type AccessDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve decline"`
	Role     string `json:"role" validate:"omitempty,oneof=admin reporter"`
}

func (r *AccessDecisionRequest) Validate() error { return validation.Struct(r) }

type ContactRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=1000"`
	LastName      string `json:"last_name" validate:"required,max=1000"`
	Email         string `json:"email" validate:"required,email"`
	PhoneNumber   string `json:"phone_number" validate:"max=32"`
	PositionTitle string `json:"position_title" validate:"max=1000"`
	BusinessRole  string `json:"business_role" validate:"required"`
}

func (r *ContactRequest) Validate() error { return validation.Struct(r) }

func (r *ContactRequest) toInput() service.ContactInput {
	return service.ContactInput{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		PositionTitle: r.PositionTitle,
		BusinessRole:  r.BusinessRole,
	}
}

type OperationRequest struct {
	Name                string  `json:"name" validate:"required,max=1000"`
	Type                string  `json:"type" validate:"omitempty"`
	NAICSCode           string  `json:"naics_code" validate:"required,naics"`
	RegistrationPurpose string  `json:"registration_purpose" validate:"required"`
	PointOfContactID    *string `json:"point_of_contact_id" validate:"omitempty,uuid"`
}

func (r *OperationRequest) Validate() error { return validation.Struct(r) }

func (r *OperationRequest) toInput() service.OperationInput {
	in := service.OperationInput{
		Name:                r.Name,
		Type:                models.OperationType(r.Type),
		NAICSCode:           r.NAICSCode,
		RegistrationPurpose: models.RegistrationPurpose(r.RegistrationPurpose),
	}
	if r.PointOfContactID != nil {
		if contactID, err := id.ParseContactID(*r.PointOfContactID); err == nil {
			in.PointOfContactID = &contactID
		}
	}
	return in
}

type OperationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (r *OperationStatusRequest) Validate() error { return validation.Struct(r) }

type FacilityRequest struct {
	Name      string   `json:"name" validate:"required,max=1000"`
	Type      string   `json:"type" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (r *FacilityRequest) Validate() error { return validation.Struct(r) }

func (r *FacilityRequest) toInput() service.FacilityInput {
	return service.FacilityInput{
		Name:      r.Name,
		Type:      models.FacilityType(r.Type),
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

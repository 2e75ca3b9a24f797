package models

import (
	"net/mail"
	"strings"
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

// Contact is a person an operator designates for regulatory correspondence.
type Contact struct {
	ID            id.ContactID  `json:"id"`
	OperatorID    id.OperatorID `json:"operator_id"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email"`
	PhoneNumber   string        `json:"phone_number"`
	PositionTitle string        `json:"position_title"`
	BusinessRole  string        `json:"business_role"`
	CreatedAt     time.Time     `json:"created_at"`
}

var businessRoles = map[string]bool{
	"Operation Representative":    true,
	"Authorized Signing Officer":  true,
	"Operation Registration Lead": true,
}

func NewContact(contactID id.ContactID, operator id.OperatorID, first, last, email, phone, position, role string, now time.Time) (*Contact, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact first and last name are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact email must be a valid address")
	}
	if !businessRoles[role] {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown business role %q", role)
	}
	return &Contact{
		ID:            contactID,
		OperatorID:    operator,
		FirstName:     first,
		LastName:      last,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		PhoneNumber:   strings.TrimSpace(phone),
		PositionTitle: strings.TrimSpace(position),
		BusinessRole:  role,
		CreatedAt:     now,
	}, nil
}

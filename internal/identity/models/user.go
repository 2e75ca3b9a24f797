package models

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

// AppRole is the application role of a user. Each value is also the
// PostgreSQL role the user's requests run as.
type AppRole string

const (
	RoleIndustryUser AppRole = "industry_user"
	RoleCasDirector  AppRole = "cas_director"
	RoleCasAdmin     AppRole = "cas_admin"
	RoleCasAnalyst   AppRole = "cas_analyst"
	RoleCasViewOnly  AppRole = "cas_view_only"
	RoleCasPending   AppRole = "cas_pending"
)

func (r AppRole) IsValid() bool {
	switch r {
	case RoleIndustryUser, RoleCasDirector, RoleCasAdmin, RoleCasAnalyst, RoleCasViewOnly, RoleCasPending:
		return true
	}
	return false
}

// IsCasUser reports an internal staff role with an assigned permission set.
func (r AppRole) IsCasUser() bool {
	switch r {
	case RoleCasDirector, RoleCasAdmin, RoleCasAnalyst, RoleCasViewOnly:
		return true
	}
	return false
}

func (r AppRole) IsIndustryUser() bool { return r == RoleIndustryUser }
func (r AppRole) IsCasDirector() bool  { return r == RoleCasDirector }

// IdentityProvider is where the user's login came from.
type IdentityProvider string

const (
	ProviderBCeIDBusiness IdentityProvider = "bceidbusiness"
	ProviderIDIR          IdentityProvider = "idir"
)

// User is a person known to BCIERS.
type User struct {
	GUID          id.UserGUID `json:"user_guid"`
	BusinessGUID  *uuid.UUID  `json:"business_guid,omitempty"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email"`
	PositionTitle string      `json:"position_title"`
	PhoneNumber   string      `json:"phone_number"`
	AppRole       AppRole     `json:"app_role"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NewUser builds a user. IDIR logins start as cas_pending until a CAS admin
// assigns a role; business BCeID logins are industry users.
func NewUser(guid id.UserGUID, provider IdentityProvider, first, last, email, position, phone string, businessGUID *uuid.UUID, now time.Time) (*User, error) {
	if guid.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user guid is required")
	}
	first, last, email = strings.TrimSpace(first), strings.TrimSpace(last), strings.TrimSpace(email)
	if first == "" || last == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "first and last name are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email must be a valid address")
	}
	var role AppRole
	switch provider {
	case ProviderIDIR:
		role = RoleCasPending
	case ProviderBCeIDBusiness:
		role = RoleIndustryUser
		if businessGUID == nil {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "business guid is required for BCeID users")
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown identity provider %q", provider)
	}
	return &User{
		GUID:          guid,
		BusinessGUID:  businessGUID,
		FirstName:     first,
		LastName:      last,
		Email:         strings.ToLower(email),
		PositionTitle: strings.TrimSpace(position),
		PhoneNumber:   strings.TrimSpace(phone),
		AppRole:       role,
		CreatedAt:     now,
	}, nil
}

// CanAssignRole checks a CAS role change. Industry users never change role
// and no one can be moved to industry_user.
func (u *User) CanAssignRole(role AppRole) error {
	if !role.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown role %q", role)
	}
	if u.AppRole.IsIndustryUser() || role.IsIndustryUser() {
		return dErrors.New(dErrors.CodeInvariantViolation, "industry user roles cannot be changed")
	}
	return nil
}

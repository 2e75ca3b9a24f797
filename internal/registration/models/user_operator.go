package models

import (
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

type UserOperatorRole string

const (
	UserOperatorAdmin    UserOperatorRole = "admin"
	UserOperatorReporter UserOperatorRole = "reporter"
	UserOperatorPending  UserOperatorRole = "pending"
)

type UserOperatorStatus string

const (
	AccessPending  UserOperatorStatus = "Pending"
	AccessApproved UserOperatorStatus = "Approved"
	AccessDeclined UserOperatorStatus = "Declined"
)

// UserOperator links a user to an operator. It starts as an access request.
type UserOperator struct {
	ID         id.UserOperatorID  `json:"id"`
	UserGUID   id.UserGUID        `json:"user_guid"`
	OperatorID id.OperatorID      `json:"operator_id"`
	Role       UserOperatorRole   `json:"role"`
	Status     UserOperatorStatus `json:"status"`
	VerifiedBy *id.UserGUID       `json:"verified_by,omitempty"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewAccessRequest builds a pending request. When the operator has no
// approved admin the request is for the admin role and CAS decides it.
func NewAccessRequest(reqID id.UserOperatorID, user id.UserGUID, operator id.OperatorID, operatorHasAdmin bool, now time.Time) *UserOperator {
	role := UserOperatorPending
	if !operatorHasAdmin {
		role = UserOperatorAdmin
	}
	return &UserOperator{
		ID:         reqID,
		UserGUID:   user,
		OperatorID: operator,
		Role:       role,
		Status:     AccessPending,
		CreatedAt:  now,
	}
}

// IsAdminRequest reports a pending request that only CAS staff may decide.
func (uo *UserOperator) IsAdminRequest() bool {
	return uo.Status == AccessPending && uo.Role == UserOperatorAdmin
}

func (uo *UserOperator) IsApprovedAdmin() bool {
	return uo.Status == AccessApproved && uo.Role == UserOperatorAdmin
}

// Approve grants role. Admin requests keep the admin role.
func (uo *UserOperator) Approve(role UserOperatorRole, by id.UserGUID, now time.Time) error {
	if uo.Status != AccessPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "access request has already been decided")
	}
	if uo.Role == UserOperatorAdmin {
		role = UserOperatorAdmin
	}
	if role != UserOperatorAdmin && role != UserOperatorReporter {
		return dErrors.New(dErrors.CodeInvariantViolation, "approved role must be admin or reporter")
	}
	uo.Role = role
	uo.Status = AccessApproved
	uo.verify(by, now)
	return nil
}

func (uo *UserOperator) Decline(by id.UserGUID, now time.Time) error {
	if uo.Status != AccessPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "access request has already been decided")
	}
	uo.Status = AccessDeclined
	uo.verify(by, now)
	return nil
}

func (uo *UserOperator) verify(by id.UserGUID, now time.Time) {
	uo.VerifiedBy = &by
	uo.VerifiedAt = &now
}

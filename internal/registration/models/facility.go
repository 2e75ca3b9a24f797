package models

import (
	"strings"
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

type FacilityType string

const (
	FacilitySingle         FacilityType = "Single Facility"
	FacilityLarge          FacilityType = "Large Facility"
	FacilityMedium         FacilityType = "Medium Facility"
	FacilitySmallAggregate FacilityType = "Small Aggregate"
)

func (t FacilityType) IsValid() bool {
	switch t {
	case FacilitySingle, FacilityLarge, FacilityMedium, FacilitySmallAggregate:
		return true
	}
	return false
}

type Facility struct {
	ID          id.FacilityID  `json:"id"`
	OperationID id.OperationID `json:"operation_id"`
	Name        string         `json:"name"`
	Type        FacilityType   `json:"type"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	BCGHGID     *string        `json:"bcghg_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewFacility builds a facility for op given how many it already holds.
func NewFacility(facilityID id.FacilityID, op *Operation, existing int, name string, fType FacilityType, lat, long *float64, now time.Time) (*Facility, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "facility name is required")
	}
	if !fType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown facility type %q", fType)
	}
	if op.Status == OperationClosed {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "closed operations cannot add facilities")
	}
	switch op.Type {
	case OperationEIO:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "electricity import operations have no facilities")
	case OperationSFO:
		if fType != FacilitySingle {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "single facility operations require a single facility")
		}
		if existing > 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "single facility operations hold exactly one facility")
		}
	case OperationLFO:
		if fType == FacilitySingle {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "linear facilities operations cannot hold a single facility")
		}
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "latitude must be between -90 and 90")
	}
	if long != nil && (*long < -180 || *long > 180) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "longitude must be between -180 and 180")
	}
	return &Facility{
		ID:          facilityID,
		OperationID: op.ID,
		Name:        name,
		Type:        fType,
		Latitude:    lat,
		Longitude:   long,
		CreatedAt:   now,
	}, nil
}

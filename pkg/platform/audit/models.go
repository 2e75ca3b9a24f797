// Package audit records regulatory events in a transactional outbox and
// relays them to Kafka.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "bciers/pkg/domain"
)

// Action names an audited event.
type Action string

const (
	// Registration
	ActionOperationRegistered Action = "operation_registered"
	ActionBOROIDIssued        Action = "boro_id_issued"
	ActionBCGHGIDIssued       Action = "bcghg_id_issued"
	ActionAccessRequested     Action = "access_request_created"
	ActionAccessApproved      Action = "access_request_approved"
	ActionAccessDeclined      Action = "access_request_declined"
	ActionOperatorDecided     Action = "operator_status_changed"

	// Reporting
	ActionReportSubmitted Action = "report_submitted"

	// Compliance
	ActionComplianceReportVersionCreated Action = "compliance_report_version_created"
	ActionObligationCreated              Action = "obligation_created"
	ActionInvoiceIssued                  Action = "invoice_issued"
	ActionPenaltyFinalized               Action = "penalty_finalized"
	ActionComplianceUnitsApplied         Action = "compliance_units_applied"
	ActionEarnedCreditsRequested         Action = "earned_credits_requested"
	ActionEarnedCreditsReviewed          Action = "earned_credits_reviewed"
)

// Event is one audited fact. AggregateID identifies the record it concerns
// (operation, report version, obligation) and keys the Kafka partition.
type Event struct {
	ID          uuid.UUID
	Action      Action
	AggregateID string
	ActorGUID   id.UserGUID
	RequestID   string
	Timestamp   time.Time
	Details     map[string]string
}

// OutboxEntry is a persisted event waiting to be relayed.
type OutboxEntry struct {
	ID          uuid.UUID
	Action      Action
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
}

// Payload is the JSON document published for each event.
type Payload struct {
	ID          string            `json:"id"`
	Action      string            `json:"action"`
	AggregateID string            `json:"aggregate_id"`
	ActorGUID   string            `json:"actor_guid,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	Timestamp   string            `json:"timestamp"`
	Details     map[string]string `json:"details,omitempty"`
}

// ToPayload converts the event to its wire form.
func (e Event) ToPayload() Payload {
	p := Payload{
		ID:          e.ID.String(),
		Action:      string(e.Action),
		AggregateID: e.AggregateID,
		RequestID:   e.RequestID,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Details:     e.Details,
	}
	if !e.ActorGUID.IsNil() {
		p.ActorGUID = e.ActorGUID.String()
	}
	return p
}
